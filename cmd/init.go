package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize chronicle configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure chronicle and generates a .chronicle.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
