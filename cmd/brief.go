package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Print the current briefing",
	Long: `Renders the briefing from the current state of the store and prints
it. The rendered markdown is also written to the data directory so
other tools can pick it up.`,
	RunE: runBrief,
}

func init() {
	briefCmd.Flags().Bool("html", false, "render as HTML instead of markdown")
	briefCmd.Flags().Bool("no-write", false, "print only, skip updating briefing.md")
	rootCmd.AddCommand(briefCmd)
}

func runBrief(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	asHTML, _ := cmd.Flags().GetBool("html")
	noWrite, _ := cmd.Flags().GetBool("no-write")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	projector := newProjector(cfg, store)
	markdown, err := projector.Generate(ctx)
	if err != nil {
		return err
	}

	if !noWrite {
		if err := projector.Write(ctx, cfg.DataDir); err != nil {
			return fmt.Errorf("writing %s: %w", filepath.Join(cfg.DataDir, "briefing.md"), err)
		}
	}

	if asHTML {
		return goldmark.Convert([]byte(markdown), os.Stdout)
	}
	fmt.Print(markdown)
	return nil
}
