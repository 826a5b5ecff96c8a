package cmd

import (
	"io"
	"log"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// Exit codes: 0 success, 1 error, 2 query found nothing. Scripts can
// tell an empty answer from a broken one.
const exitNoResults = 2

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Temporal knowledge base built from agent session transcripts",
	Long: `Chronicle extracts durable facts, relations and decisions from agent
session transcripts into a temporal store where knowledge is superseded,
never overwritten. It reconciles extracted work products against an
external board, executes safe changes with a full audit trail, and
projects the current state into a briefing for new sessions.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Operational log chatter is opt-in; failures still surface
		// through exit codes and run stats.
		if !verbose {
			log.SetOutput(io.Discard)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".chronicle.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
