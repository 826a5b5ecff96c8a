package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract new knowledge from session transcripts",
	Long: `Processes messages added to transcripts since the last run. Facts go
into the store, work products into the pending queue for the next
reconciliation. Each stage keeps its own offsets, and offsets only
advance after a batch fully succeeds.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Bool("facts-only", false, "run only the fact stage")
	extractCmd.Flags().Bool("artifacts-only", false, "run only the artifact stage")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	factsOnly, _ := cmd.Flags().GetBool("facts-only")
	artifactsOnly, _ := cmd.Flags().GetBool("artifacts-only")
	if factsOnly && artifactsOnly {
		return fmt.Errorf("--facts-only and --artifacts-only are mutually exclusive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	paths, err := discoverSessions(cfg)
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg, store, true)
	if err != nil {
		return err
	}

	if !artifactsOnly {
		stats, err := p.RunFactExtraction(ctx, paths)
		if err != nil {
			return err
		}
		fmt.Printf("facts: %d sources processed, %d skipped, %d failed, %d facts written, %d decisions\n",
			stats.Sources, stats.Skipped, stats.Failed, stats.FactsWritten, stats.Decisions)
	}

	if !factsOnly {
		stats, err := p.RunArtifactExtraction(ctx, paths)
		if err != nil {
			return err
		}
		fmt.Printf("artifacts: %d sources processed, %d skipped, %d failed, %d artifacts queued\n",
			stats.Sources, stats.Skipped, stats.Failed, stats.Artifacts)
	}
	return nil
}
