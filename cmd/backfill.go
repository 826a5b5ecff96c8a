package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/progress"
	"github.com/kortfolk/chronicle/internal/session"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Extract facts from full session history",
	Long: `Walks every discovered transcript and runs fact extraction over it,
one source at a time, with progress reporting. Use --reset to discard
existing offsets and reprocess everything from the start.`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().Bool("reset", false, "discard offsets and reprocess all transcripts")
	backfillCmd.Flags().Bool("artifacts", false, "also run artifact extraction per transcript")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	reset, _ := cmd.Flags().GetBool("reset")
	withArtifacts, _ := cmd.Flags().GetBool("artifacts")

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

	if reset {
		if err := resetOffsets(cfg.DataDir, withArtifacts); err != nil {
			return err
		}
	}

	p, err := buildPipeline(cfg, store, true)
	if err != nil {
		return err
	}

	reporter := progress.New(len(paths))

	var total factTotals
	for _, path := range paths {
		reporter.Step(session.SourceID(path))

		stats, err := p.RunFactExtraction(ctx, []string{path})
		total.add(stats.Sources, stats.Skipped, stats.Failed, stats.FactsWritten, stats.Decisions)
		if err != nil {
			reporter.Done()
			return err
		}

		if withArtifacts {
			astats, err := p.RunArtifactExtraction(ctx, []string{path})
			if err != nil {
				reporter.Done()
				return err
			}
			total.artifacts += astats.Artifacts
		}
	}
	reporter.Done()

	fmt.Printf("backfill: %d sources processed, %d up to date, %d failed, %d facts written, %d decisions\n",
		total.sources, total.skipped, total.failed, total.facts, total.decisions)
	if withArtifacts {
		fmt.Printf("backfill: %d artifacts queued\n", total.artifacts)
	}
	return nil
}

type factTotals struct {
	sources, skipped, failed, facts, decisions, artifacts int
}

func (t *factTotals) add(sources, skipped, failed, facts, decisions int) {
	t.sources += sources
	t.skipped += skipped
	t.failed += failed
	t.facts += facts
	t.decisions += decisions
}

func resetOffsets(dataDir string, withArtifacts bool) error {
	stages := []session.Stage{session.StageFacts}
	if withArtifacts {
		stages = append(stages, session.StageArtifacts)
	}
	for _, stage := range stages {
		path := filepath.Join(dataDir, fmt.Sprintf("offsets-%s.json", stage))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("resetting %s offsets: %w", stage, err)
		}
	}
	return nil
}
