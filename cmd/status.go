package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/extract"
	"github.com/kortfolk/chronicle/internal/llm"
	"github.com/kortfolk/chronicle/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store, offset, queue and spend status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Store")
	fmt.Printf("  entities:  %d\n", stats.Entities)
	fmt.Printf("  facts:     %d current, %d total\n", stats.CurrentFacts, stats.TotalFacts)
	fmt.Printf("  relations: %d\n", stats.Relations)
	fmt.Printf("  decisions: %d active, %d total\n", stats.ActiveDecisions, stats.TotalDecisions)

	fmt.Println("Offsets")
	for _, stage := range []session.Stage{session.StageFacts, session.StageArtifacts} {
		tracker, err := session.LoadTracker(cfg.DataDir, stage)
		if err != nil {
			return err
		}
		fmt.Printf("  %s: %d sources tracked\n", stage, len(tracker.Sources()))
	}

	pending, err := extract.NewPendingQueue(cfg.DataDir).Count()
	if err != nil {
		return err
	}
	fmt.Printf("Pending artifacts: %d\n", pending)

	proposals, err := proposalQueue(cfg).Count()
	if err != nil {
		return err
	}
	fmt.Printf("Proposals awaiting approval: %d\n", proposals)

	auditCount, err := auditStore(cfg).Count()
	if err != nil {
		return err
	}
	fmt.Printf("Audit entries: %d\n", auditCount)

	if provider, err := buildProvider(cfg); err == nil {
		if budgeted, ok := provider.(*llm.BudgetedProvider); ok {
			spent, err := budgeted.SpentToday()
			if err == nil {
				fmt.Printf("Spend today: $%.2f of $%.2f\n", spent, cfg.BudgetUSDPerDay)
			}
		}
	}
	return nil
}
