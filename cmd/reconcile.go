package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/config"
	"github.com/kortfolk/chronicle/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile pending artifacts against the board",
	Long: `Matches queued work products against board items and documents, then
routes the resulting actions by confidence: high applies, medium waits
for approval, denied action types are dropped. Use --dry-run to see
the plan without touching anything.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().Bool("dry-run", false, "print the plan without executing it")
	reconcileCmd.Flags().Bool("json", false, "output the plan as JSON")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Board.BaseURL == "" {
		return fmt.Errorf("no board configured: set board.base_url in %s", config.DefaultPath)
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	p, err := buildPipeline(cfg, store, false)
	if err != nil {
		return err
	}

	if dryRun {
		pending, err := p.Queue.Load()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("Nothing pending.")
			return nil
		}
		plan, err := p.Reconciler.Reconcile(ctx, pending)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(plan)
		}
		printPlan(plan)
		return nil
	}

	stats, err := p.RunReconciliation(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(stats)
	}

	if stats.Pending == 0 {
		fmt.Println("Nothing pending.")
		return nil
	}
	printPlan(stats.Plan)
	fmt.Printf("\n%d applied, %d awaiting approval, %d dropped by policy, %d below threshold, %d failed\n",
		stats.Result.Applied, stats.Result.Deferred, stats.Result.DroppedPolicy,
		stats.Result.DroppedLow, stats.Result.Failed)
	if stats.Result.Deferred > 0 {
		fmt.Println("Review deferred actions with `chronicle proposals`.")
	}
	return nil
}

func printPlan(plan *reconcile.Plan) {
	fmt.Println(plan.Summary)
	for _, a := range plan.Actions {
		target := a.TargetID
		if target == "" {
			target = "(new)"
		}
		fmt.Printf("  [%s %.2f] %s %s: %s\n", a.Confidence, a.Score, a.Type, target, a.Title)
		if a.Rationale != "" {
			fmt.Printf("      %s\n", a.Rationale)
		}
	}
	for _, c := range plan.Conflicts {
		fmt.Printf("  CONFLICT %s: %s\n", c.Subject, c.Description)
		if c.Recommendation != "" {
			fmt.Printf("      %s\n", c.Recommendation)
		}
	}
	if plan.Satisfied > 0 {
		fmt.Printf("  %d artifacts already reflected on the board\n", plan.Satisfied)
	}
}
