package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/config"
	"github.com/kortfolk/chronicle/internal/executor"
	"github.com/kortfolk/chronicle/internal/kb"
)

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "Review actions awaiting approval",
	Long: `Walks through deferred board actions one by one. Approving an action
executes it immediately; dismissing drops it without touching the
board. Use the subcommands for non-interactive handling.`,
	RunE: runProposalsReview,
}

var proposalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending proposals",
	RunE:  runProposalsList,
}

var proposalsApproveCmd = &cobra.Command{
	Use:   "approve [id]",
	Short: "Approve and execute a proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalsApprove,
}

var proposalsDismissCmd = &cobra.Command{
	Use:   "dismiss [id]",
	Short: "Dismiss a proposal without executing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalsDismiss,
}

func init() {
	proposalsListCmd.Flags().Bool("json", false, "output as JSON")
	proposalsCmd.AddCommand(proposalsListCmd, proposalsApproveCmd, proposalsDismissCmd)
	rootCmd.AddCommand(proposalsCmd)
}

func proposalSetup() (*config.Config, *executor.ProposalQueue, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, proposalQueue(cfg), nil
}

func boardExecutor(cfg *config.Config) (*executor.Executor, error) {
	ext := boardExternal(cfg)
	if ext == nil {
		return nil, fmt.Errorf("no board configured: set board.base_url in %s", config.DefaultPath)
	}
	return executor.New(ext, auditStore(cfg), proposalQueue(cfg)), nil
}

func runProposalsList(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	_, queue, err := proposalSetup()
	if err != nil {
		return err
	}
	pending, err := queue.Pending()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(pending)
	}
	if len(pending) == 0 {
		fmt.Println("No pending proposals.")
		return nil
	}
	for _, p := range pending {
		fmt.Printf("%s  %s %s (%.2f, queued %s)\n",
			p.ID, p.Action.Type, p.Action.Title, p.Action.Score, p.QueuedAt.Format(kb.DateLayout))
		if p.Action.Rationale != "" {
			fmt.Printf("    %s\n", p.Action.Rationale)
		}
	}
	return nil
}

func runProposalsApprove(cmd *cobra.Command, args []string) error {
	cfg, queue, err := proposalSetup()
	if err != nil {
		return err
	}
	exec, err := boardExecutor(cfg)
	if err != nil {
		return err
	}

	action, err := queue.Approve(args[0])
	if err != nil {
		return err
	}
	if _, err := exec.ExecuteApproved(context.Background(), action); err != nil {
		return fmt.Errorf("executing approved action: %w", err)
	}
	fmt.Printf("Applied %s: %s\n", action.Type, action.Title)
	return nil
}

func runProposalsDismiss(cmd *cobra.Command, args []string) error {
	_, queue, err := proposalSetup()
	if err != nil {
		return err
	}
	if err := queue.Dismiss(args[0]); err != nil {
		return err
	}
	fmt.Println("Dismissed.")
	return nil
}

func runProposalsReview(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, queue, err := proposalSetup()
	if err != nil {
		return err
	}
	exec, err := boardExecutor(cfg)
	if err != nil {
		return err
	}

	pending, err := queue.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending proposals.")
		return nil
	}

	applied, dismissed, kept := 0, 0, 0
	for i, p := range pending {
		fmt.Printf("\n[%d/%d] %s %s (%.2f)\n", i+1, len(pending), p.Action.Type, p.Action.Title, p.Action.Score)
		if p.Action.TargetID != "" {
			fmt.Printf("  target: %s\n", p.Action.TargetID)
		}
		if p.Action.Rationale != "" {
			fmt.Printf("  %s\n", p.Action.Rationale)
		}
		if p.Action.Evidence != "" {
			fmt.Printf("  evidence: %s\n", p.Action.Evidence)
		}

		prompt := promptui.Select{
			Label: "Decision",
			Items: []string{"Approve", "Dismiss", "Skip", "Quit"},
		}
		_, choice, err := prompt.Run()
		if err != nil {
			return err
		}

		switch choice {
		case "Approve":
			action, err := queue.Approve(p.ID)
			if err != nil {
				return err
			}
			if _, err := exec.ExecuteApproved(ctx, action); err != nil {
				return fmt.Errorf("executing approved action: %w", err)
			}
			applied++
		case "Dismiss":
			if err := queue.Dismiss(p.ID); err != nil {
				return err
			}
			dismissed++
		case "Skip":
			kept++
		case "Quit":
			kept += len(pending) - i
			fmt.Printf("\n%d applied, %d dismissed, %d still pending\n", applied, dismissed, kept)
			return nil
		}
	}

	fmt.Printf("\n%d applied, %d dismissed, %d still pending\n", applied, dismissed, kept)
	return nil
}
