package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/kb"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "List recorded decisions",
	RunE:  runDecisions,
}

var decideCmd = &cobra.Command{
	Use:   "decide [title]",
	Short: "Record a decision with its rationale",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecide,
}

var supersedeCmd = &cobra.Command{
	Use:   "supersede [old-id] [new-title]",
	Short: "Record a decision that replaces an existing one",
	Args:  cobra.ExactArgs(2),
	RunE:  runSupersede,
}

var reverseCmd = &cobra.Command{
	Use:   "reverse [id]",
	Short: "Mark a decision as reversed",
	Args:  cobra.ExactArgs(1),
	RunE:  runReverse,
}

func init() {
	decisionsCmd.Flags().Bool("all", false, "include superseded and reversed decisions")
	decisionsCmd.Flags().Bool("json", false, "output as JSON")
	decideCmd.Flags().String("rationale", "", "why this was decided")
	decideCmd.Flags().String("context", "", "background the decision was made in")
	supersedeCmd.Flags().String("rationale", "", "why the replacement was decided")
	rootCmd.AddCommand(decisionsCmd, decideCmd, supersedeCmd, reverseCmd)
}

func runDecisions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	all, _ := cmd.Flags().GetBool("all")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	decisions, err := store.ListDecisions(ctx, all)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(decisions)
	}

	if len(decisions) == 0 {
		fmt.Println("No decisions recorded.")
		return nil
	}
	for _, d := range decisions {
		fmt.Printf("%s  [%s] %s (%s)\n", d.ID, d.Status, d.Title, d.DecidedAt.Format(kb.DateLayout))
		if d.Rationale != "" {
			fmt.Printf("    %s\n", d.Rationale)
		}
	}
	return nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	rationale, _ := cmd.Flags().GetString("rationale")
	background, _ := cmd.Flags().GetString("context")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	id, err := store.WriteDecision(context.Background(), args[0], rationale, background, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Printf("Recorded decision %s\n", id)
	return nil
}

func runSupersede(cmd *cobra.Command, args []string) error {
	oldID, title := args[0], args[1]
	rationale, _ := cmd.Flags().GetString("rationale")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	newID, err := store.WriteDecision(ctx, title, rationale, "", time.Now().UTC())
	if err != nil {
		return err
	}
	if err := store.SupersedeDecision(ctx, oldID, newID); err != nil {
		return err
	}
	fmt.Printf("Decision %s superseded by %s\n", oldID, newID)
	return nil
}

func runReverse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.ReverseDecision(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Decision %s reversed\n", args[0])
	return nil
}
