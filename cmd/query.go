package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/kb"
)

var queryCmd = &cobra.Command{
	Use:   "query [entity]",
	Short: "Look up an entity's current facts and relations",
	Long: `Resolves an entity by name (case-insensitive, with fuzzy fallback) and
prints its current facts and relations. Use --history to include
superseded facts with their validity ranges.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Bool("history", false, "include superseded facts")
	queryCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	withHistory, _ := cmd.Flags().GetBool("history")
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

	entity, err := store.FindEntity(ctx, name)
	if errors.Is(err, kb.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "No entity matching %q.\n", name)
		os.Exit(exitNoResults)
	}
	if err != nil {
		return err
	}

	facts, err := store.CurrentFacts(ctx, entity.ID)
	if err != nil {
		return err
	}
	relations, err := store.CurrentRelations(ctx, entity.ID)
	if err != nil {
		return err
	}
	var history []kb.Fact
	if withHistory {
		if history, err = store.History(ctx, entity.ID); err != nil {
			return err
		}
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"entity":    entity,
			"facts":     facts,
			"relations": relations,
			"history":   history,
		})
	}

	fmt.Printf("%s (%s)\n", entity.Name, entity.Type)
	if len(facts) == 0 {
		fmt.Println("  no current facts")
	}
	for _, f := range facts {
		fmt.Printf("  %s: %s  (since %s, source %s)\n",
			f.Attribute, f.Value, f.ValidFrom.Format(kb.DateLayout), f.Source)
	}
	for _, r := range relations {
		fmt.Printf("  %s %s %s\n", r.FromName, r.Type, r.ToName)
	}

	if withHistory {
		fmt.Println("\nHistory:")
		for _, f := range history {
			until := "now"
			if f.ValidTo != nil {
				until = f.ValidTo.Format(kb.DateLayout)
			}
			fmt.Printf("  %s: %s  [%s .. %s]\n",
				f.Attribute, f.Value, f.ValidFrom.Format(kb.DateLayout), until)
		}
	}
	return nil
}
