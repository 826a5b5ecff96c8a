package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [terms]",
	Short: "Full-text search across entities, facts and decisions",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
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

	results, err := store.Search(ctx, args[0])
	if err != nil {
		return err
	}
	if results.Total() == 0 {
		fmt.Fprintf(os.Stderr, "No matches for %q.\n", args[0])
		os.Exit(exitNoResults)
	}

	if jsonOutput {
		return printJSON(results)
	}

	if len(results.Entities) > 0 {
		fmt.Println("Entities:")
		for _, e := range results.Entities {
			fmt.Printf("  %s (%s)\n", e.Name, e.Type)
		}
	}
	if len(results.Facts) > 0 {
		fmt.Println("Facts:")
		for _, f := range results.Facts {
			state := "current"
			if f.ValidTo != nil {
				state = "superseded"
			}
			fmt.Printf("  %s: %s = %s  [%s]\n", f.EntityName, f.Attribute, f.Value, state)
		}
	}
	if len(results.Decisions) > 0 {
		fmt.Println("Decisions:")
		for _, d := range results.Decisions {
			fmt.Printf("  [%s] %s\n", d.Status, d.Title)
		}
	}
	return nil
}
