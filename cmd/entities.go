package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List all entities with fact counts and domains",
	RunE:  runEntities,
}

func init() {
	entitiesCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(entitiesCmd)
}

func runEntities(cmd *cobra.Command, args []string) error {
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

	summaries, err := store.EntitySummaries(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("Store is empty. Run `chronicle extract` or `chronicle backfill` first.")
		return nil
	}
	for _, s := range summaries {
		domain := s.Domain
		if domain == "" {
			domain = "-"
		}
		fmt.Printf("%-30s %-8s %3d facts  %s\n", s.Name, s.Type, s.FactCount, domain)
	}
	return nil
}
