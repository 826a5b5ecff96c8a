package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge-entities [keep-id] [merge-id]",
	Short: "Merge duplicate entities",
	Long: `With no arguments, lists groups of entities whose names normalize to
the same value. With two ids, folds the second entity into the first:
its facts, relations and domain move across, then it is deleted.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().Bool("prune", false, "also delete entities with no facts or relations")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	prune, _ := cmd.Flags().GetBool("prune")

	if len(args) == 1 {
		return fmt.Errorf("merge-entities takes either no arguments or both a keep-id and a merge-id")
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

	if len(args) == 2 {
		if err := store.MergeEntities(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Merged %s into %s\n", args[1], args[0])
	} else {
		sets, err := store.FindDuplicates(ctx)
		if err != nil {
			return err
		}
		if len(sets) == 0 {
			fmt.Println("No duplicate entities found.")
		}
		for _, set := range sets {
			fmt.Printf("%s:\n", set.Normalized)
			for _, e := range set.Entities {
				fmt.Printf("  %s  %-30s %s\n", e.ID, e.Name, e.Type)
			}
		}
		if len(sets) > 0 {
			fmt.Println("\nRun `chronicle merge-entities <keep-id> <merge-id>` to fold one into another.")
		}
	}

	if prune {
		removed, err := store.PruneOrphans(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d orphaned entities\n", removed)
	}
	return nil
}
