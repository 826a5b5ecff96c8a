package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/kb"
)

var assertCmd = &cobra.Command{
	Use:   "assert [entity] [attribute] [value]",
	Short: "Record a fact by hand",
	Long: `Writes a fact directly, superseding any current value for the same
attribute. The entity is created when it does not exist yet. Manual
facts carry the source "manual".`,
	Args: cobra.ExactArgs(3),
	RunE: runAssert,
}

func init() {
	assertCmd.Flags().String("type", "concept", "entity type when creating: person, project, company, concept, feature, tool")
	assertCmd.Flags().String("since", "", "validity start date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(assertCmd)
}

func runAssert(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name, attribute, value := args[0], args[1], args[2]

	typeStr, _ := cmd.Flags().GetString("type")
	sinceStr, _ := cmd.Flags().GetString("since")

	validFrom := time.Now().UTC()
	if sinceStr != "" {
		parsed, err := time.Parse(kb.DateLayout, sinceStr)
		if err != nil {
			return fmt.Errorf("invalid --since %q: want YYYY-MM-DD", sinceStr)
		}
		validFrom = parsed
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

	entity, err := store.FindEntity(ctx, name)
	if errors.Is(err, kb.ErrNotFound) {
		id, cerr := store.CreateEntity(ctx, name, kb.NormalizeEntityType(typeStr))
		if cerr != nil {
			return cerr
		}
		entity, err = store.GetEntity(ctx, id)
	}
	if err != nil {
		return err
	}

	_, changed, err := store.WriteFact(ctx, entity.ID, attribute, value, "manual", validFrom)
	if err != nil {
		return err
	}
	if changed {
		fmt.Printf("Recorded %s.%s = %s\n", entity.Name, attribute, value)
	} else {
		fmt.Printf("%s.%s already is %s, nothing written\n", entity.Name, attribute, value)
	}
	return nil
}
