package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/kb"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Assign domains to entities from configured rules",
	Long: `Matches every entity's fact sources against the domain rules in the
config file and tags matching entities. Use --set to tag a single
entity by hand instead.`,
	RunE: runDomains,
}

func init() {
	domainsCmd.Flags().String("set", "", "entity name to tag directly")
	domainsCmd.Flags().String("domain", "", "domain to assign with --set")
	rootCmd.AddCommand(domainsCmd)
}

func runDomains(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	setName, _ := cmd.Flags().GetString("set")
	domain, _ := cmd.Flags().GetString("domain")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if setName != "" {
		if domain == "" {
			return fmt.Errorf("--set requires --domain")
		}
		entity, err := store.FindEntity(ctx, setName)
		if err != nil {
			return err
		}
		if err := store.AssignDomain(ctx, entity.ID, domain, 1.0, kb.ProvenanceManual); err != nil {
			return err
		}
		fmt.Printf("Tagged %s with domain %s\n", entity.Name, domain)
		return nil
	}

	if len(cfg.Domains) == 0 {
		return fmt.Errorf("no domain rules configured: add a `domains` section to %s", cfgFile)
	}
	assigned, err := store.AssignDomainsFromSources(ctx, cfg.Domains)
	if err != nil {
		return err
	}
	fmt.Printf("Assigned %d domains across the store\n", assigned)
	return nil
}
