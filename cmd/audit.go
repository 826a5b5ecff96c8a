package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the action audit trail",
	Long: `Prints audit entries, newest first. Every board action the executor
considered has exactly one entry, including dropped and failed ones.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().Int("limit", 20, "maximum entries to show")
	auditCmd.Flags().String("action", "", "filter by action type")
	auditCmd.Flags().String("outcome", "", "filter by outcome: applied, deferred, dropped_policy, dropped_low_confidence, failed, conflict_flagged")
	auditCmd.Flags().String("target", "", "filter by target id")
	auditCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	action, _ := cmd.Flags().GetString("action")
	outcome, _ := cmd.Flags().GetString("outcome")
	target, _ := cmd.Flags().GetString("target")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	entries, err := auditStore(cfg).Query(audit.QueryFilter{
		Action:  action,
		Outcome: audit.Outcome(outcome),
		Target:  target,
		Limit:   limit,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No audit entries.")
		return nil
	}
	for _, e := range entries {
		tgt := e.Target
		if tgt == "" {
			tgt = "-"
		}
		fmt.Printf("%s  %-22s %-15s %s [%s]\n",
			e.Timestamp.Format(time.RFC3339), e.Outcome, e.Action, tgt, e.Actor)
		if e.PreviousValue != "" {
			fmt.Printf("    was: %s\n", e.PreviousValue)
		}
		if e.Evidence != "" {
			fmt.Printf("    evidence: %s\n", e.Evidence)
		}
		if e.Detail != "" {
			fmt.Printf("    %s\n", e.Detail)
		}
	}
	return nil
}
