package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Exposes the store to MCP clients over stdio: entity queries, search,
decisions and the briefing. Logging goes to stderr; stdout carries
the protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	mcp.Version = Version
	return mcp.NewServer(store, newProjector(cfg, store)).Serve()
}
