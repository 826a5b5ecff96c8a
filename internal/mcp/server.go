// Package mcp exposes the knowledge store to MCP clients, so agent
// sessions can pull stored context without going through the HTTP API.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/kortfolk/chronicle/internal/brief"
	"github.com/kortfolk/chronicle/internal/kb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server exposing knowledge-base tools.
type Server struct {
	store     *kb.Store
	projector *brief.Projector
	mcp       *server.MCPServer
}

// NewServer creates an MCP server over the store and projector.
func NewServer(store *kb.Store, projector *brief.Projector) *Server {
	s := &Server{
		store:     store,
		projector: projector,
	}

	s.mcp = server.NewMCPServer(
		"chronicle",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(queryEntityTool, s.handleQueryEntity)
	s.mcp.AddTool(searchKnowledgeTool, s.handleSearchKnowledge)
	s.mcp.AddTool(listDecisionsTool, s.handleListDecisions)
	s.mcp.AddTool(getBriefingTool, s.handleGetBriefing)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
