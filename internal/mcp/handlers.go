package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kortfolk/chronicle/internal/kb"
)

// handleQueryEntity resolves a name and renders the entity's current
// state, optionally with its full fact history.
func (s *Server) handleQueryEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	withHistory := request.GetBool("history", false)

	entity, err := s.store.FindEntity(ctx, name)
	if errors.Is(err, kb.ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf("No entity matching %q.", name)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s (%s)\n\n", entity.Name, entity.Type)

	facts, err := s.store.CurrentFacts(ctx, entity.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading facts: %v", err)), nil
	}
	sb.WriteString("## Current facts\n")
	if len(facts) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, f := range facts {
		fmt.Fprintf(&sb, "- %s: %s (since %s)\n", f.Attribute, f.Value, f.ValidFrom.Format(kb.DateLayout))
	}

	relations, err := s.store.CurrentRelations(ctx, entity.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading relations: %v", err)), nil
	}
	if len(relations) > 0 {
		sb.WriteString("\n## Relations\n")
		for _, r := range relations {
			fmt.Fprintf(&sb, "- %s %s %s\n", r.FromName, r.Type, r.ToName)
		}
	}

	if withHistory {
		history, err := s.store.History(ctx, entity.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading history: %v", err)), nil
		}
		sb.WriteString("\n## History\n")
		for _, f := range history {
			until := "now"
			if f.ValidTo != nil {
				until = f.ValidTo.Format(kb.DateLayout)
			}
			fmt.Fprintf(&sb, "- %s: %s [%s .. %s]\n",
				f.Attribute, f.Value, f.ValidFrom.Format(kb.DateLayout), until)
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// handleSearchKnowledge runs full-text search across the store.
func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	results, err := s.store.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if results.Total() == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No matches for %q.", query)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d match(es) for %q:\n", results.Total(), query)
	if len(results.Entities) > 0 {
		sb.WriteString("\n## Entities\n")
		for _, e := range results.Entities {
			fmt.Fprintf(&sb, "- %s (%s)\n", e.Name, e.Type)
		}
	}
	if len(results.Facts) > 0 {
		sb.WriteString("\n## Facts\n")
		for _, f := range results.Facts {
			state := "current"
			if f.ValidTo != nil {
				state = "superseded"
			}
			fmt.Fprintf(&sb, "- %s: %s = %s (%s)\n", f.EntityName, f.Attribute, f.Value, state)
		}
	}
	if len(results.Decisions) > 0 {
		sb.WriteString("\n## Decisions\n")
		for _, d := range results.Decisions {
			fmt.Fprintf(&sb, "- [%s] %s\n", d.Status, d.Title)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleListDecisions renders decisions newest first.
func (s *Server) handleListDecisions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all := request.GetBool("all", false)

	decisions, err := s.store.ListDecisions(ctx, all)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing decisions: %v", err)), nil
	}
	if len(decisions) == 0 {
		return mcp.NewToolResultText("No decisions recorded."), nil
	}

	var sb strings.Builder
	for _, d := range decisions {
		fmt.Fprintf(&sb, "## %s\n", d.Title)
		fmt.Fprintf(&sb, "Status: %s, decided %s\n", d.Status, d.DecidedAt.Format(kb.DateLayout))
		if d.Rationale != "" {
			fmt.Fprintf(&sb, "Rationale: %s\n", d.Rationale)
		}
		if d.Context != "" {
			fmt.Fprintf(&sb, "Context: %s\n", d.Context)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetBriefing regenerates and returns the briefing.
func (s *Server) handleGetBriefing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := s.projector.Generate(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generating briefing: %v", err)), nil
	}
	return mcp.NewToolResultText(content), nil
}
