package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kortfolk/chronicle/internal/brief"
	"github.com/kortfolk/chronicle/internal/db"
	"github.com/kortfolk/chronicle/internal/kb"
)

func setupServer(t *testing.T) (*Server, *kb.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := kb.NewStore(database)
	return NewServer(store, brief.NewProjector(store)), store
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("tool result is not text: %+v", result.Content[0])
	}
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"query_entity", queryEntityTool, "query_entity"},
		{"search_knowledge", searchKnowledgeTool, "search_knowledge"},
		{"list_decisions", listDecisionsTool, "list_decisions"},
		{"get_briefing", getBriefingTool, "get_briefing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestHandleQueryEntity(t *testing.T) {
	srv, store := setupServer(t)
	ctx := context.Background()

	id, err := store.CreateEntity(ctx, "payments service", kb.EntityProject)
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if _, _, err := store.WriteFact(ctx, id, "status", "beta", "s1", time.Now().UTC().Add(-48*time.Hour)); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}
	if _, _, err := store.WriteFact(ctx, id, "status", "live", "s2", time.Now().UTC()); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}

	t.Run("current state", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"name": "Payments Service"}

		result, err := srv.handleQueryEntity(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := textContent(t, result)
		if !strings.Contains(text, "status: live") {
			t.Errorf("missing current fact:\n%s", text)
		}
		if strings.Contains(text, "beta") {
			t.Errorf("superseded value shown without history:\n%s", text)
		}
	})

	t.Run("with history", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"name": "payments service", "history": true}

		result, err := srv.handleQueryEntity(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := textContent(t, result)
		if !strings.Contains(text, "beta") {
			t.Errorf("history missing superseded value:\n%s", text)
		}
	})

	t.Run("unknown entity", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"name": "does not exist anywhere"}

		result, err := srv.handleQueryEntity(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatal("unknown entity should be a text response, not a tool error")
		}
		if !strings.Contains(textContent(t, result), "No entity") {
			t.Errorf("unexpected response: %s", textContent(t, result))
		}
	})

	t.Run("missing name", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleQueryEntity(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error for missing name")
		}
	})
}

func TestHandleSearchKnowledge(t *testing.T) {
	srv, store := setupServer(t)
	ctx := context.Background()

	id, _ := store.CreateEntity(ctx, "gateway", kb.EntityTool)
	if _, _, err := store.WriteFact(ctx, id, "language", "go", "s1", time.Now().UTC()); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"query": "gateway"}

	result, err := srv.handleSearchKnowledge(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if !strings.Contains(textContent(t, result), "gateway") {
		t.Errorf("search missed entity:\n%s", textContent(t, result))
	}
}

func TestHandleListDecisions(t *testing.T) {
	srv, store := setupServer(t)
	ctx := context.Background()

	if _, err := store.WriteDecision(ctx, "adopt jsonl transcripts", "simplest durable format", "", time.Now().UTC()); err != nil {
		t.Fatalf("WriteDecision: %v", err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := srv.handleListDecisions(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := textContent(t, result)
	if !strings.Contains(text, "adopt jsonl transcripts") {
		t.Errorf("decision missing:\n%s", text)
	}
	if !strings.Contains(text, "simplest durable format") {
		t.Errorf("rationale missing:\n%s", text)
	}
}

func TestHandleGetBriefing(t *testing.T) {
	srv, store := setupServer(t)
	ctx := context.Background()

	id, _ := store.CreateEntity(ctx, "gateway", kb.EntityTool)
	if _, _, err := store.WriteFact(ctx, id, "language", "go", "s1", time.Now().UTC()); err != nil {
		t.Fatalf("WriteFact: %v", err)
	}

	req := mcp.CallToolRequest{}
	result, err := srv.handleGetBriefing(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := textContent(t, result)
	if !strings.Contains(text, "# Briefing") || !strings.Contains(text, "gateway") {
		t.Errorf("briefing incomplete:\n%s", text)
	}
}
