package mcp

import "github.com/mark3labs/mcp-go/mcp"

// queryEntityTool defines the query_entity MCP tool.
var queryEntityTool = mcp.NewTool("query_entity",
	mcp.WithDescription("Look up an entity by name and return its current facts, relations, and history. Names are matched case-insensitively with fuzzy fallback."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Entity name, e.g. a person, project, or tool"),
	),
	mcp.WithBoolean("history",
		mcp.Description("Include superseded facts with their validity ranges (default false)"),
	),
)

// searchKnowledgeTool defines the search_knowledge MCP tool.
var searchKnowledgeTool = mcp.NewTool("search_knowledge",
	mcp.WithDescription("Full-text search across entities, facts, and decisions."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search terms"),
	),
)

// listDecisionsTool defines the list_decisions MCP tool.
var listDecisionsTool = mcp.NewTool("list_decisions",
	mcp.WithDescription("List recorded decisions with their rationale. Active decisions only unless all is set."),
	mcp.WithBoolean("all",
		mcp.Description("Include superseded and reversed decisions (default false)"),
	),
)

// getBriefingTool defines the get_briefing MCP tool.
var getBriefingTool = mcp.NewTool("get_briefing",
	mcp.WithDescription("Get the current briefing: all current facts and active decisions grouped by domain. Superseded knowledge is excluded."),
)
