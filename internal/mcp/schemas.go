package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexProjectTool returns the tool definition for index_project.
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Index a project's source tree into its semantic code collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Kanban project identifier the index belongs to",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"include_patterns": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns to include (e.g., 'src/**/*.ts'); empty means all supported files",
					"items":       map[string]interface{}{"type": "string"},
				},
				"exclude_patterns": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns to exclude",
					"items":       map[string]interface{}{"type": "string"},
				},
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, drop the existing collection and rebuild from scratch",
					"default":     false,
				},
			},
			Required: []string{"project_id", "path"},
		},
	}
}

// updateIndexTool returns the tool definition for update_index.
func updateIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_index",
		Description: "Apply an incremental index update from known changed and deleted paths",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Kanban project identifier",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"changed": map[string]interface{}{
					"type":        "array",
					"description": "Relative paths of files that changed",
					"items":       map[string]interface{}{"type": "string"},
				},
				"deleted": map[string]interface{}{
					"type":        "array",
					"description": "Relative paths of files that were removed",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"project_id", "path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code.
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search a project's indexed code with a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Kanban project identifier",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-50)",
					"default":     10,
					"minimum":     1,
					"maximum":     50,
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"languages": map[string]interface{}{
					"type":        "array",
					"description": "Filter by detected language (e.g., 'go', 'typescript')",
					"items":       map[string]interface{}{"type": "string"},
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "Filter by file extension (e.g., '.go')",
					"items":       map[string]interface{}{"type": "string"},
				},
				"path_prefixes": map[string]interface{}{
					"type":        "array",
					"description": "Filter by directory prefix; '/' and '\\' are treated as equivalent",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"project_id", "query"},
		},
	}
}

// searchMemoriesTool returns the tool definition for search_memories.
func searchMemoriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_memories",
		Description: "Search a project's saved memories semantically",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Kanban project identifier",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-50)",
					"default":     10,
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity (0.0-1.0)",
				},
				"include_global": map[string]interface{}{
					"type":        "boolean",
					"description": "Include memories marked global in other projects",
					"default":     true,
				},
			},
			Required: []string{"project_id", "query"},
		},
	}
}

// saveMemoryTool returns the tool definition for save_memory.
func saveMemoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "save_memory",
		Description: "Save a memory note so future searches and recalls can surface it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Kanban project identifier",
				},
				"memory_type": map[string]interface{}{
					"type":        "string",
					"description": "Category of the note",
					"enum": []string{"decision", "pattern", "convention", "lesson",
						"architecture", "warning", "preference"},
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Short summary line",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Full note text",
				},
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Existing memory ID to update; omit to create",
				},
				"is_global": map[string]interface{}{
					"type":        "boolean",
					"description": "Make the note visible from every project",
					"default":     false,
				},
				"work_item_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional work item this note came out of",
				},
			},
			Required: []string{"project_id", "memory_type", "title", "content"},
		},
	}
}

// deleteMemoryTool returns the tool definition for delete_memory.
func deleteMemoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_memory",
		Description: "Retire a memory note so it no longer appears in searches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Memory ID to retire",
				},
			},
			Required: []string{"id"},
		},
	}
}

// recallContextTool returns the tool definition for recall_context.
func recallContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "recall_context",
		Description: "Gather code, memories, and related work items for a work item in one call",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Kanban project identifier",
				},
				"work_item_id": map[string]interface{}{
					"type":        "string",
					"description": "Work item to recall context for",
				},
				"code_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum code snippets",
					"default":     5,
				},
				"memory_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum memories",
					"default":     5,
				},
				"related_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum related work items",
					"default":     5,
				},
				"include_global": map[string]interface{}{
					"type":        "boolean",
					"description": "Include global memories",
					"default":     true,
				},
			},
			Required: []string{"project_id", "work_item_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status.
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report indexing state and chunk counts for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Kanban project identifier",
				},
			},
			Required: []string{"project_id"},
		},
	}
}
