package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/steven-d-pennington/kanban-context/internal/indexer"
	"github.com/steven-d-pennington/kanban-context/internal/recall"
	"github.com/steven-d-pennington/kanban-context/internal/retriever"
	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32001 // Another indexing run holds the collection
	ErrorCodeNotFound           = -32002 // Work item or memory absent
	ErrorCodeRecallUnavailable  = -32003 // No board database configured
)

// handleIndexProject handles the index_project tool invocation.
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	response, mcpErr := s.indexProject(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) indexProject(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	collection := codeCollection(projectID)
	if !s.guard.Acquire(collection) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "an indexing run is already in progress for this project", map[string]interface{}{
			"project_id": projectID,
		})
	}
	defer s.guard.Release(collection)

	cfg := indexer.Config{
		IncludePatterns: getStringSlice(args, "include_patterns"),
		ExcludePatterns: getStringSlice(args, "exclude_patterns"),
	}

	if getBoolDefault(args, "force_reindex", false) {
		if err := s.store.DeleteCollection(ctx, collection); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to clear existing index", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	stats, err := s.indexer.IndexProject(ctx, collection, path, cfg)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return statsResponse(stats), nil
}

// handleUpdateIndex handles the update_index tool invocation.
func (s *Server) handleUpdateIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	response, mcpErr := s.updateIndex(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) updateIndex(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	changed := getStringSlice(args, "changed")
	deleted := getStringSlice(args, "deleted")
	if len(changed) == 0 && len(deleted) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "at least one changed or deleted path is required", nil)
	}

	collection := codeCollection(projectID)
	if !s.guard.Acquire(collection) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "an indexing run is already in progress for this project", map[string]interface{}{
			"project_id": projectID,
		})
	}
	defer s.guard.Release(collection)

	stats, err := s.indexer.IndexChanges(ctx, collection, path, changed, deleted, indexer.Config{})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "incremental update failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := statsResponse(stats)
	response["deleted"] = len(deleted)
	return response, nil
}

// handleSearchCode handles the search_code tool invocation.
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	response, mcpErr := s.searchCode(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) searchCode(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", retriever.DefaultLimit)
	if limit < 1 || limit > retriever.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams,
			fmt.Sprintf("limit must be between 1 and %d", retriever.MaxLimit),
			map[string]interface{}{"param": "limit", "value": limit})
	}

	results, err := s.retriever.Search(ctx, codeCollection(projectID), query, retriever.Options{
		Limit:        limit,
		Threshold:    getFloatDefault(args, "threshold", 0),
		Languages:    getStringSlice(args, "languages"),
		Extensions:   getStringSlice(args, "extensions"),
		PathPrefixes: getStringSlice(args, "path_prefixes"),
		Kind:         types.KindCode,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": formatResults(results),
	}, nil
}

// handleSearchMemories handles the search_memories tool invocation.
func (s *Server) handleSearchMemories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	response, mcpErr := s.searchMemories(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) searchMemories(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}

	results, err := s.retriever.Search(ctx, memoryCollection(projectID), query, retriever.Options{
		Limit:         getIntDefault(args, "limit", retriever.DefaultLimit),
		Threshold:     getFloatDefault(args, "threshold", 0),
		Kind:          types.KindMemory,
		IncludeGlobal: getBoolDefault(args, "include_global", true),
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": formatResults(results),
	}, nil
}

// handleSaveMemory handles the save_memory tool invocation.
func (s *Server) handleSaveMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	response, mcpErr := s.saveMemory(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) saveMemory(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	memoryType, err := requireString(args, "memory_type")
	if err != nil {
		return nil, err
	}
	title, err := requireString(args, "title")
	if err != nil {
		return nil, err
	}
	content, err := requireString(args, "content")
	if err != nil {
		return nil, err
	}

	rec := &types.MemoryRecord{
		ID:            getStringDefault(args, "id", ""),
		CollectionKey: memoryCollection(projectID),
		MemoryType:    types.MemoryType(memoryType),
		Title:         title,
		Content:       content,
		IsGlobal:      getBoolDefault(args, "is_global", false),
		SourceItemID:  getStringDefault(args, "work_item_id", ""),
	}
	if err := s.memories.Save(ctx, rec); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to save memory", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return map[string]interface{}{
		"id":          rec.ID,
		"memory_type": string(rec.MemoryType),
		"title":       rec.Title,
		"is_global":   rec.IsGlobal,
	}, nil
}

// handleDeleteMemory handles the delete_memory tool invocation.
func (s *Server) handleDeleteMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	response, mcpErr := s.deleteMemory(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) deleteMemory(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}

	if err := s.memories.Deactivate(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotFound, "memory not found", map[string]interface{}{"id": id})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to delete memory", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return map[string]interface{}{"id": id, "deleted": true}, nil
}

// handleRecallContext handles the recall_context tool invocation.
func (s *Server) handleRecallContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	response, mcpErr := s.recallContext(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) recallContext(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	if s.recaller == nil {
		return nil, newMCPError(ErrorCodeRecallUnavailable,
			"recall requires the board database; set "+EnvBoardDBPath, nil)
	}

	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	workItemID, err := requireString(args, "work_item_id")
	if err != nil {
		return nil, err
	}

	result, err := s.recaller.Recall(ctx, recall.Request{
		WorkItemID:       workItemID,
		CodeCollection:   codeCollection(projectID),
		MemoryCollection: memoryCollection(projectID),
		CodeLimit:        getIntDefault(args, "code_limit", recall.DefaultLimit),
		MemoryLimit:      getIntDefault(args, "memory_limit", recall.DefaultLimit),
		RelatedLimit:     getIntDefault(args, "related_limit", recall.DefaultLimit),
		IncludeGlobal:    getBoolDefault(args, "include_global", true),
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotFound, "work item not found", map[string]interface{}{
				"work_item_id": workItemID,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "recall failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	related := make([]map[string]interface{}, 0, len(result.RelatedItems))
	for _, ri := range result.RelatedItems {
		related = append(related, map[string]interface{}{
			"id":         ri.Item.ID,
			"title":      ri.Item.Title,
			"status":     ri.Item.Status,
			"score":      ri.Score,
			"created_at": ri.Item.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return map[string]interface{}{
		"work_item": map[string]interface{}{
			"id":    result.Item.ID,
			"title": result.Item.Title,
		},
		"code_snippets": formatResults(result.CodeSnippets),
		"memories":      formatResults(result.Memories),
		"related_items": related,
	}, nil
}

// handleGetStatus handles the get_status tool invocation.
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	response, mcpErr := s.getStatus(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) getStatus(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}

	collection := codeCollection(projectID)
	status, err := s.store.GetStatus(ctx, collection)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	chunks, err := s.store.CountChunks(ctx, collection)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count chunks", map[string]interface{}{
			"error": err.Error(),
		})
	}
	memoryChunks, err := s.store.CountChunks(ctx, memoryCollection(projectID))
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count memories", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"project_id":     projectID,
		"state":          string(status.State),
		"files_indexed":  status.FilesIndexed,
		"chunks_created": status.ChunksCreated,
		"chunks_stored":  chunks,
		"memories":       memoryChunks,
	}
	if !status.LastIndexedAt.IsZero() {
		response["last_indexed_at"] = status.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if status.ErrorMessage != "" {
		response["error_message"] = status.ErrorMessage
	}
	return response, nil
}

// Helper functions

// statsResponse formats indexing statistics for a tool response.
func statsResponse(stats *indexer.Statistics) map[string]interface{} {
	response := map[string]interface{}{
		"files_processed":   stats.FilesProcessed,
		"files_skipped":     stats.FilesSkipped,
		"files_unsupported": stats.FilesUnsupported,
		"files_failed":      stats.FilesFailed,
		"chunks_created":    stats.ChunksCreated,
		"duration_ms":       stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		if len(stats.ErrorMessages) > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = len(stats.ErrorMessages)
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return response
}

// formatResults projects search results for a tool response.
func formatResults(results []types.SearchResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		entry := map[string]interface{}{
			"ref":        r.RefID,
			"text":       r.Text,
			"similarity": r.Similarity,
			"kind":       string(r.Kind),
		}
		if r.Kind == types.KindCode {
			entry["path"] = r.Location.Path
			entry["start_line"] = r.Location.StartLine
			entry["end_line"] = r.Location.EndLine
			entry["language"] = r.Language
		}
		out = append(out, entry)
	}
	return out
}

// newMCPError creates a properly formatted MCP error.
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that a path is an absolute, readable directory.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return errors.New("path must be absolute")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.New("path does not exist")
	}
	if err != nil {
		return errors.New("path is not readable")
	}
	if !info.IsDir() {
		return errors.New("path is not a directory")
	}
	return nil
}

// formatJSON formats a map as indented JSON.
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// requireString extracts a mandatory non-empty string parameter.
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// getBoolDefault extracts a boolean parameter with a default value.
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value.
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value.
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string-array parameter, tolerating the
// []interface{} shape JSON decoding produces.
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, v := range val {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
