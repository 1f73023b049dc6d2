package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steven-d-pennington/kanban-context/internal/embedder"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv(embedder.EnvProvider, embedder.ProviderLocal)

	s, err := NewServer(Config{DBPath: t.TempDir(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	content := `package main

func handleLogin() {
	validateSession()
	refreshToken()
	recordAudit()
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "auth.go"), []byte(content), 0o644))
	return root
}

func TestNewServerComponents(t *testing.T) {
	s := newTestServer(t)

	assert.NotNil(t, s.indexer)
	assert.NotNil(t, s.retriever)
	assert.NotNil(t, s.memories)
	assert.NotNil(t, s.guard)
	// No board database configured, so recall is off.
	assert.Nil(t, s.recaller)
}

func TestIndexThenSearch(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	root := writeProject(t)

	response, err := s.indexProject(ctx, map[string]interface{}{
		"project_id": "p1",
		"path":       root,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, response["files_processed"])

	results, err := s.searchCode(ctx, map[string]interface{}{
		"project_id": "p1",
		"query":      "session token refresh",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, results["count"])
}

func TestIndexProjectInvalidPath(t *testing.T) {
	s := newTestServer(t)

	_, err := s.indexProject(context.Background(), map[string]interface{}{
		"project_id": "p1",
		"path":       "relative/path",
	})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestIndexProjectGuardRefusesConcurrentRun(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)

	// Simulate a run in flight.
	require.True(t, s.guard.Acquire(codeCollection("p1")))
	defer s.guard.Release(codeCollection("p1"))

	_, err := s.indexProject(context.Background(), map[string]interface{}{
		"project_id": "p1",
		"path":       root,
	})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeIndexingInProgress, mcpErr.Code)
}

func TestUpdateIndexRequiresChanges(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)

	_, err := s.updateIndex(context.Background(), map[string]interface{}{
		"project_id": "p1",
		"path":       root,
	})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestUpdateIndexAppliesDeletes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	root := writeProject(t)

	_, err := s.indexProject(ctx, map[string]interface{}{
		"project_id": "p1",
		"path":       root,
	})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "auth.go")))
	response, err := s.updateIndex(ctx, map[string]interface{}{
		"project_id": "p1",
		"path":       root,
		"deleted":    []interface{}{"auth.go"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, response["deleted"])

	status, err := s.getStatus(ctx, map[string]interface{}{"project_id": "p1"})
	require.NoError(t, err)
	assert.Equal(t, 0, status["chunks_stored"])
}

func TestSearchCodeLimitValidation(t *testing.T) {
	s := newTestServer(t)

	_, err := s.searchCode(context.Background(), map[string]interface{}{
		"project_id": "p1",
		"query":      "anything",
		"limit":      float64(500),
	})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestSaveSearchDeleteMemory(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	saved, err := s.saveMemory(ctx, map[string]interface{}{
		"project_id":  "p1",
		"memory_type": "decision",
		"title":       "Keep the index in SQLite",
		"content":     "One writer, no extra infrastructure to run.",
	})
	require.NoError(t, err)
	id, ok := saved["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	results, err := s.searchMemories(ctx, map[string]interface{}{
		"project_id": "p1",
		"query":      "database choice",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, results["count"])

	_, err = s.deleteMemory(ctx, map[string]interface{}{"id": id})
	require.NoError(t, err)

	results, err = s.searchMemories(ctx, map[string]interface{}{
		"project_id": "p1",
		"query":      "database choice",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, results["count"])
}

func TestDeleteMemoryNotFound(t *testing.T) {
	s := newTestServer(t)

	_, err := s.deleteMemory(context.Background(), map[string]interface{}{"id": "missing"})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeNotFound, mcpErr.Code)
}

func TestRecallContextUnavailableWithoutBoard(t *testing.T) {
	s := newTestServer(t)

	_, err := s.recallContext(context.Background(), map[string]interface{}{
		"project_id":   "p1",
		"work_item_id": "item-1",
	})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeRecallUnavailable, mcpErr.Code)
}

func TestWatchProjectAppliesHeldBatchAfterGuardFrees(t *testing.T) {
	s := newTestServer(t)
	root := t.TempDir()
	collection := codeCollection("pw")

	// Simulate a manual indexing run in flight.
	require.True(t, s.guard.Acquire(collection))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.WatchProject(ctx, "pw", root, 50*time.Millisecond)
	}()

	// Let the watcher arm, then change a file while the collection is busy.
	time.Sleep(100 * time.Millisecond)
	content := "package main\n\nfunc heldChange() {\n\tapplyWhenFree()\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "held.go"), []byte(content), 0o644))

	// The batch lands while the guard is held; it must not be dropped.
	time.Sleep(200 * time.Millisecond)
	s.guard.Release(collection)

	require.Eventually(t, func() bool {
		count, err := s.store.CountChunks(context.Background(), collection)
		return err == nil && count > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	<-done
}

func TestGetStatusNeverIndexed(t *testing.T) {
	s := newTestServer(t)

	status, err := s.getStatus(context.Background(), map[string]interface{}{"project_id": "fresh"})
	require.NoError(t, err)
	assert.Equal(t, "idle", status["state"])
	assert.Equal(t, 0, status["chunks_stored"])
}

func TestParamHelpers(t *testing.T) {
	args := map[string]interface{}{
		"flag":    true,
		"num":     float64(7),
		"text":    "value",
		"listAny": []interface{}{"a", "b", 3},
	}

	assert.True(t, getBoolDefault(args, "flag", false))
	assert.False(t, getBoolDefault(args, "missing", false))
	assert.Equal(t, 7, getIntDefault(args, "num", 1))
	assert.Equal(t, 1, getIntDefault(args, "missing", 1))
	assert.Equal(t, "value", getStringDefault(args, "text", "d"))
	assert.Equal(t, []string{"a", "b"}, getStringSlice(args, "listAny"))
	assert.Nil(t, getStringSlice(args, "missing"))

	_, err := requireString(args, "absent")
	require.Error(t, err)
	val, err := requireString(args, "text")
	require.NoError(t, err)
	assert.Equal(t, "value", val)
}
