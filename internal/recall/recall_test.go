package recall

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steven-d-pennington/kanban-context/internal/retriever"
	"github.com/steven-d-pennington/kanban-context/internal/store"
	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int   { return len(s.vector) }
func (s *stubEmbedder) Provider() string { return "stub" }
func (s *stubEmbedder) Close() error     { return nil }

type stubReader struct {
	items   map[string]*types.WorkItem
	recent  []*types.WorkItem
	listErr error
}

func (r *stubReader) GetWorkItem(ctx context.Context, id string) (*types.WorkItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return item, nil
}

func (r *stubReader) ListRecentItems(ctx context.Context, projectID, excludeID string, statuses []string, limit int) ([]*types.WorkItem, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*types.WorkItem
	for _, item := range r.recent {
		if item.ID != excludeID {
			out = append(out, item)
		}
	}
	return out, nil
}

// failingStore wraps a real store and fails queries for one result kind.
type failingStore struct {
	store.Store
	failKind types.ResultKind
}

func (f *failingStore) Query(ctx context.Context, collectionKey string, vector []float32, opts store.QueryOptions) ([]types.SearchResult, error) {
	if opts.Kind == f.failKind {
		return nil, errors.New("store unavailable")
	}
	return f.Store.Query(ctx, collectionKey, vector, opts)
}

func seedUnit(t *testing.T, st store.Store, collection, path string, kind types.ResultKind, embedding []float32) {
	t.Helper()
	err := st.UpsertChunks(context.Background(), []*types.SourceUnit{{
		CollectionKey: collection,
		ItemPath:      path,
		ChunkIndex:    0,
		Text:          "contents of " + path,
		StartLine:     1,
		EndLine:       5,
		ContentHash:   "hash-" + path,
		Embedding:     embedding,
		Kind:          kind,
	}})
	require.NoError(t, err)
}

func setupTest(t *testing.T, st store.Store) (*Aggregator, *stubEmbedder, *stubReader) {
	t.Helper()
	emb := &stubEmbedder{vector: []float32{1, 0, 0}}
	reader := &stubReader{
		items: map[string]*types.WorkItem{
			"item-1": {
				ID:          "item-1",
				ProjectID:   "proj-1",
				Title:       "Fix authentication bug",
				Description: "Users report session timeouts during login.",
				Status:      types.StatusInProgress,
				CreatedAt:   time.Now(),
			},
		},
	}
	r := retriever.New(st, emb, zerolog.Nop())
	agg := New(r, emb, reader, zerolog.Nop())
	return agg, emb, reader
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRecallAssemblesAllBranches(t *testing.T) {
	st := newTestStore(t)
	agg, emb, reader := setupTest(t, st)

	seedUnit(t, st, "proj-1:code", "auth/session.go", types.KindCode, []float32{1, 0, 0})
	seedUnit(t, st, "proj-1:memories", "mem-1", types.KindMemory, []float32{1, 0.2, 0})
	reader.recent = []*types.WorkItem{
		{ID: "item-2", ProjectID: "proj-1", Title: "Improve authentication logging",
			Status: types.StatusDone, CreatedAt: time.Now().Add(-24 * time.Hour)},
	}

	result, err := agg.Recall(context.Background(), Request{
		WorkItemID:       "item-1",
		CodeCollection:   "proj-1:code",
		MemoryCollection: "proj-1:memories",
	})
	require.NoError(t, err)

	assert.Equal(t, "item-1", result.Item.ID)
	require.Len(t, result.CodeSnippets, 1)
	assert.Equal(t, "auth/session.go#0", result.CodeSnippets[0].RefID)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, "mem-1", result.Memories[0].RefID)
	require.Len(t, result.RelatedItems, 1)
	assert.Equal(t, "item-2", result.RelatedItems[0].Item.ID)

	// The optimization invariant: one embedding call for the whole recall.
	assert.Equal(t, 1, emb.calls)
}

func TestRecallMissingWorkItem(t *testing.T) {
	st := newTestStore(t)
	agg, _, _ := setupTest(t, st)

	_, err := agg.Recall(context.Background(), Request{WorkItemID: "missing"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRecallEmbedFailureKeepsRelated(t *testing.T) {
	st := newTestStore(t)
	agg, emb, reader := setupTest(t, st)

	emb.err = errors.New("provider down")
	reader.recent = []*types.WorkItem{
		{ID: "item-2", ProjectID: "proj-1", Title: "Fix authentication race",
			Status: types.StatusReview, CreatedAt: time.Now()},
	}

	result, err := agg.Recall(context.Background(), Request{
		WorkItemID:       "item-1",
		CodeCollection:   "proj-1:code",
		MemoryCollection: "proj-1:memories",
	})
	require.NoError(t, err)

	assert.Empty(t, result.CodeSnippets)
	assert.Empty(t, result.Memories)
	assert.Len(t, result.RelatedItems, 1)
}

func TestRecallMemoryBranchFailureIsolated(t *testing.T) {
	st := newTestStore(t)
	wrapped := &failingStore{Store: st, failKind: types.KindMemory}

	emb := &stubEmbedder{vector: []float32{1, 0, 0}}
	reader := &stubReader{
		items: map[string]*types.WorkItem{
			"item-1": {ID: "item-1", ProjectID: "proj-1",
				Title: "Fix authentication bug", CreatedAt: time.Now()},
		},
		recent: []*types.WorkItem{
			{ID: "item-2", ProjectID: "proj-1", Title: "Tighten authentication checks",
				Status: types.StatusDone, CreatedAt: time.Now()},
		},
	}
	r := retriever.New(wrapped, emb, zerolog.Nop())
	agg := New(r, emb, reader, zerolog.Nop())

	seedUnit(t, st, "proj-1:code", "auth/session.go", types.KindCode, []float32{1, 0, 0})

	result, err := agg.Recall(context.Background(), Request{
		WorkItemID:       "item-1",
		CodeCollection:   "proj-1:code",
		MemoryCollection: "proj-1:memories",
	})
	require.NoError(t, err)

	assert.NotNil(t, result.Memories)
	assert.Empty(t, result.Memories)
	assert.Len(t, result.CodeSnippets, 1)
	assert.Len(t, result.RelatedItems, 1)
}

func TestQueryTextTruncatesOnRuneBoundary(t *testing.T) {
	item := &types.WorkItem{
		Title:       "résumé",
		Description: "short description",
	}
	assert.Equal(t, "résumé\n\nshort description", queryText(item))

	// The one-byte prefix puts every two-byte rune off the cut point, so a
	// naive byte slice would split one in half.
	long := &types.WorkItem{Title: "a" + strings.Repeat("é", maxQueryChars)}
	got := queryText(long)
	assert.LessOrEqual(t, len(got), maxQueryChars)
	assert.True(t, utf8.ValidString(got))
}

func TestRecallRelatedFailureIsolated(t *testing.T) {
	st := newTestStore(t)
	agg, _, reader := setupTest(t, st)
	reader.listErr = errors.New("board unavailable")

	seedUnit(t, st, "proj-1:code", "auth/session.go", types.KindCode, []float32{1, 0, 0})

	result, err := agg.Recall(context.Background(), Request{
		WorkItemID:       "item-1",
		CodeCollection:   "proj-1:code",
		MemoryCollection: "proj-1:memories",
	})
	require.NoError(t, err)

	assert.NotNil(t, result.RelatedItems)
	assert.Empty(t, result.RelatedItems)
	assert.Len(t, result.CodeSnippets, 1)
}
