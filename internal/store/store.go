package store

import (
	"context"

	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

// QueryOptions narrow a similarity query.
//
// Languages and PathPrefixes are applied after ranking is computed over the
// full eligible set, so a narrow filter never reduces recall below what an
// unfiltered query with the same limit would have found.
type QueryOptions struct {
	Limit         int
	Threshold     float64
	Languages     []string
	PathPrefixes  []string
	Kind          types.ResultKind // empty matches both kinds
	IncludeGlobal bool             // also match globally visible memory units
}

// Store is the index store adapter: the persistence boundary for source
// units, index status, and memory records.
type Store interface {
	// Chunk operations. Records are keyed by (collection, item, chunk index);
	// inserting a duplicate key overwrites in place.
	UpsertChunks(ctx context.Context, units []*types.SourceUnit) error
	DeleteItem(ctx context.Context, collectionKey, itemPath string) error
	DeleteCollection(ctx context.Context, collectionKey string) error
	GetItemHash(ctx context.Context, collectionKey, itemPath string) (string, error)
	CountChunks(ctx context.Context, collectionKey string) (int, error)

	// Query returns up to Limit results ranked by cosine similarity with
	// similarity >= Threshold, ties broken by lower chunk index then
	// lexicographic item path.
	Query(ctx context.Context, collectionKey string, queryVector []float32, opts QueryOptions) ([]types.SearchResult, error)

	// Status operations
	UpsertStatus(ctx context.Context, status *types.IndexStatus) error
	GetStatus(ctx context.Context, collectionKey string) (*types.IndexStatus, error)

	// Memory operations
	UpsertMemory(ctx context.Context, rec *types.MemoryRecord) error
	GetMemory(ctx context.Context, id string) (*types.MemoryRecord, error)
	ListMemories(ctx context.Context, collectionKey string, includeGlobal bool) ([]*types.MemoryRecord, error)
	DeactivateMemory(ctx context.Context, id string) error

	// Database operations
	Close() error
}
