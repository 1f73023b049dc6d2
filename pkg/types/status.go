package types

import "time"

// IndexState is the lifecycle state of a collection's index.
type IndexState string

const (
	StateIdle     IndexState = "idle"
	StateIndexing IndexState = "indexing"
	StateComplete IndexState = "complete"
	StateError    IndexState = "error"
)

// IndexStatus tracks the most recent indexing run for one collection. The
// indexer upserts it at the start of a run and finalizes it at the end; it is
// never deleted by the indexer itself.
type IndexStatus struct {
	CollectionKey string
	State         IndexState
	FilesIndexed  int
	ChunksCreated int
	LastIndexedAt time.Time
	ErrorMessage  string
	UpdatedAt     time.Time
}
