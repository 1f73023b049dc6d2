package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/steven-d-pennington/kanban-context/internal/chunker"
	"github.com/steven-d-pennington/kanban-context/internal/embedder"
	"github.com/steven-d-pennington/kanban-context/internal/fingerprint"
	"github.com/steven-d-pennington/kanban-context/internal/store"
	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

const (
	// DefaultBatchSize is how many files one batch covers. Batches are
	// independent: a failure in one leaves the progress of the others intact.
	DefaultBatchSize = 20

	// DefaultConcurrency bounds how many files of a batch are processed at
	// once.
	DefaultConcurrency = 4

	// DefaultMaxFileSize skips files larger than this (bytes).
	DefaultMaxFileSize = 1 << 20

	embedMaxAttempts = 3
	embedBaseDelay   = 500 * time.Millisecond
)

// Config tunes an indexing run. The zero value uses defaults.
type Config struct {
	IncludePatterns []string
	ExcludePatterns []string
	BatchSize       int
	Concurrency     int
	MaxFileSize     int64
}

// Statistics summarizes an indexing run. FilesProcessed counts only files
// that produced at least one stored chunk.
type Statistics struct {
	FilesProcessed   int
	FilesSkipped     int
	FilesUnsupported int
	FilesFailed      int
	ChunksCreated    int
	Duration         time.Duration
	ErrorMessages    []string
}

// runStats accumulates one run's counters. Every run owns its own instance,
// so concurrent runs on different collections never see each other's numbers.
type runStats struct {
	mu    sync.Mutex
	stats Statistics
}

func (rs *runStats) skip() {
	rs.mu.Lock()
	rs.stats.FilesSkipped++
	rs.mu.Unlock()
}

func (rs *runStats) unsupported() {
	rs.mu.Lock()
	rs.stats.FilesUnsupported++
	rs.mu.Unlock()
}

func (rs *runStats) failure(path string, err error) {
	rs.mu.Lock()
	rs.stats.FilesFailed++
	rs.stats.ErrorMessages = append(rs.stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
	rs.mu.Unlock()
}

func (rs *runStats) processed(chunks int) {
	rs.mu.Lock()
	rs.stats.FilesProcessed++
	rs.stats.ChunksCreated += chunks
	rs.mu.Unlock()
}

func (rs *runStats) snapshot() Statistics {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.stats
}

// Indexer turns project files into embedded source units in the store.
type Indexer struct {
	store    store.Store
	embedder embedder.Client
	chunker  *chunker.Chunker
	log      zerolog.Logger
}

// New creates an indexer over the given store and embedding client.
func New(st store.Store, emb embedder.Client, log zerolog.Logger) *Indexer {
	return &Indexer{
		store:    st,
		embedder: emb,
		chunker:  chunker.New(),
		log:      log.With().Str("component", "indexer").Logger(),
	}
}

// IndexProject walks rootPath and indexes every eligible file into the
// collection. Files whose stored content hash matches are skipped; changed
// files have their old chunks deleted before the new ones are inserted, so a
// reader never sees a mix of old and new chunks for one item.
//
// Per-file failures are recorded and do not abort the run; a failure to walk
// the tree or to persist status does.
func (ix *Indexer) IndexProject(ctx context.Context, collectionKey, rootPath string, cfg Config) (*Statistics, error) {
	rs := &runStats{}
	started := time.Now()

	if err := ix.setState(ctx, collectionKey, types.StateIndexing, nil); err != nil {
		return nil, err
	}

	paths, err := walkFiles(rootPath, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		ix.failRun(ctx, collectionKey, err)
		return nil, err
	}

	ix.log.Info().Str("collection", collectionKey).Int("files", len(paths)).Msg("indexing started")

	if err := ix.processFiles(ctx, collectionKey, rootPath, paths, cfg, rs); err != nil {
		ix.failRun(ctx, collectionKey, err)
		return nil, err
	}

	return ix.finishRun(ctx, collectionKey, rs, started)
}

// IndexChanges applies an incremental update: deleted paths have their chunks
// removed, changed paths are re-indexed. The caller's change lists are
// trusted as-is; no walk or hash sweep happens here.
func (ix *Indexer) IndexChanges(ctx context.Context, collectionKey, rootPath string, changed, deleted []string, cfg Config) (*Statistics, error) {
	rs := &runStats{}
	started := time.Now()

	if err := ix.setState(ctx, collectionKey, types.StateIndexing, nil); err != nil {
		return nil, err
	}

	for _, path := range deleted {
		if err := ix.store.DeleteItem(ctx, collectionKey, path); err != nil {
			ix.failRun(ctx, collectionKey, err)
			return nil, err
		}
	}

	ix.log.Info().Str("collection", collectionKey).
		Int("changed", len(changed)).Int("deleted", len(deleted)).
		Msg("incremental update started")

	if err := ix.processFiles(ctx, collectionKey, rootPath, changed, cfg, rs); err != nil {
		ix.failRun(ctx, collectionKey, err)
		return nil, err
	}

	return ix.finishRun(ctx, collectionKey, rs, started)
}

// processFiles runs processFile over paths in independent batches, with
// bounded concurrency inside each batch. Progress made by completed batches
// survives a later batch failing.
func (ix *Indexer) processFiles(ctx context.Context, collectionKey, rootPath string, paths []string, cfg Config, rs *runStats) error {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, path := range paths[start:end] {
			path := path
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				ix.processFile(gctx, collectionKey, rootPath, path, cfg, rs)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	return nil
}

// processFile indexes a single file. All failure modes short of context
// cancellation are absorbed into the run statistics.
func (ix *Indexer) processFile(ctx context.Context, collectionKey, rootPath, path string, cfg Config, rs *runStats) {
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	abs := filepath.Join(rootPath, filepath.FromSlash(path))
	info, err := os.Stat(abs)
	if err != nil {
		// A changed-list entry for a vanished file is treated as a delete.
		if os.IsNotExist(err) {
			if derr := ix.store.DeleteItem(ctx, collectionKey, path); derr != nil {
				ix.recordFailure(rs, path, derr)
				return
			}
			rs.skip()
			return
		}
		ix.recordFailure(rs, path, err)
		return
	}
	if info.Size() > maxSize {
		rs.skip()
		return
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		ix.recordFailure(rs, path, err)
		return
	}

	hash := fingerprint.Sum(content)
	if err := ix.checkChanged(ctx, collectionKey, path, hash); err != nil {
		if errors.Is(err, types.ErrUnchanged) {
			rs.skip()
			return
		}
		ix.recordFailure(rs, path, err)
		return
	}

	chunks, err := ix.chunker.Chunk(path, string(content))
	if err != nil {
		if errors.Is(err, types.ErrUnsupportedContent) {
			rs.unsupported()
			return
		}
		ix.recordFailure(rs, path, err)
		return
	}

	// A file that chunks to nothing still invalidates its old chunks.
	if len(chunks) == 0 {
		if err := ix.store.DeleteItem(ctx, collectionKey, path); err != nil {
			ix.recordFailure(rs, path, err)
			return
		}
		rs.skip()
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var vectors [][]float32
	err = retryWithBackoff(ctx, embedMaxAttempts, embedBaseDelay, func() error {
		var embedErr error
		vectors, embedErr = ix.embedder.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err != nil {
		ix.recordFailure(rs, path, fmt.Errorf("embedding failed: %w", err))
		return
	}

	units := make([]*types.SourceUnit, len(chunks))
	for i, c := range chunks {
		units[i] = &types.SourceUnit{
			CollectionKey: collectionKey,
			ItemPath:      path,
			ChunkIndex:    i,
			Text:          c.Text,
			StartLine:     c.StartLine,
			EndLine:       c.EndLine,
			Language:      c.Language,
			ContentHash:   hash,
			Embedding:     vectors[i],
			Kind:          types.KindCode,
		}
	}

	// Delete-then-insert keeps chunk indices dense when a file shrinks.
	if err := ix.store.DeleteItem(ctx, collectionKey, path); err != nil {
		ix.recordFailure(rs, path, err)
		return
	}
	if err := ix.store.UpsertChunks(ctx, units); err != nil {
		ix.recordFailure(rs, path, err)
		return
	}

	rs.processed(len(units))
	ix.log.Debug().Str("path", path).Int("chunks", len(units)).Msg("file indexed")
}

// checkChanged compares the file's fingerprint against the stored hash. It
// returns types.ErrUnchanged when they match; an item with no stored hash
// counts as changed.
func (ix *Indexer) checkChanged(ctx context.Context, collectionKey, path, hash string) error {
	stored, err := ix.store.GetItemHash(ctx, collectionKey, path)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if stored == hash {
		return types.ErrUnchanged
	}
	return nil
}

func (ix *Indexer) recordFailure(rs *runStats, path string, err error) {
	ix.log.Warn().Str("path", path).Err(err).Msg("file failed")
	rs.failure(path, err)
}

func (ix *Indexer) setState(ctx context.Context, collectionKey string, state types.IndexState, stats *Statistics) error {
	status := &types.IndexStatus{
		CollectionKey: collectionKey,
		State:         state,
	}
	if stats != nil {
		status.FilesIndexed = stats.FilesProcessed
		status.ChunksCreated = stats.ChunksCreated
		status.LastIndexedAt = time.Now().UTC()
	}
	return ix.store.UpsertStatus(ctx, status)
}

func (ix *Indexer) failRun(ctx context.Context, collectionKey string, runErr error) {
	status := &types.IndexStatus{
		CollectionKey: collectionKey,
		State:         types.StateError,
		ErrorMessage:  runErr.Error(),
	}
	if err := ix.store.UpsertStatus(ctx, status); err != nil {
		ix.log.Error().Err(err).Msg("failed to record error status")
	}
}

func (ix *Indexer) finishRun(ctx context.Context, collectionKey string, rs *runStats, started time.Time) (*Statistics, error) {
	stats := rs.snapshot()
	stats.Duration = time.Since(started)

	if err := ix.setState(ctx, collectionKey, types.StateComplete, &stats); err != nil {
		return nil, err
	}

	ix.log.Info().Str("collection", collectionKey).
		Int("processed", stats.FilesProcessed).
		Int("skipped", stats.FilesSkipped).
		Int("failed", stats.FilesFailed).
		Int("chunks", stats.ChunksCreated).
		Dur("duration", stats.Duration).
		Msg("indexing finished")

	return &stats, nil
}
