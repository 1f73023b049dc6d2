package mcp

import (
	"context"
	"time"

	"github.com/steven-d-pennington/kanban-context/internal/indexer"
	"github.com/steven-d-pennington/kanban-context/internal/watcher"
)

// WatchProject keeps a project's index current by feeding debounced
// filesystem change batches into incremental updates. It blocks until the
// context is canceled. A batch that arrives while a manual indexing run
// holds the collection is held and merged with later batches, then retried
// once the guard frees; no change is dropped.
func (s *Server) WatchProject(ctx context.Context, projectID, rootPath string, debounce time.Duration) error {
	w, err := watcher.New(rootPath, debounce, s.log)
	if err != nil {
		return err
	}
	defer w.Close()

	go w.Run(ctx)

	if debounce <= 0 {
		debounce = watcher.DefaultDebounce
	}

	collection := codeCollection(projectID)
	var pending watcher.Batch

	retry := time.NewTimer(debounce)
	if !retry.Stop() {
		<-retry.C
	}
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case batch := <-w.Batches():
			pending = watcher.Merge(pending, batch)

		case <-retry.C:
		}

		if pending.IsEmpty() {
			continue
		}

		if !s.guard.Acquire(collection) {
			s.log.Debug().Str("project", projectID).Msg("index busy, holding change batch")
			retry.Reset(debounce)
			continue
		}
		batch := pending
		pending = watcher.Batch{}
		stats, err := s.indexer.IndexChanges(ctx, collection, rootPath, batch.Changed, batch.Deleted, indexer.Config{})
		s.guard.Release(collection)
		if err != nil {
			// Keep the batch so the next attempt covers these files too.
			pending = watcher.Merge(batch, pending)
			s.log.Error().Err(err).Str("project", projectID).Msg("incremental update failed")
			retry.Reset(debounce)
			continue
		}
		s.log.Info().Str("project", projectID).
			Int("processed", stats.FilesProcessed).
			Int("deleted", len(batch.Deleted)).
			Msg("watch update applied")
	}
}
