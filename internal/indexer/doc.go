// Package indexer walks a project tree, chunks and embeds its files, and
// writes the resulting source units to the store.
//
// Change detection is by whole-file content hash: an unchanged file is
// skipped without touching the store, a changed file has its old chunks
// deleted and new ones inserted in that order. Per-file failures are
// absorbed into the run's statistics so one bad file never aborts a run.
//
// RunGuard serializes runs per collection with a try-lock; callers that lose
// the race are refused, not queued.
package indexer
