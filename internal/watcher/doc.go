// Package watcher turns raw filesystem events into debounced change batches
// suitable for incremental indexing. Paths are reported relative to the
// watched root so batches feed straight into the indexer's change lists.
package watcher
