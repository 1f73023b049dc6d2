// Package types provides shared type definitions for the kanban-context
// semantic index.
//
// This package defines the domain model used across the index components:
// source units (embedded chunks), index status rows, memory records, work
// items, and search result projections.
//
// # Core Types
//
// SourceUnit is the unit of embedding and retrieval, keyed by
// (CollectionKey, ItemPath, ChunkIndex):
//
//	unit := &types.SourceUnit{
//	    CollectionKey: "project:42:code",
//	    ItemPath:      "internal/api/server.go",
//	    ChunkIndex:    0,
//	    Text:          chunkText,
//	    ContentHash:   fileHash,
//	}
//
// All units sharing an ItemPath share the same ContentHash; a changed item
// invalidates all of its chunks atomically (delete then reinsert, never a
// partial update).
//
// MemoryRecord is a free-text note embedded from title + content exactly once
// per save; an edit regenerates the embedding before the record is durable.
//
// SearchResult is a read-only projection and is never persisted. Similarity
// is cosine similarity normalized to [0, 1].
//
// # Skip Signals
//
// ErrUnsupportedContent and ErrUnchanged are skip signals rather than
// failures: the indexer counts them separately and continues.
package types
