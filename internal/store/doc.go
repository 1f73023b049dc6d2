// Package store persists source units, index status, and memory records in
// SQLite and serves similarity queries over them.
//
// Two drivers are supported through build tags: mattn/go-sqlite3 when cgo is
// available, modernc.org/sqlite otherwise. Build with -tags purego to force
// the pure-Go driver.
//
// Query loads all eligible chunk rows, scores them by cosine similarity in
// Go, and applies language and path filters only after the ranking is
// computed, so filters narrow a ranked set rather than re-ranking a
// pre-filtered one. Embeddings are stored as little-endian float32 blobs;
// the codec lives in vector.go and nowhere else.
package store
