// Package chunker divides source files into bounded, line-addressable chunks
// for embedding and search.
//
// Chunks break at blank lines and top-level declaration starts so each chunk
// is a coherent unit, subject to a minimum size (no degenerate one-line
// chunks) and a maximum size (oversized units split at the nearest line
// boundary before the limit).
//
//	c := chunker.New()
//	chunks, err := c.Chunk("internal/api/server.go", content)
//	if errors.Is(err, types.ErrUnsupportedContent) {
//	    // binary, minified, or unrecognized extension: skip, not a failure
//	}
//
// Language is inferred from the file extension. Chunk indices are dense and
// 0-based in file order (the slice position); re-chunking a file always
// regenerates the full sequence, so there is no stable chunk identity across
// edits. An empty file yields an empty slice.
package chunker
