package types

// ResultKind distinguishes code chunks from memory notes in search results.
type ResultKind string

const (
	KindCode   ResultKind = "code"
	KindMemory ResultKind = "memory"
)

// Location identifies where a result's text lives in its source item.
type Location struct {
	Path      string
	StartLine int
	EndLine   int
}

// SearchResult is a read-only projection of a similarity match. It is never
// persisted.
type SearchResult struct {
	RefID      string // "path#chunkIndex" for code, memory ID for memories
	Text       string
	Location   Location
	Similarity float64 // cosine similarity in [0, 1]
	Kind       ResultKind
	Language   string
}

// Validate checks the result satisfies the projection's invariants.
func (r *SearchResult) Validate() error {
	if r.RefID == "" {
		return ErrInvalidRefID
	}
	if r.Similarity < 0 || r.Similarity > 1 {
		return ErrInvalidSimilarity
	}
	if r.Text == "" {
		return ErrEmptyContent
	}
	return nil
}
