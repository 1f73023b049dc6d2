package types

import (
	"errors"
	"fmt"
)

// SourceUnit is one embedded chunk of a source file or memory note. Units are
// keyed by (CollectionKey, ItemPath, ChunkIndex); every unit of an item
// carries the item's content hash, so a changed item invalidates all of its
// chunks together.
type SourceUnit struct {
	// Key
	CollectionKey string
	ItemPath      string // file path relative to the project root, or memory ID
	ChunkIndex    int    // dense, 0-based within ItemPath

	// Content
	Text        string
	StartLine   int
	EndLine     int
	Language    string // empty when undetected
	ContentHash string // hash of the whole source item, shared by its chunks

	// Embedding
	Embedding []float32

	// Classification
	Kind     ResultKind
	IsGlobal bool // memory units only: visible across all collections
}

// Validate checks the unit is well-formed before it reaches the store.
func (u *SourceUnit) Validate() error {
	if u.CollectionKey == "" {
		return errors.New("collection key is required")
	}
	if u.ItemPath == "" {
		return errors.New("item path is required")
	}
	if u.ChunkIndex < 0 {
		return errors.New("chunk index must be >= 0")
	}
	if u.Text == "" {
		return errors.New("unit text cannot be empty")
	}
	if u.StartLine <= 0 || u.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if u.StartLine > u.EndLine {
		return fmt.Errorf("start line %d after end line %d", u.StartLine, u.EndLine)
	}
	if u.ContentHash == "" {
		return errors.New("content hash must be computed")
	}
	if len(u.Embedding) == 0 {
		return errors.New("embedding is required")
	}
	return nil
}

// RefID is the stable reference used in search results.
func (u *SourceUnit) RefID() string {
	if u.Kind == KindMemory {
		return u.ItemPath
	}
	return fmt.Sprintf("%s#%d", u.ItemPath, u.ChunkIndex)
}
