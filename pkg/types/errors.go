package types

import "errors"

// Skip signals and domain errors shared across the index core.
var (
	// ErrUnsupportedContent indicates the chunker declined a file (binary,
	// minified, or excluded extension). A skip signal, not a failure.
	ErrUnsupportedContent = errors.New("unsupported content")

	// ErrUnchanged indicates an item's fingerprint matches the stored hash.
	// A skip signal, not a failure.
	ErrUnchanged = errors.New("content unchanged")

	// ErrNotFound is returned when a requested entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// Search result validation errors
	ErrInvalidRefID      = errors.New("invalid result reference")
	ErrInvalidSimilarity = errors.New("similarity must be between 0 and 1")
	ErrEmptyContent      = errors.New("content cannot be empty")
)
