package types

import (
	"errors"
	"time"
)

// MemoryType categorizes a free-text memory note.
type MemoryType string

const (
	MemoryDecision     MemoryType = "decision"
	MemoryPattern      MemoryType = "pattern"
	MemoryConvention   MemoryType = "convention"
	MemoryLesson       MemoryType = "lesson"
	MemoryArchitecture MemoryType = "architecture"
	MemoryWarning      MemoryType = "warning"
	MemoryPreference   MemoryType = "preference"
)

// MemoryRecord is a free-text note attached to a collection. Its embedding is
// generated from title + content at save time; any edit regenerates the
// embedding before the record is considered durable.
type MemoryRecord struct {
	ID             string
	CollectionKey  string
	MemoryType     MemoryType
	Title          string
	Content        string
	IsGlobal       bool   // visible across all collections
	SourceItemID   string // optional back-reference to a work item
	RelevanceScore float64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EmbeddingText is the exact text a memory is embedded from.
func (m *MemoryRecord) EmbeddingText() string {
	return m.Title + "\n\n" + m.Content
}

// ValidateType checks the memory type is one of the known values.
func (m *MemoryRecord) ValidateType() error {
	switch m.MemoryType {
	case MemoryDecision, MemoryPattern, MemoryConvention, MemoryLesson,
		MemoryArchitecture, MemoryWarning, MemoryPreference:
		return nil
	default:
		return errors.New("invalid memory type")
	}
}

// Validate performs comprehensive validation of the record.
func (m *MemoryRecord) Validate() error {
	if m.CollectionKey == "" {
		return errors.New("collection key is required")
	}
	if m.Title == "" {
		return errors.New("memory title is required")
	}
	if m.Content == "" {
		return errors.New("memory content is required")
	}
	if err := m.ValidateType(); err != nil {
		return err
	}
	if m.RelevanceScore < 0 {
		return errors.New("relevance score must be >= 0")
	}
	return nil
}
