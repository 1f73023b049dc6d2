package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/steven-d-pennington/kanban-context/internal/embedder"
	"github.com/steven-d-pennington/kanban-context/internal/fingerprint"
	"github.com/steven-d-pennington/kanban-context/internal/store"
	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

// Service manages free-text memory notes and their embeddings.
type Service struct {
	store    store.Store
	embedder embedder.Client
	log      zerolog.Logger
}

// New creates a memory service.
func New(st store.Store, emb embedder.Client, log zerolog.Logger) *Service {
	return &Service{
		store:    st,
		embedder: emb,
		log:      log.With().Str("component", "memory").Logger(),
	}
}

// Save creates or updates a memory note. A new note gets a generated ID, a
// relevance score of 1.0, and is active. The embedding is regenerated from
// title and content on every save, so an edited note is re-embedded before
// it becomes durable.
func (s *Service) Save(ctx context.Context, rec *types.MemoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RelevanceScore == 0 {
		rec.RelevanceScore = 1.0
	}
	rec.IsActive = true

	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid memory: %w", err)
	}

	text := rec.EmbeddingText()
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed memory: %w", err)
	}

	// The embedding chunk lands first; the record only becomes durable once
	// its fresh embedding is in place, so a failed save never leaves an
	// edited record searchable by its old vector.
	unit := &types.SourceUnit{
		CollectionKey: rec.CollectionKey,
		ItemPath:      rec.ID,
		ChunkIndex:    0,
		Text:          text,
		StartLine:     1,
		EndLine:       1,
		ContentHash:   fingerprint.SumString(text),
		Embedding:     vector,
		Kind:          types.KindMemory,
		IsGlobal:      rec.IsGlobal,
	}
	if err := s.store.UpsertChunks(ctx, []*types.SourceUnit{unit}); err != nil {
		return fmt.Errorf("failed to store memory embedding: %w", err)
	}

	if err := s.store.UpsertMemory(ctx, rec); err != nil {
		return err
	}

	s.log.Debug().Str("id", rec.ID).Str("type", string(rec.MemoryType)).Msg("memory saved")
	return nil
}

// Get returns a memory note by ID.
func (s *Service) Get(ctx context.Context, id string) (*types.MemoryRecord, error) {
	return s.store.GetMemory(ctx, id)
}

// List returns the collection's active notes, newest first.
func (s *Service) List(ctx context.Context, collectionKey string, includeGlobal bool) ([]*types.MemoryRecord, error) {
	return s.store.ListMemories(ctx, collectionKey, includeGlobal)
}

// Deactivate soft-deletes a note and removes its embedding so it stops
// appearing in searches. The record itself survives for audit.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	rec, err := s.store.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeactivateMemory(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, rec.CollectionKey, id); err != nil {
		return fmt.Errorf("failed to remove memory embedding: %w", err)
	}
	s.log.Debug().Str("id", id).Msg("memory deactivated")
	return nil
}
