package retriever

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/steven-d-pennington/kanban-context/internal/embedder"
	"github.com/steven-d-pennington/kanban-context/internal/store"
	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

const (
	// DefaultLimit is used when the caller asks for no particular count.
	DefaultLimit = 10

	// MaxLimit caps any request; larger asks are clamped, not rejected.
	MaxLimit = 50

	// overFetchFactor widens the store query so extension filtering applied
	// here still leaves enough results to fill the limit.
	overFetchFactor = 2
)

// Options narrow and bound a search.
type Options struct {
	Limit         int
	Threshold     float64
	Languages     []string
	Extensions    []string // e.g. ".go", with or without the dot
	PathPrefixes  []string
	Kind          types.ResultKind
	IncludeGlobal bool
}

// Retriever runs semantic searches against a collection.
type Retriever struct {
	store    store.Store
	embedder embedder.Client
	log      zerolog.Logger
}

// New creates a retriever over the given store and embedding client.
func New(st store.Store, emb embedder.Client, log zerolog.Logger) *Retriever {
	return &Retriever{
		store:    st,
		embedder: emb,
		log:      log.With().Str("component", "retriever").Logger(),
	}
}

// Search embeds the query text once and ranks the collection against it.
func (r *Retriever) Search(ctx context.Context, collectionKey, query string, opts Options) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return r.SearchVector(ctx, collectionKey, vector, opts)
}

// SearchVector ranks the collection against an already-computed vector.
func (r *Retriever) SearchVector(ctx context.Context, collectionKey string, vector []float32, opts Options) ([]types.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	results, err := r.store.Query(ctx, collectionKey, vector, store.QueryOptions{
		Limit:         limit * overFetchFactor,
		Threshold:     opts.Threshold,
		Languages:     opts.Languages,
		PathPrefixes:  normalizePrefixes(opts.PathPrefixes),
		Kind:          opts.Kind,
		IncludeGlobal: opts.IncludeGlobal,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query store: %w", err)
	}

	if len(opts.Extensions) > 0 {
		filtered := results[:0]
		for _, res := range results {
			if matchExtension(res.Location.Path, opts.Extensions) {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}

	if len(results) > limit {
		results = results[:limit]
	}

	r.log.Debug().Str("collection", collectionKey).Int("results", len(results)).Msg("search complete")
	return results, nil
}

// normalizePrefixes converts backslash separators so Windows-style prefixes
// match the store's forward-slash paths.
func normalizePrefixes(prefixes []string) []string {
	if len(prefixes) == 0 {
		return nil
	}
	out := make([]string, len(prefixes))
	for i, p := range prefixes {
		out[i] = strings.ReplaceAll(p, "\\", "/")
	}
	return out
}

// matchExtension compares the path's extension against the filter,
// tolerating a missing leading dot.
func matchExtension(p string, extensions []string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == e {
			return true
		}
	}
	return false
}
