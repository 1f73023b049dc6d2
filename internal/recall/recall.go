package recall

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/steven-d-pennington/kanban-context/internal/embedder"
	"github.com/steven-d-pennington/kanban-context/internal/retriever"
	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

// DefaultLimit bounds each recall section when the request leaves it unset.
const DefaultLimit = 5

// relatedCandidateLimit bounds how many recent items are fetched for scoring.
const relatedCandidateLimit = 50

// maxQueryChars truncates the query text to respect provider input limits.
const maxQueryChars = 8000

// relatedStatuses are the work item states eligible as related items.
var relatedStatuses = []string{types.StatusDone, types.StatusReview, types.StatusInProgress}

// WorkItemReader is the read-only view of the kanban board the aggregator
// needs.
type WorkItemReader interface {
	GetWorkItem(ctx context.Context, id string) (*types.WorkItem, error)
	ListRecentItems(ctx context.Context, projectID, excludeID string, statuses []string, limit int) ([]*types.WorkItem, error)
}

// Request identifies the work item to recall context for and the collections
// to search. Zero limits fall back to DefaultLimit.
type Request struct {
	WorkItemID       string
	CodeCollection   string
	MemoryCollection string
	CodeLimit        int
	MemoryLimit      int
	RelatedLimit     int
	IncludeGlobal    bool
}

// Result is the assembled context. All three slices are always non-nil; a
// failed branch contributes an empty slice, never an error.
type Result struct {
	Item         *types.WorkItem
	CodeSnippets []types.SearchResult
	Memories     []types.SearchResult
	RelatedItems []RelatedItem
}

// Aggregator gathers code, memories, and related work items for a work item
// in one call.
type Aggregator struct {
	retriever *retriever.Retriever
	embedder  embedder.Client
	items     WorkItemReader
	log       zerolog.Logger
	now       func() time.Time
}

// New creates an aggregator.
func New(r *retriever.Retriever, emb embedder.Client, items WorkItemReader, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		retriever: r,
		embedder:  emb,
		items:     items,
		log:       log.With().Str("component", "recall").Logger(),
		now:       time.Now,
	}
}

// Recall looks up the work item, embeds its text once, and fans out three
// searches concurrently. A missing work item is the only error; every other
// failure degrades its own branch to empty and leaves the rest intact.
func (a *Aggregator) Recall(ctx context.Context, req Request) (*Result, error) {
	item, err := a.items.GetWorkItem(ctx, req.WorkItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load work item %s: %w", req.WorkItemID, err)
	}

	// One embedding call serves both similarity branches. If it fails, both
	// come back empty; related items do not need the vector and still run.
	var vector []float32
	if v, err := a.embedder.Embed(ctx, queryText(item)); err != nil {
		a.log.Warn().Err(err).Msg("query embedding failed, similarity branches skipped")
	} else {
		vector = v
	}

	type branch struct {
		code    []types.SearchResult
		mem     []types.SearchResult
		related []RelatedItem
	}

	ch := make(chan branch, 3)

	go func() {
		b := branch{}
		if vector != nil {
			results, err := a.retriever.SearchVector(ctx, req.CodeCollection, vector, retriever.Options{
				Limit: orDefault(req.CodeLimit),
				Kind:  types.KindCode,
			})
			if err != nil {
				a.log.Warn().Err(err).Msg("code search failed")
			} else {
				b.code = results
			}
		}
		ch <- b
	}()

	go func() {
		b := branch{}
		if vector != nil {
			results, err := a.retriever.SearchVector(ctx, req.MemoryCollection, vector, retriever.Options{
				Limit:         orDefault(req.MemoryLimit),
				Kind:          types.KindMemory,
				IncludeGlobal: req.IncludeGlobal,
			})
			if err != nil {
				a.log.Warn().Err(err).Msg("memory search failed")
			} else {
				b.mem = results
			}
		}
		ch <- b
	}()

	go func() {
		b := branch{}
		candidates, err := a.items.ListRecentItems(ctx, item.ProjectID, item.ID, relatedStatuses, relatedCandidateLimit)
		if err != nil {
			a.log.Warn().Err(err).Msg("related item lookup failed")
		} else {
			b.related = scoreRelated(item, candidates, orDefault(req.RelatedLimit), a.now())
		}
		ch <- b
	}()

	result := &Result{
		Item:         item,
		CodeSnippets: []types.SearchResult{},
		Memories:     []types.SearchResult{},
		RelatedItems: []RelatedItem{},
	}
	for i := 0; i < 3; i++ {
		b := <-ch
		if b.code != nil {
			result.CodeSnippets = b.code
		}
		if b.mem != nil {
			result.Memories = b.mem
		}
		if b.related != nil {
			result.RelatedItems = b.related
		}
	}

	return result, nil
}

// queryText builds the single embedded query from the item's title and
// description, bounded for provider input limits. The cut lands on a rune
// boundary so the provider never sees invalid UTF-8.
func queryText(item *types.WorkItem) string {
	text := item.Title + "\n\n" + item.Description
	if len(text) <= maxQueryChars {
		return text
	}
	cut := maxQueryChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func orDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
