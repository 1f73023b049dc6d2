package recall

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

// RelatedItem is a work item scored against the recall target.
type RelatedItem struct {
	Item  *types.WorkItem
	Score float64
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases text and keeps alphanumeric runs longer than three
// characters. Short tokens carry too little signal to count as overlap.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(tok) > 3 {
			tokens[tok] = true
		}
	}
	return tokens
}

// scoreRelated ranks candidates against the target item. The score is twice
// the keyword overlap between the items' text plus a recency bonus that
// decays linearly to zero over thirty days. The target itself is excluded;
// zero-score candidates stay eligible and fill out the limit when nothing
// better exists.
func scoreRelated(target *types.WorkItem, candidates []*types.WorkItem, limit int, now time.Time) []RelatedItem {
	targetTokens := tokenize(target.Title + " " + target.Description)

	scored := make([]RelatedItem, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}

		overlap := 0
		for tok := range tokenize(c.Title + " " + c.Description) {
			if targetTokens[tok] {
				overlap++
			}
		}

		ageDays := now.Sub(c.CreatedAt).Hours() / 24
		recency := 1 - ageDays/30
		if recency < 0 {
			recency = 0
		}

		scored = append(scored, RelatedItem{Item: c, Score: 2*float64(overlap) + recency})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item.CreatedAt.After(scored[j].Item.CreatedAt)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
