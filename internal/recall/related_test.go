package recall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

func TestTokenize(t *testing.T) {
	tokens := tokenize("Fix the Auth-Token refresh bug in v2")

	assert.True(t, tokens["auth"])
	assert.True(t, tokens["token"])
	assert.True(t, tokens["refresh"])
	// Length <= 3 tokens are dropped.
	assert.False(t, tokens["fix"])
	assert.False(t, tokens["the"])
	assert.False(t, tokens["bug"])
	assert.False(t, tokens["v2"])
}

func TestScoreRelatedOverlapAndRecency(t *testing.T) {
	now := time.Now()
	target := &types.WorkItem{
		ID:          "t",
		Title:       "Refresh token rotation",
		Description: "Rotate session tokens on refresh",
	}

	fresh := &types.WorkItem{
		ID: "fresh", Title: "Token refresh edge cases", CreatedAt: now,
	}
	stale := &types.WorkItem{
		ID: "stale", Title: "Token refresh edge cases", CreatedAt: now.Add(-60 * 24 * time.Hour),
	}
	unrelated := &types.WorkItem{
		ID: "other", Title: "Update marketing copy", CreatedAt: now.Add(-60 * 24 * time.Hour),
	}

	scored := scoreRelated(target, []*types.WorkItem{stale, unrelated, fresh}, 10, now)

	// The unrelated stale item scores zero but stays eligible, ranked last.
	require := assert.New(t)
	require.Len(scored, 3)
	require.Equal("fresh", scored[0].Item.ID)
	require.Equal("stale", scored[1].Item.ID)
	require.Equal("other", scored[2].Item.ID)
	require.Equal(0.0, scored[2].Score)

	// Overlap counts twice; fresh adds the full recency bonus, stale none.
	require.InDelta(scored[0].Score-scored[1].Score, 1.0, 0.01)
}

func TestScoreRelatedExcludesTarget(t *testing.T) {
	now := time.Now()
	target := &types.WorkItem{ID: "t", Title: "Database migration plan"}

	scored := scoreRelated(target, []*types.WorkItem{
		{ID: "t", Title: "Database migration plan", CreatedAt: now},
		{ID: "other", Title: "Database migration rollback", CreatedAt: now},
	}, 10, now)

	assert.Len(t, scored, 1)
	assert.Equal(t, "other", scored[0].Item.ID)
}

func TestScoreRelatedTieBreakByRecency(t *testing.T) {
	now := time.Now()
	target := &types.WorkItem{ID: "t", Title: "Completely unrelated words here"}

	// Zero overlap for both; the recency bonus alone orders them, and the
	// fully decayed item still appears at score zero.
	older := &types.WorkItem{ID: "older", Title: "Payments dashboard", CreatedAt: now.Add(-40 * 24 * time.Hour)}
	newer := &types.WorkItem{ID: "newer", Title: "Billing exports", CreatedAt: now.Add(-1 * 24 * time.Hour)}

	scored := scoreRelated(target, []*types.WorkItem{older, newer}, 10, now)
	assert.Len(t, scored, 2)
	assert.Equal(t, "newer", scored[0].Item.ID)
	assert.Equal(t, "older", scored[1].Item.ID)
	assert.Equal(t, 0.0, scored[1].Score)
}

func TestScoreRelatedLimit(t *testing.T) {
	now := time.Now()
	target := &types.WorkItem{ID: "t", Title: "Search index rebuild"}

	var candidates []*types.WorkItem
	for i := 0; i < 10; i++ {
		candidates = append(candidates, &types.WorkItem{
			ID: string(rune('a' + i)), Title: "Search index tuning", CreatedAt: now,
		})
	}

	scored := scoreRelated(target, candidates, 3, now)
	assert.Len(t, scored, 3)
}
