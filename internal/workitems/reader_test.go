package workitems

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steven-d-pennington/kanban-context/internal/store"
	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

func setupTest(t *testing.T) (*Reader, *sql.DB) {
	t.Helper()
	db, err := sql.Open(store.DriverName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE work_items (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`)
	require.NoError(t, err)

	return New(db), db
}

func insertItem(t *testing.T, db *sql.DB, id, project, title, status string, createdAt time.Time) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO work_items (id, project_id, title, description, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, project, title, "description of "+title, status, createdAt.UTC())
	require.NoError(t, err)
}

func TestGetWorkItem(t *testing.T) {
	r, db := setupTest(t)

	insertItem(t, db, "item-1", "proj-1", "Fix login flow", types.StatusInProgress, time.Now())

	item, err := r.GetWorkItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, "proj-1", item.ProjectID)
	assert.Equal(t, "Fix login flow", item.Title)
	assert.Equal(t, types.StatusInProgress, item.Status)
}

func TestGetWorkItemNotFound(t *testing.T) {
	r, _ := setupTest(t)

	_, err := r.GetWorkItem(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestGetWorkItemNullDescription(t *testing.T) {
	r, db := setupTest(t)

	_, err := db.Exec(
		"INSERT INTO work_items (id, project_id, title, description, status, created_at) VALUES (?, ?, ?, NULL, ?, ?)",
		"item-1", "proj-1", "Bare item", types.StatusDone, time.Now().UTC())
	require.NoError(t, err)

	item, err := r.GetWorkItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Empty(t, item.Description)
}

func TestListRecentItems(t *testing.T) {
	r, db := setupTest(t)
	now := time.Now()

	insertItem(t, db, "subject", "proj-1", "Subject item", types.StatusInProgress, now)
	insertItem(t, db, "newest", "proj-1", "Newest done", types.StatusDone, now.Add(-time.Hour))
	insertItem(t, db, "older", "proj-1", "Older review", types.StatusReview, now.Add(-2*time.Hour))
	insertItem(t, db, "backlog", "proj-1", "Still in backlog", "backlog", now)
	insertItem(t, db, "foreign", "proj-2", "Other project", types.StatusDone, now)

	statuses := []string{types.StatusDone, types.StatusReview, types.StatusInProgress}
	items, err := r.ListRecentItems(context.Background(), "proj-1", "subject", statuses, 10)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "newest", items[0].ID)
	assert.Equal(t, "older", items[1].ID)
}

func TestListRecentItemsLimit(t *testing.T) {
	r, db := setupTest(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		insertItem(t, db, string(rune('a'+i)), "proj-1", "Item", types.StatusDone,
			now.Add(-time.Duration(i)*time.Hour))
	}

	items, err := r.ListRecentItems(context.Background(), "proj-1", "none",
		[]string{types.StatusDone}, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestListRecentItemsEmptyStatuses(t *testing.T) {
	r, _ := setupTest(t)

	items, err := r.ListRecentItems(context.Background(), "proj-1", "none", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}
