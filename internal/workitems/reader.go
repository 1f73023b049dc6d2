package workitems

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/steven-d-pennington/kanban-context/internal/store"
	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

// Reader is a read-only view over the kanban application's work_items table.
// The item lifecycle (create, move, close) belongs to the application; this
// core only ever selects.
type Reader struct {
	db *sql.DB
}

// New wraps an already-open database handle.
func New(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Open opens the kanban database at path. The same SQLite driver as the
// index store is used, so build tags select cgo or pure Go uniformly.
func Open(dbPath string) (*Reader, error) {
	db, err := sql.Open(store.DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open work item database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Reader{db: db}, nil
}

// Close closes the underlying handle.
func (r *Reader) Close() error {
	return r.db.Close()
}

// GetWorkItem returns one work item by ID, or types.ErrNotFound.
func (r *Reader) GetWorkItem(ctx context.Context, id string) (*types.WorkItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, description, status, created_at
		FROM work_items WHERE id = ?`, id)

	item, err := scanWorkItemRow(row)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListRecentItems returns the project's most recent items in the given
// statuses, newest first, excluding excludeID.
func (r *Reader) ListRecentItems(ctx context.Context, projectID, excludeID string, statuses []string, limit int) ([]*types.WorkItem, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]

	args := []any{projectID, excludeID}
	for _, s := range statuses {
		args = append(args, s)
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, project_id, title, description, status, created_at
		FROM work_items
		WHERE project_id = ? AND id != ? AND status IN (%s)
		ORDER BY created_at DESC LIMIT ?`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}
	defer rows.Close()

	var items []*types.WorkItem
	for rows.Next() {
		item, err := scanWorkItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read work item rows: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanWorkItemRow maps a work_items row into the typed model.
func scanWorkItemRow(row rowScanner) (*types.WorkItem, error) {
	var (
		item        types.WorkItem
		description sql.NullString
	)
	err := row.Scan(&item.ID, &item.ProjectID, &item.Title, &description,
		&item.Status, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan work item row: %w", err)
	}
	item.Description = description.String
	return &item, nil
}
