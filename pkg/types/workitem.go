package types

import "time"

// Work-item statuses eligible for related-item ranking.
const (
	StatusDone       = "done"
	StatusReview     = "review"
	StatusInProgress = "in_progress"
)

// WorkItem is the read-only view of a work-tracking item this core consumes.
// The item's CRUD lifecycle belongs to the application backend.
type WorkItem struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      string
	CreatedAt   time.Time
}
