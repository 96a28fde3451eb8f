package ports

import (
	"context"

	"screenscan/domain/inspection"
)

// RecordQuery selects a user's records, newest first; Limit <= 0 means no limit
type RecordQuery struct {
	UserID string
	Limit  int
}

// RecordStore defines the interface for inspection record persistence
type RecordStore interface {
	// List returns records ordered by created_at descending
	List(ctx context.Context, q RecordQuery) ([]inspection.Record, error)

	// ListLabels returns the verdict label of every record the user owns
	ListLabels(ctx context.Context, userID string) ([]inspection.VerdictLabel, error)

	// Create inserts a record and returns it with ID and CreatedAt assigned
	Create(ctx context.Context, draft inspection.Draft) (*inspection.Record, error)
}
