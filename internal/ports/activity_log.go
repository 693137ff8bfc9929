package ports

import (
	"context"
	"time"
)

// ActivityEntryCreate appends to the audit trail. Entries are never updated
// or deleted; Details carries free-form JSON.
type ActivityEntryCreate struct {
	Action     string
	ProspectID *uint64
	RunID      string
	Details    string
	CreatedAt  time.Time
}

type ActivityEntry struct {
	EntryID    uint64
	Action     string
	ProspectID *uint64
	RunID      string
	Details    string
	CreatedAt  time.Time
}

type ActivityLogRepository interface {
	Append(ctx context.Context, input ActivityEntryCreate) error
	ListRecent(ctx context.Context, limit int) ([]ActivityEntry, error)
}
