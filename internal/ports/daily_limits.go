package ports

import "context"

// DailyLimitsRow is the per-UTC-day ledger of side effects. Counters are
// monotonic within a date; a new date starts a fresh zeroed row.
type DailyLimitsRow struct {
	Date        string
	PRsOpened   int
	PayoutsSent int
}

type DailyLimitsRepository interface {
	// GetOrCreate lazily creates the zeroed row on first access of a date.
	GetOrCreate(ctx context.Context, date string) (DailyLimitsRow, error)
	IncrementPRs(ctx context.Context, date string) error
	IncrementPayouts(ctx context.Context, date string) error
}
