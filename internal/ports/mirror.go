package ports

import "context"

// MirrorClient pushes read-only snapshots to the dashboard mirror. It is a
// one-way side channel; failures never gate pipeline decisions.
type MirrorClient interface {
	// Enabled reports whether a mirror endpoint is configured at all.
	Enabled() bool
	PushProspects(ctx context.Context, prospects []ProspectRecord) error
	PushDailyLimits(ctx context.Context, row DailyLimitsRow) error
}
