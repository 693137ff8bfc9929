package prospect

import "errors"

var (
	ErrNoSuitableRepo    = errors.New("no suitable repository for outreach")
	ErrInvalidAddress    = errors.New("invalid wallet address")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotContactable    = errors.New("prospect tier is not contactable")
	ErrUnknownTier       = errors.New("unknown tier")
)

// Skip marks an expected per-candidate condition (stale status, missing
// evidence, insufficient headroom). Batch loops count it as skipped and keep
// going, unlike a real failure.
type Skip struct {
	Reason string
}

func (s Skip) Error() string { return "skipped: " + s.Reason }

func SkipBecause(reason string) error { return Skip{Reason: reason} }

func AsSkip(err error) (Skip, bool) {
	var s Skip
	if errors.As(err, &s) {
		return s, true
	}
	return Skip{}, false
}
