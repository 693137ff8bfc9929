package prospect

import (
	"fmt"
	"strings"
)

// Tier is the coarse priority bucket derived from score. A is highest;
// D is never contacted.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// TierForScore maps a 0-100 score onto a tier. Thresholds are 70/40/20;
// the scoring table is the source of truth, not marketing copy.
func TierForScore(score int) Tier {
	switch {
	case score >= 70:
		return TierA
	case score >= 40:
		return TierB
	case score >= 20:
		return TierC
	default:
		return TierD
	}
}

func ParseTier(raw string) (Tier, error) {
	switch Tier(strings.ToUpper(strings.TrimSpace(raw))) {
	case TierA:
		return TierA, nil
	case TierB:
		return TierB, nil
	case TierC:
		return TierC, nil
	case TierD:
		return TierD, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, raw)
	}
}

func (t Tier) rank() int {
	switch t {
	case TierA:
		return 4
	case TierB:
		return 3
	case TierC:
		return 2
	case TierD:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether t is min or better in the A>B>C>D ordering.
func (t Tier) AtLeast(min Tier) bool {
	return t.rank() >= min.rank()
}

// Contactable reports whether outreach may target this tier. Tier D is
// excluded by policy.
func (t Tier) Contactable() bool {
	return t == TierA || t == TierB || t == TierC
}
