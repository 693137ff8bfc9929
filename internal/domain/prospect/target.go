package prospect

import (
	"sort"
	"time"
)

// recencyGap is the minimum lastUpdated difference before recency outranks
// star count in target selection.
const recencyGap = 7 * 24 * time.Hour

// SelectTargetRepo picks the repository outreach should open a PR against.
// Ordering: recency wins only when repos are more than recencyGap apart,
// otherwise the higher star count wins. No evidence is a hard stop; the
// prospect cannot be contacted until new evidence arrives.
func SelectTargetRepo(repos []MatchedRepo) (MatchedRepo, error) {
	if len(repos) == 0 {
		return MatchedRepo{}, ErrNoSuitableRepo
	}

	sorted := make([]MatchedRepo, len(repos))
	copy(sorted, repos)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]

		gap := a.LastUpdated.Sub(b.LastUpdated)
		if gap < 0 {
			gap = -gap
		}
		if gap > recencyGap {
			return a.LastUpdated.After(b.LastUpdated)
		}
		return a.Stars > b.Stars
	})

	return sorted[0], nil
}
