package pipeline

import (
	"context"

	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

type StatsResult struct {
	Total        int64
	ByTier       map[string]int64
	ByOutreach   map[string]int64
	ByPayout     map[string]int64
	Today        string
	PRsToday     int
	PayoutsToday int
	MaxDailyPRs  int
	MaxPayouts   int
}

// Stats summarizes the funnel and today's budget consumption.
func (s *Service) Stats(ctx context.Context) (StatsResult, error) {
	if err := s.guard(ctx); err != nil {
		return StatsResult{}, err
	}

	tally, err := s.repo.TallyProspects(ctx)
	if err != nil {
		return StatsResult{}, errs.Wrap(err, "tally prospects")
	}

	result := StatsResult{
		Total:       tally.Total,
		ByTier:      tally.ByTier,
		ByOutreach:  tally.ByOutreach,
		ByPayout:    tally.ByPayout,
		Today:       s.todayUTC(),
		MaxDailyPRs: s.cfg.Outreach.MaxDailyPRs,
		MaxPayouts:  s.cfg.Payout.MaxDaily,
	}

	if s.limits != nil {
		today, err := s.limits.GetOrCreate(ctx, result.Today)
		if err != nil {
			return StatsResult{}, errs.Wrap(err, "read daily limits")
		}
		result.PRsToday = today.PRsOpened
		result.PayoutsToday = today.PayoutsSent
	}
	return result, nil
}

// RecentActivity exposes the audit trail for the console and API.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]ports.ActivityEntry, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	if s.activity == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return s.activity.ListRecent(ctx, limit)
}
