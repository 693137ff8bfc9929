package pipeline

import (
	"context"
	"log/slog"

	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

type SyncResult struct {
	RunID   string
	Pushed  int
	Skipped bool
}

// Sync mirrors the prospect table and today's ledger row to the dashboard
// replica. The mirror is advisory; a missing client makes this a no-op.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	if err := s.guard(ctx); err != nil {
		return SyncResult{}, err
	}

	runID := newRunID()
	if s.mirror == nil || !s.mirror.Enabled() {
		return SyncResult{RunID: runID, Skipped: true}, nil
	}

	prospects, err := s.repo.ListProspects(ctx, ports.ProspectFilter{})
	if err != nil {
		return SyncResult{RunID: runID}, errs.Wrap(err, "list prospects")
	}

	if err := s.mirror.PushProspects(ctx, prospects); err != nil {
		return SyncResult{RunID: runID}, errs.Wrap(err, "push prospects")
	}

	if s.limits != nil {
		today, err := s.limits.GetOrCreate(ctx, s.todayUTC())
		if err != nil {
			return SyncResult{RunID: runID}, errs.Wrap(err, "read daily limits")
		}
		if err := s.mirror.PushDailyLimits(ctx, today); err != nil {
			return SyncResult{RunID: runID}, errs.Wrap(err, "push daily limits")
		}
	}

	s.logActivity(ctx, "sync:pushed", nil, runID, map[string]any{
		"prospects": len(prospects),
	})
	logging.Info(ctx, "mirror sync finished",
		slog.String("run_id", runID),
		slog.Int("prospects", len(prospects)),
	)
	return SyncResult{RunID: runID, Pushed: len(prospects)}, nil
}
