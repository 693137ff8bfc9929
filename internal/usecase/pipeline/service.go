package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agentdrop/internal/bootstrap/config"
	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/ports"
)

// Service carries the full prospect lifecycle: scan, qualify, outreach,
// verify, airdrop. Each operation lives in its own file; all of them share
// the same repositories and outbound clients.
type Service struct {
	repo     ports.ProspectRepository
	limits   ports.DailyLimitsRepository
	activity ports.ActivityLogRepository
	uow      ports.UnitOfWork
	codehost ports.CodeHost
	chain    ports.ChainClient
	mirror   ports.MirrorClient
	cfg      config.Config
	campaign Campaign

	// Injected for tests; production uses the clock and a real timer.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(
	repo ports.ProspectRepository,
	limits ports.DailyLimitsRepository,
	activity ports.ActivityLogRepository,
	uow ports.UnitOfWork,
	codehost ports.CodeHost,
	chain ports.ChainClient,
	mirror ports.MirrorClient,
	cfg config.Config,
	campaign Campaign,
) *Service {
	return &Service{
		repo:     repo,
		limits:   limits,
		activity: activity,
		uow:      uow,
		codehost: codehost,
		chain:    chain,
		mirror:   mirror,
		cfg:      cfg,
		campaign: campaign,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepContext,
	}
}

func (s *Service) guard(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.repo == nil {
		return errors.New("prospect repository is required")
	}
	return nil
}

func (s *Service) todayUTC() string {
	return s.now().UTC().Format("2006-01-02")
}

func newRunID() string {
	return uuid.NewString()
}

// logActivity appends to the audit trail best-effort. The trail never gates
// pipeline decisions, so failures are logged and swallowed.
func (s *Service) logActivity(ctx context.Context, action string, prospectID *uint64, runID string, details any) {
	if s.activity == nil {
		return
	}

	payload := ""
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			payload = string(raw)
		}
	}

	err := s.activity.Append(ctx, ports.ActivityEntryCreate{
		Action:     action,
		ProspectID: prospectID,
		RunID:      runID,
		Details:    payload,
		CreatedAt:  s.now(),
	})
	if err != nil {
		logging.Warn(ctx, "activity append failed",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
