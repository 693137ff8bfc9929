package pipeline

import (
	"context"
	"log/slog"

	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/domain/prospect"
	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

type QualifyInput struct {
	// ProspectID re-qualifies a single prospect even if already scored.
	// Zero means "all prospects still pending qualification".
	ProspectID uint64
	// MinTier filters the reported items only; every processed prospect is
	// persisted regardless of tier.
	MinTier string
	Limit   int
}

type QualifiedItem struct {
	ProspectID uint64
	Username   string
	Score      int
	Tier       string
	Breakdown  prospect.ScoreBreakdown
	Hooks      []string
}

type QualifyResult struct {
	RunID     string
	Processed int
	Items     []QualifiedItem
}

// Qualify scores pending prospects from their matched-repo evidence and
// persists score and tier. Scoring is pure; only the persistence and audit
// writes touch the outside world.
func (s *Service) Qualify(ctx context.Context, input QualifyInput) (QualifyResult, error) {
	if err := s.guard(ctx); err != nil {
		return QualifyResult{}, err
	}

	var minTier prospect.Tier
	if input.MinTier != "" {
		parsed, err := prospect.ParseTier(input.MinTier)
		if err != nil {
			return QualifyResult{}, err
		}
		minTier = parsed
	}

	runID := newRunID()
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "pipeline.qualify"),
		slog.String("run_id", runID),
	)

	var candidates []ports.ProspectRecord
	if input.ProspectID != 0 {
		record, err := s.repo.GetProspect(ctx, input.ProspectID)
		if err != nil {
			return QualifyResult{}, err
		}
		candidates = []ports.ProspectRecord{record}
	} else {
		listed, err := s.repo.ListProspects(ctx, ports.ProspectFilter{
			PendingQualification: true,
			Limit:                input.Limit,
		})
		if err != nil {
			return QualifyResult{}, errs.Wrap(err, "list pending prospects")
		}
		candidates = listed
	}

	result := QualifyResult{RunID: runID}
	now := s.now()

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		repos, err := s.repo.ListMatchedRepos(ctx, candidate.ProspectID)
		if err != nil {
			return result, errs.Wrapf(err, "list repos for %s", candidate.Username)
		}

		evidence := make([]prospect.MatchedRepo, 0, len(repos))
		for _, repo := range repos {
			evidence = append(evidence, prospect.MatchedRepo{
				Name:         repo.Name,
				FullName:     repo.FullName,
				URL:          repo.URL,
				Stars:        repo.Stars,
				Description:  repo.Description,
				Language:     repo.Language,
				LastUpdated:  repo.LastUpdated,
				MatchedQuery: repo.MatchedQuery,
			})
		}

		qualification := prospect.Qualify(evidence, now)
		if err := s.repo.UpdateScore(ctx, candidate.ProspectID, qualification.Score, string(qualification.Tier)); err != nil {
			return result, errs.Wrapf(err, "persist score for %s", candidate.Username)
		}

		result.Processed++
		s.logActivity(ctx, "qualify:scored", &candidate.ProspectID, runID, map[string]any{
			"username":  candidate.Username,
			"score":     qualification.Score,
			"tier":      string(qualification.Tier),
			"breakdown": qualification.Breakdown,
		})

		if minTier != "" && !qualification.Tier.AtLeast(minTier) {
			continue
		}
		result.Items = append(result.Items, QualifiedItem{
			ProspectID: candidate.ProspectID,
			Username:   candidate.Username,
			Score:      qualification.Score,
			Tier:       string(qualification.Tier),
			Breakdown:  qualification.Breakdown,
			Hooks:      qualification.Hooks,
		})
	}

	logging.Info(logCtx, "qualification finished",
		slog.Int("processed", result.Processed),
		slog.Int("reported", len(result.Items)),
	)
	return result, nil
}
