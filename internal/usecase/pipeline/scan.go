package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

type ScanInput struct {
	// Queries overrides the campaign strategy set when non-empty.
	Queries []string
	// PerQueryLimit caps search results fetched per query; zero means the
	// adapter default.
	PerQueryLimit int
}

type ScanResult struct {
	RunID      string
	Queried    int
	Discovered int
	Created    int
	Known      int
}

// Scan runs the discovery strategies and records every new repository owner
// as a pending prospect together with the repo evidence that surfaced them.
// Owners already on file are counted but left untouched.
func (s *Service) Scan(ctx context.Context, input ScanInput) (ScanResult, error) {
	if err := s.guard(ctx); err != nil {
		return ScanResult{}, err
	}
	if s.codehost == nil {
		return ScanResult{}, errors.New("code host client is required")
	}

	runID := newRunID()
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "pipeline.scan"),
		slog.String("run_id", runID),
	)

	queries := input.Queries
	if len(queries) == 0 {
		queries = s.campaign.Queries
	}

	result := ScanResult{RunID: runID, Queried: len(queries)}
	botUsername := strings.ToLower(s.cfg.Github.BotUsername)

	// Owner -> evidence gathered across all queries in this run, so a user
	// surfaced by several strategies is created once with merged repos.
	evidence := make(map[string][]ports.MatchedRepoRecord)
	ownerIDs := make(map[string]int64)
	order := make([]string, 0)

	for _, query := range queries {
		repos, err := s.codehost.SearchRepositories(ctx, query, input.PerQueryLimit)
		if err != nil {
			return result, errs.Wrapf(err, "search %q", query)
		}

		for _, repo := range repos {
			owner := strings.ToLower(repo.OwnerLogin)
			if owner == "" || owner == botUsername {
				continue
			}

			result.Discovered++
			if _, seen := evidence[owner]; !seen {
				order = append(order, owner)
				ownerIDs[owner] = repo.OwnerID
			}
			evidence[owner] = append(evidence[owner], ports.MatchedRepoRecord{
				Name:         repo.Name,
				FullName:     repo.FullName,
				URL:          repo.URL,
				Stars:        repo.Stars,
				Description:  repo.Description,
				Language:     repo.Language,
				LastUpdated:  repo.LastUpdated,
				MatchedQuery: query,
			})
		}
	}

	for _, owner := range order {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		profile, err := s.codehost.GetUserProfile(ctx, owner)
		if err != nil {
			logging.Warn(logCtx, "profile fetch failed, skipping owner",
				slog.String("owner", owner),
				slog.String("error", err.Error()),
			)
			continue
		}

		created, err := s.repo.CreateProspect(ctx, ports.ProspectCreate{
			Username: profile.Login,
			GithubID: profile.ID,
			Email:    profile.Email,
			Repos:    evidence[owner],
		})
		if errors.Is(err, ports.ErrDuplicateUsername) {
			result.Known++
			continue
		}
		if err != nil {
			return result, errs.Wrapf(err, "create prospect %s", owner)
		}

		result.Created++
		s.logActivity(ctx, "scan:discovered", &created.ProspectID, runID, map[string]any{
			"username": created.Username,
			"repos":    len(evidence[owner]),
		})
	}

	logging.Info(logCtx, "scan finished",
		slog.Int("discovered", result.Discovered),
		slog.Int("created", result.Created),
		slog.Int("known", result.Known),
	)
	return result, nil
}
