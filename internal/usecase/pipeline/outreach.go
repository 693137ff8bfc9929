package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/domain/prospect"
	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

type OutreachInput struct {
	// Limit caps deliveries this run; zero means "up to the daily budget".
	Limit int
	// ProspectID targets a single prospect instead of the pending batch.
	// A prospect whose invitation is already out is reported as a skip.
	ProspectID uint64
	// Tier restricts candidates to exactly this tier when set.
	Tier string
	// DryRun plans deliveries without touching GitHub, the ledger or the
	// prospect rows. Dry runs ignore the daily cap.
	DryRun bool
}

type OutreachItem struct {
	ProspectID uint64
	Username   string
	Tier       string
	TargetRepo string
	PRURL      string
	Planned    bool
	Skipped    string
	Failed     string
}

type OutreachResult struct {
	RunID     string
	Delivered int
	Planned   int
	Skipped   int
	Failed    int
	Items     []OutreachItem
}

// ErrDailyPRBudgetExhausted aborts an outreach batch before any delivery when
// the per-day PR cap has already been consumed.
var ErrDailyPRBudgetExhausted = errors.New("daily pull request budget exhausted")

// Outreach opens invitation pull requests against each candidate's best
// repository: fork, branch, invite file, PR. Every delivery consumes one unit
// of the shared daily PR budget; tier D and unscored prospects are never
// contacted.
func (s *Service) Outreach(ctx context.Context, input OutreachInput) (OutreachResult, error) {
	if err := s.guard(ctx); err != nil {
		return OutreachResult{}, err
	}
	if s.codehost == nil {
		return OutreachResult{}, errors.New("code host client is required")
	}
	if s.limits == nil {
		return OutreachResult{}, errors.New("daily limits repository is required")
	}

	runID := newRunID()
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "pipeline.outreach"),
		slog.String("run_id", runID),
		slog.Bool("dry_run", input.DryRun),
	)

	result := OutreachResult{RunID: runID}

	remaining := input.Limit
	if !input.DryRun {
		today, err := s.limits.GetOrCreate(ctx, s.todayUTC())
		if err != nil {
			return result, errs.Wrap(err, "read daily limits")
		}

		budget := s.cfg.Outreach.MaxDailyPRs - today.PRsOpened
		if budget <= 0 {
			return result, ErrDailyPRBudgetExhausted
		}
		if remaining <= 0 || remaining > budget {
			remaining = budget
		}
	}

	var candidates []ports.ProspectRecord
	if input.ProspectID != 0 {
		record, err := s.repo.GetProspect(ctx, input.ProspectID)
		if err != nil {
			return result, err
		}
		candidates = []ports.ProspectRecord{record}
	} else {
		listed, err := s.repo.ListProspects(ctx, ports.ProspectFilter{
			OutreachStatus: string(prospect.OutreachPending),
			Tier:           strings.ToUpper(strings.TrimSpace(input.Tier)),
		})
		if err != nil {
			return result, errs.Wrap(err, "list pending prospects")
		}
		candidates = listed
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !input.DryRun && result.Delivered >= remaining {
			break
		}
		if input.DryRun && input.Limit > 0 && result.Planned >= input.Limit {
			break
		}

		item, err := s.deliverInvitation(ctx, candidate, runID, input.DryRun)
		if err != nil {
			if skip, ok := prospect.AsSkip(err); ok {
				result.Skipped++
				item.Skipped = skip.Reason
				result.Items = append(result.Items, item)
				continue
			}

			// A delivery failure leaves the prospect pending for a later
			// run; the batch keeps going.
			result.Failed++
			item.Failed = err.Error()
			result.Items = append(result.Items, item)
			s.logActivity(ctx, "outreach:failed", &candidate.ProspectID, runID, map[string]any{
				"username": candidate.Username,
				"error":    err.Error(),
			})
			continue
		}

		result.Items = append(result.Items, item)
		if input.DryRun {
			result.Planned++
			continue
		}

		result.Delivered++
		if result.Delivered < remaining {
			if err := s.sleep(ctx, s.cfg.Outreach.Delay); err != nil {
				return result, err
			}
		}
	}

	logging.Info(logCtx, "outreach finished",
		slog.Int("delivered", result.Delivered),
		slog.Int("planned", result.Planned),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) deliverInvitation(ctx context.Context, candidate ports.ProspectRecord, runID string, dryRun bool) (OutreachItem, error) {
	item := OutreachItem{
		ProspectID: candidate.ProspectID,
		Username:   candidate.Username,
	}

	// The batch query filters on pending already; this guards the targeted
	// single-prospect path.
	if prospect.OutreachStatus(candidate.OutreachStatus) != prospect.OutreachPending {
		return item, prospect.SkipBecause("outreach already delivered")
	}

	if candidate.Tier == nil {
		return item, prospect.SkipBecause("not yet qualified")
	}
	tier, err := prospect.ParseTier(*candidate.Tier)
	if err != nil {
		return item, err
	}
	item.Tier = string(tier)
	if !tier.Contactable() {
		return item, prospect.SkipBecause("tier not contactable")
	}

	repos, err := s.repo.ListMatchedRepos(ctx, candidate.ProspectID)
	if err != nil {
		return item, errs.Wrapf(err, "list repos for %s", candidate.Username)
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

	target, err := prospect.SelectTargetRepo(evidence)
	if errors.Is(err, prospect.ErrNoSuitableRepo) {
		return item, prospect.SkipBecause("no suitable repository")
	}
	if err != nil {
		return item, err
	}
	item.TargetRepo = target.FullName

	// Hooks are re-derived from stored evidence so outreach copy stays
	// fresh even when qualification ran on an older snapshot.
	data := templateData{
		Username:   candidate.Username,
		TargetRepo: target.FullName,
		Hooks:      prospect.Qualify(evidence, s.now()).Hooks,
	}

	title, err := renderCopy("pr_title", s.campaign.Outreach.PRTitle, data)
	if err != nil {
		return item, err
	}
	body, err := renderCopy("pr_body", s.campaign.Outreach.PRBody, data)
	if err != nil {
		return item, err
	}
	inviteContent, err := renderCopy("invite_file", s.campaign.Outreach.InviteFile, data)
	if err != nil {
		return item, err
	}

	if dryRun {
		item.Planned = true
		return item, nil
	}

	pr, err := s.openInvitationPR(ctx, candidate.Username, target.Name, title, body, inviteContent)
	if err != nil {
		return item, err
	}
	item.PRURL = pr.URL

	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		err := s.repo.UpdateOutreachOpened(txCtx, candidate.ProspectID, ports.OutreachOpenedUpdate{
			TargetRepo: target.FullName,
			PRURL:      pr.URL,
			PRNumber:   pr.Number,
			PROpenedAt: s.now(),
		})
		if err != nil {
			return err
		}
		return s.limits.IncrementPRs(txCtx, s.todayUTC())
	})
	if errors.Is(err, ports.ErrStaleStatus) {
		// Another run got there first; the PR exists but this row already
		// moved on. Count it as a skip, not a failure.
		return item, prospect.SkipBecause("status changed during delivery")
	}
	if err != nil {
		return item, errs.Wrapf(err, "record delivery for %s", candidate.Username)
	}

	s.logActivity(ctx, "outreach:pr_opened", &candidate.ProspectID, runID, map[string]any{
		"username":    candidate.Username,
		"target_repo": target.FullName,
		"pr_url":      pr.URL,
	})
	return item, nil
}

// openInvitationPR performs the fork -> branch -> file -> PR sequence against
// the candidate's repository. The PR is opened on the upstream repo with the
// bot's fork branch as head.
func (s *Service) openInvitationPR(ctx context.Context, owner, repo, title, body, inviteContent string) (ports.PullRequestRef, error) {
	botUsername := s.cfg.Github.BotUsername
	branch := s.cfg.Outreach.Branch

	if _, err := s.codehost.ForkRepository(ctx, owner, repo); err != nil {
		return ports.PullRequestRef{}, errs.Wrapf(err, "fork %s/%s", owner, repo)
	}

	if err := s.codehost.CreateBranch(ctx, botUsername, repo, branch, s.cfg.Outreach.BaseBranch); err != nil {
		return ports.PullRequestRef{}, errs.Wrapf(err, "branch on fork of %s/%s", owner, repo)
	}

	err := s.codehost.CreateFile(ctx, botUsername, repo, branch,
		s.cfg.Outreach.FilePath, s.campaign.Outreach.CommitMessage, []byte(inviteContent))
	if err != nil {
		return ports.PullRequestRef{}, errs.Wrapf(err, "write invite file on %s/%s", owner, repo)
	}

	head := fmt.Sprintf("%s:%s", botUsername, branch)
	pr, err := s.codehost.OpenPullRequest(ctx, owner, repo, title, body, head, s.cfg.Outreach.BaseBranch)
	if err != nil {
		return ports.PullRequestRef{}, errs.Wrapf(err, "open pr on %s/%s", owner, repo)
	}
	return pr, nil
}
