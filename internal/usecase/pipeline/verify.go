package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/domain/prospect"
	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

type VerifyInput struct {
	// PRURL verifies a single prospect by its invitation PR; empty means
	// "all prospects with an open PR and no valid address yet".
	PRURL string
	Limit int
}

type VerifyItem struct {
	ProspectID uint64
	Username   string
	PRState    string
	Address    string
	Valid      bool
	Replied    bool
	Skipped    string
}

type VerifyResult struct {
	RunID    string
	Checked  int
	Verified int
	Invalid  int
	Items    []VerifyItem
}

// Verify walks open invitation PRs, tracks merge/close state, and extracts
// wallet addresses from the prospect's own replies. The first valid address
// in the first address-bearing comment wins and draws a confirmation reply;
// an invalid address gets one corrective reply per distinct token.
func (s *Service) Verify(ctx context.Context, input VerifyInput) (VerifyResult, error) {
	if err := s.guard(ctx); err != nil {
		return VerifyResult{}, err
	}
	if s.codehost == nil {
		return VerifyResult{}, errors.New("code host client is required")
	}

	runID := newRunID()
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "pipeline.verify"),
		slog.String("run_id", runID),
	)

	var candidates []ports.ProspectRecord
	if input.PRURL != "" {
		record, err := s.repo.GetProspectByPRURL(ctx, input.PRURL)
		if err != nil {
			return VerifyResult{}, err
		}
		candidates = []ports.ProspectRecord{record}
	} else {
		notYetValid := false
		listed, err := s.repo.ListProspects(ctx, ports.ProspectFilter{
			OutreachStatus: string(prospect.OutreachPROpened),
			AddressValid:   &notYetValid,
			Limit:          input.Limit,
		})
		if err != nil {
			return VerifyResult{}, errs.Wrap(err, "list open invitations")
		}
		candidates = listed
	}

	result := VerifyResult{RunID: runID}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item, err := s.verifyOne(ctx, candidate, runID)
		if err != nil {
			if skip, ok := prospect.AsSkip(err); ok {
				item.Skipped = skip.Reason
				result.Items = append(result.Items, item)
				continue
			}
			return result, err
		}

		result.Checked++
		if item.Valid {
			result.Verified++
		} else if item.Address != "" {
			result.Invalid++
		}
		result.Items = append(result.Items, item)
	}

	logging.Info(logCtx, "verification finished",
		slog.Int("checked", result.Checked),
		slog.Int("verified", result.Verified),
		slog.Int("invalid", result.Invalid),
	)
	return result, nil
}

func (s *Service) verifyOne(ctx context.Context, candidate ports.ProspectRecord, runID string) (VerifyItem, error) {
	item := VerifyItem{
		ProspectID: candidate.ProspectID,
		Username:   candidate.Username,
	}

	if candidate.PRURL == nil || *candidate.PRURL == "" {
		return item, prospect.SkipBecause("no invitation pr on file")
	}
	prURL := *candidate.PRURL

	state, err := s.codehost.GetPullRequestState(ctx, prURL)
	if err != nil {
		return item, errs.Wrapf(err, "pr state for %s", candidate.Username)
	}
	item.PRState = state

	if next, ok := outreachStateFor(state); ok {
		current := prospect.OutreachStatus(candidate.OutreachStatus)
		if current.CanTransitionTo(next) {
			if err := s.repo.UpdateOutreachStatus(ctx, candidate.ProspectID, string(next)); err != nil {
				return item, errs.Wrapf(err, "track pr state for %s", candidate.Username)
			}
			s.logActivity(ctx, "verify:pr_"+state, &candidate.ProspectID, runID, map[string]any{
				"username": candidate.Username,
				"pr_url":   prURL,
			})
		}
	}

	comments, err := s.codehost.ListPullRequestComments(ctx, prURL)
	if err != nil {
		return item, errs.Wrapf(err, "list comments for %s", candidate.Username)
	}

	tokens := firstAddressTokens(comments, candidate.Username)
	if len(tokens) == 0 {
		return item, nil
	}

	for _, token := range tokens {
		if prospect.ValidAddress(token) {
			now := s.now()
			if err := s.repo.UpdateVerification(ctx, candidate.ProspectID, token, true, &now); err != nil {
				return item, errs.Wrapf(err, "persist address for %s", candidate.Username)
			}
			item.Address = token
			item.Valid = true

			// Confirm on the PR so the prospect knows the address landed.
			// The reply is best-effort; verification stands either way.
			reply, err := renderCopy("address_confirmed", s.campaign.Replies.AddressConfirmed, templateData{
				Username: candidate.Username,
				Address:  token,
			})
			if err != nil {
				return item, err
			}
			if err := s.codehost.PostPullRequestComment(ctx, prURL, reply); err != nil {
				logging.Warn(ctx, "confirmation reply failed",
					slog.String("username", candidate.Username),
					slog.String("error", err.Error()),
				)
			} else {
				item.Replied = true
			}

			s.logActivity(ctx, "verify:address_verified", &candidate.ProspectID, runID, map[string]any{
				"username": candidate.Username,
				"address":  token,
			})
			return item, nil
		}
	}

	// No valid token in the reply. Persist the first near-miss so the
	// prospect stays a verification candidate, and correct the author once
	// per distinct token.
	invalid := tokens[0]
	item.Address = invalid

	alreadySeen := candidate.WalletAddress != nil && *candidate.WalletAddress == invalid
	if !alreadySeen {
		if err := s.repo.UpdateVerification(ctx, candidate.ProspectID, invalid, false, nil); err != nil {
			return item, errs.Wrapf(err, "persist invalid address for %s", candidate.Username)
		}

		reply, err := renderCopy("invalid_address", s.campaign.Replies.InvalidAddress, templateData{
			Username: candidate.Username,
			Address:  invalid,
		})
		if err != nil {
			return item, err
		}
		if err := s.codehost.PostPullRequestComment(ctx, prURL, reply); err != nil {
			logging.Warn(ctx, "corrective reply failed",
				slog.String("username", candidate.Username),
				slog.String("error", err.Error()),
			)
		} else {
			item.Replied = true
		}
		s.logActivity(ctx, "verify:address_invalid", &candidate.ProspectID, runID, map[string]any{
			"username": candidate.Username,
			"address":  invalid,
		})
	}
	return item, nil
}

// ManualVerify records an operator-supplied wallet address, bypassing the PR
// comment scan but not format validation.
func (s *Service) ManualVerify(ctx context.Context, prospectID uint64, address string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	address = strings.TrimSpace(address)
	if !prospect.ValidAddress(address) {
		return prospect.ErrInvalidAddress
	}

	if _, err := s.repo.GetProspect(ctx, prospectID); err != nil {
		return err
	}

	now := s.now()
	if err := s.repo.UpdateVerification(ctx, prospectID, address, true, &now); err != nil {
		return errs.Wrap(err, "persist manual verification")
	}

	s.logActivity(ctx, "verify:manual", &prospectID, newRunID(), map[string]any{
		"address": address,
	})
	return nil
}

func outreachStateFor(prState string) (prospect.OutreachStatus, bool) {
	switch prState {
	case "merged":
		return prospect.OutreachPRMerged, true
	case "closed":
		return prospect.OutreachPRClosed, true
	default:
		return "", false
	}
}

// firstAddressTokens returns the address-shaped tokens from the prospect's
// earliest address-bearing comment. Comments from other users and bots never
// count; later comments only matter once the first one is resolved.
func firstAddressTokens(comments []ports.PRComment, username string) []string {
	for _, comment := range comments {
		if comment.IsBot || !strings.EqualFold(comment.Author, username) {
			continue
		}
		if tokens := prospect.ExtractAddressCandidates(comment.Body); len(tokens) > 0 {
			return tokens
		}
	}
	return nil
}
