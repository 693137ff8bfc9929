package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/domain/prospect"
	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

type AirdropInput struct {
	// Limit caps payouts this run; zero means "up to the daily budget".
	Limit int
	// ProspectID targets a single prospect instead of the pending batch.
	// The settled/verified guards still apply.
	ProspectID uint64
	// AmountSats overrides the tier amount table when positive.
	AmountSats int64
	// DryRun reports what would be paid without calling the chain or
	// mutating state.
	DryRun bool
}

type AirdropItem struct {
	ProspectID uint64
	Username   string
	Tier       string
	AmountSats int64
	TxID       string
	Status     string
	Planned    bool
	Skipped    string
	Failed     string
}

type AirdropResult struct {
	RunID     string
	Sent      int
	Confirmed int
	Planned   int
	Skipped   int
	Failed    int
	Items     []AirdropItem
}

var (
	// ErrDailyPayoutBudgetExhausted aborts a batch before any chain call
	// when the per-day payout cap has been consumed.
	ErrDailyPayoutBudgetExhausted = errors.New("daily payout budget exhausted")
	// ErrTreasuryBelowReserve aborts a batch when the treasury cannot fund
	// a single payout without dipping under the reserve floor.
	ErrTreasuryBelowReserve = errors.New("treasury balance at or below reserve floor")
)

// Airdrop pays verified prospects in sBTC. The daily cap is checked before
// any chain call; the treasury reserve is re-checked per candidate against a
// locally tracked balance so a batch never overdraws between reads.
func (s *Service) Airdrop(ctx context.Context, input AirdropInput) (AirdropResult, error) {
	if err := s.guard(ctx); err != nil {
		return AirdropResult{}, err
	}
	if s.chain == nil {
		return AirdropResult{}, errors.New("chain client is required")
	}
	if s.limits == nil {
		return AirdropResult{}, errors.New("daily limits repository is required")
	}

	runID := newRunID()
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "pipeline.airdrop"),
		slog.String("run_id", runID),
		slog.Bool("dry_run", input.DryRun),
	)

	result := AirdropResult{RunID: runID}

	// Budget gate first so a capped day makes zero external calls.
	today, err := s.limits.GetOrCreate(ctx, s.todayUTC())
	if err != nil {
		return result, errs.Wrap(err, "read daily limits")
	}

	budget := s.cfg.Payout.MaxDaily - today.PayoutsSent
	if budget <= 0 && !input.DryRun {
		return result, ErrDailyPayoutBudgetExhausted
	}

	// Dry runs ignore the daily cap; zero Limit means unlimited there.
	remaining := input.Limit
	if !input.DryRun && (remaining <= 0 || remaining > budget) {
		remaining = budget
	}

	var candidates []ports.ProspectRecord
	if input.ProspectID != 0 {
		record, err := s.repo.GetProspect(ctx, input.ProspectID)
		if err != nil {
			return result, err
		}
		candidates = []ports.ProspectRecord{record}
	} else {
		verified := true
		listed, err := s.repo.ListProspects(ctx, ports.ProspectFilter{
			PayoutStatus:   string(prospect.PayoutPending),
			AddressValid:   &verified,
			RequireAddress: true,
		})
		if err != nil {
			return result, errs.Wrap(err, "list payout candidates")
		}
		candidates = listed
	}
	if len(candidates) == 0 {
		return result, nil
	}

	var available int64
	if !input.DryRun {
		balance, err := s.chain.GetBalance(ctx, s.cfg.Network.TreasuryAddress)
		if err != nil {
			return result, errs.Wrap(err, "read treasury balance")
		}
		available = balance.TokenSats
		if available <= s.cfg.Payout.MinReserve {
			return result, ErrTreasuryBelowReserve
		}
	}

	paid := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if remaining > 0 && paid >= remaining {
			break
		}

		item, spent, err := s.payOne(ctx, candidate, runID, available, input)
		if err != nil {
			if skip, ok := prospect.AsSkip(err); ok {
				result.Skipped++
				item.Skipped = skip.Reason
				result.Items = append(result.Items, item)
				continue
			}
			return result, err
		}

		result.Items = append(result.Items, item)
		if input.DryRun {
			result.Planned++
			paid++
			continue
		}

		// A failed broadcast has no txid and consumed nothing; an on-chain
		// abort after broadcast still spent the budget and is counted sent.
		if item.TxID == "" && item.Failed != "" {
			result.Failed++
		} else {
			available -= spent
			paid++
			result.Sent++
			if item.Status == string(prospect.PayoutConfirmed) {
				result.Confirmed++
			}
		}

		// The fixed delay applies after every broadcast attempt, failed
		// ones included.
		if paid < remaining || remaining <= 0 {
			if err := s.sleep(ctx, s.cfg.Payout.Delay); err != nil {
				return result, err
			}
		}
	}

	logging.Info(logCtx, "airdrop finished",
		slog.Int("sent", result.Sent),
		slog.Int("confirmed", result.Confirmed),
		slog.Int("planned", result.Planned),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) payOne(ctx context.Context, candidate ports.ProspectRecord, runID string, available int64, input AirdropInput) (AirdropItem, int64, error) {
	item := AirdropItem{
		ProspectID: candidate.ProspectID,
		Username:   candidate.Username,
	}
	dryRun := input.DryRun

	// Re-read inside the loop; earlier candidates or a concurrent run may
	// have settled this row since the candidate list was built.
	fresh, err := s.repo.GetProspect(ctx, candidate.ProspectID)
	if err != nil {
		return item, 0, err
	}
	if prospect.PayoutStatus(fresh.PayoutStatus).Settled() {
		return item, 0, prospect.SkipBecause("payout already settled")
	}
	if !fresh.AddressValid || fresh.WalletAddress == nil {
		return item, 0, prospect.SkipBecause("no verified address")
	}

	// A verified address outranks tier here: tier-less and tier D rows are
	// paid at the tier C amount, never blocked.
	var tier prospect.Tier
	if fresh.Tier != nil {
		tier, err = prospect.ParseTier(*fresh.Tier)
		if err != nil {
			return item, 0, err
		}
		item.Tier = string(tier)
	}

	amount := s.payoutAmount(tier)
	if input.AmountSats > 0 {
		amount = input.AmountSats
	}
	item.AmountSats = amount

	if dryRun {
		item.Planned = true
		return item, 0, nil
	}

	if available-amount < s.cfg.Payout.MinReserve {
		return item, 0, prospect.SkipBecause("insufficient treasury headroom")
	}

	memo, err := renderCopy("payout_memo", s.campaign.Payout.Memo, templateData{
		Username:   fresh.Username,
		AmountSats: amount,
	})
	if err != nil {
		return item, 0, err
	}

	txid, err := s.chain.SendTransfer(ctx, ports.TransferRequest{
		Recipient:  *fresh.WalletAddress,
		AmountSats: amount,
		Memo:       memo,
	})
	if err != nil {
		item.Failed = err.Error()
		item.Status = string(prospect.PayoutFailed)
		if updateErr := s.repo.UpdatePayoutStatus(ctx, fresh.ProspectID, string(prospect.PayoutFailed), nil); updateErr != nil {
			return item, 0, errs.Wrapf(updateErr, "record failed payout for %s", fresh.Username)
		}
		s.logActivity(ctx, "airdrop:failed", &fresh.ProspectID, runID, map[string]any{
			"username": fresh.Username,
			"error":    err.Error(),
		})
		s.notifyOnPR(ctx, fresh, s.campaign.Replies.PayoutFailed, templateData{Username: fresh.Username})
		return item, 0, nil
	}

	item.TxID = txid
	item.Status = string(prospect.PayoutSent)

	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.UpdatePayoutSent(txCtx, fresh.ProspectID, txid, amount, s.now()); err != nil {
			return err
		}
		return s.limits.IncrementPayouts(txCtx, s.todayUTC())
	})
	if errors.Is(err, ports.ErrStaleStatus) {
		// The transfer went out but another writer settled the row first.
		// Keep the audit trail; the txid is the ground truth.
		s.logActivity(ctx, "airdrop:sent_stale_row", &fresh.ProspectID, runID, map[string]any{
			"username": fresh.Username,
			"txid":     txid,
		})
		return item, amount, nil
	}
	if err != nil {
		return item, amount, errs.Wrapf(err, "record payout for %s", fresh.Username)
	}

	s.logActivity(ctx, "airdrop:sent", &fresh.ProspectID, runID, map[string]any{
		"username": fresh.Username,
		"txid":     txid,
		"amount":   amount,
	})
	s.notifyOnPR(ctx, fresh, s.campaign.Replies.PayoutSent, templateData{
		Username:   fresh.Username,
		TxID:       txid,
		AmountSats: amount,
	})

	status, confirmErr := s.awaitConfirmation(ctx, txid)
	if confirmErr != nil {
		return item, amount, confirmErr
	}

	switch status.State {
	case ports.TxSuccess:
		height := status.BlockHeight
		if err := s.repo.UpdatePayoutStatus(ctx, fresh.ProspectID, string(prospect.PayoutConfirmed), &height); err != nil {
			return item, amount, errs.Wrapf(err, "record confirmation for %s", fresh.Username)
		}
		item.Status = string(prospect.PayoutConfirmed)
		s.logActivity(ctx, "airdrop:confirmed", &fresh.ProspectID, runID, map[string]any{
			"username":     fresh.Username,
			"txid":         txid,
			"block_height": height,
		})
	case ports.TxAborted:
		if err := s.repo.UpdatePayoutStatus(ctx, fresh.ProspectID, string(prospect.PayoutFailed), nil); err != nil {
			return item, amount, errs.Wrapf(err, "record aborted payout for %s", fresh.Username)
		}
		item.Status = string(prospect.PayoutFailed)
		item.Failed = "transaction aborted on chain"
		s.logActivity(ctx, "airdrop:aborted", &fresh.ProspectID, runID, map[string]any{
			"username": fresh.Username,
			"txid":     txid,
		})
	default:
		// Still pending after the polling window; the row stays sent and a
		// later verify/airdrop run can pick it up.
		s.logActivity(ctx, "airdrop:unconfirmed", &fresh.ProspectID, runID, map[string]any{
			"username": fresh.Username,
			"txid":     txid,
		})
	}

	return item, amount, nil
}

// payoutAmount maps tier to sats. Unknown or low tiers fall back to the
// tier C amount rather than blocking an already-verified prospect.
func (s *Service) payoutAmount(tier prospect.Tier) int64 {
	switch tier {
	case prospect.TierA:
		return s.cfg.Payout.AmountTierA
	case prospect.TierB:
		return s.cfg.Payout.AmountTierB
	default:
		return s.cfg.Payout.AmountTierC
	}
}

// awaitConfirmation polls the chain a bounded number of times. A pending
// answer after the last attempt is returned as-is, never treated as failure.
func (s *Service) awaitConfirmation(ctx context.Context, txid string) (ports.TxStatus, error) {
	attempts := s.cfg.Payout.ConfirmAttempts
	if attempts <= 0 {
		return ports.TxStatus{State: ports.TxPending}, nil
	}

	var last ports.TxStatus
	for i := 0; i < attempts; i++ {
		if err := s.sleep(ctx, s.cfg.Payout.ConfirmInterval); err != nil {
			return last, err
		}

		status, err := s.chain.GetTransactionStatus(ctx, txid)
		if err != nil {
			logging.Warn(ctx, "confirmation poll failed",
				slog.String("txid", txid),
				slog.String("error", err.Error()),
			)
			continue
		}

		last = status
		if status.State != ports.TxPending {
			return status, nil
		}
	}
	return last, nil
}

func (s *Service) notifyOnPR(ctx context.Context, record ports.ProspectRecord, tmpl string, data templateData) {
	if s.codehost == nil || record.PRURL == nil || *record.PRURL == "" {
		return
	}

	body, err := renderCopy("payout_notice", tmpl, data)
	if err != nil {
		logging.Warn(ctx, "payout notice render failed", slog.String("error", err.Error()))
		return
	}
	if err := s.codehost.PostPullRequestComment(ctx, *record.PRURL, body); err != nil {
		logging.Warn(ctx, "payout notice failed",
			slog.String("username", record.Username),
			slog.String("error", err.Error()),
		)
	}
}
