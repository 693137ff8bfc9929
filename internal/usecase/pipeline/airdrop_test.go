package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"agentdrop/internal/ports"
)

func payable(tier, address, prURL string) func(*ports.ProspectRecord) {
	return func(p *ports.ProspectRecord) {
		score := 80
		p.Score = &score
		p.Tier = &tier
		p.OutreachStatus = "pr_opened"
		p.PRURL = &prURL
		p.WalletAddress = &address
		p.AddressValid = true
	}
}

func TestAirdropSendsAndConfirmsTierAmount(t *testing.T) {
	h := newHarness(testConfig())
	prURL := "https://github.com/dev/repo/pull/1"
	id := h.seedProspect("dev", nil, payable("B", validTestnet, prURL))
	h.chain.balance = ports.Balance{TokenSats: 100000}
	h.chain.statuses["0xtx1"] = ports.TxStatus{State: ports.TxSuccess, BlockHeight: 412}

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Sent != 1 || result.Confirmed != 1 {
		t.Fatalf("sent = %d confirmed = %d, want 1/1", result.Sent, result.Confirmed)
	}

	if len(h.chain.transfers) != 1 {
		t.Fatalf("transfers = %d, want 1", len(h.chain.transfers))
	}
	if h.chain.transfers[0].Recipient != validTestnet || h.chain.transfers[0].AmountSats != 5000 {
		t.Fatalf("transfer = %+v, want tier B amount to verified address", h.chain.transfers[0])
	}

	record, _ := h.repo.GetProspect(context.Background(), id)
	if record.PayoutStatus != "confirmed" {
		t.Fatalf("payout status = %q, want confirmed", record.PayoutStatus)
	}
	if record.BlockHeight == nil || *record.BlockHeight != 412 {
		t.Fatalf("block height = %v, want 412", record.BlockHeight)
	}
	if record.PayoutTxID == nil || *record.PayoutTxID != "0xtx1" {
		t.Fatalf("txid = %v", record.PayoutTxID)
	}

	today, _ := h.limits.GetOrCreate(context.Background(), "2026-08-31")
	if today.PayoutsSent != 1 {
		t.Fatalf("payouts sent = %d, want 1", today.PayoutsSent)
	}

	if len(h.codehost.posted[prURL]) != 1 {
		t.Fatalf("payout notice count = %d, want 1", len(h.codehost.posted[prURL]))
	}
}

func TestAirdropCapReachedMakesNoExternalCalls(t *testing.T) {
	h := newHarness(testConfig())
	h.seedProspect("dev", nil, payable("A", validTestnet, ""))
	for i := 0; i < 5; i++ {
		_ = h.limits.IncrementPayouts(context.Background(), "2026-08-31")
	}
	h.chain.balanceErr = errors.New("chain must not be called")

	_, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if !errors.Is(err, ErrDailyPayoutBudgetExhausted) {
		t.Fatalf("err = %v, want ErrDailyPayoutBudgetExhausted", err)
	}
	if len(h.chain.transfers) != 0 {
		t.Fatal("transfer broadcast despite exhausted cap")
	}
}

func TestAirdropAbortsAtReserveFloor(t *testing.T) {
	h := newHarness(testConfig())
	h.seedProspect("dev", nil, payable("A", validTestnet, ""))
	h.chain.balance = ports.Balance{TokenSats: 50000}

	_, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if !errors.Is(err, ErrTreasuryBelowReserve) {
		t.Fatalf("err = %v, want ErrTreasuryBelowReserve", err)
	}
}

func TestAirdropSkipsCandidateWithoutHeadroom(t *testing.T) {
	h := newHarness(testConfig())
	id := h.seedProspect("dev", nil, payable("B", validTestnet, ""))
	// 54000 - 5000 would dip under the 50000 reserve.
	h.chain.balance = ports.Balance{TokenSats: 54000}

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Skipped != 1 || result.Sent != 0 {
		t.Fatalf("skipped = %d sent = %d, want 1/0", result.Skipped, result.Sent)
	}
	if result.Items[0].Skipped != "insufficient treasury headroom" {
		t.Fatalf("skip reason = %q", result.Items[0].Skipped)
	}

	record, _ := h.repo.GetProspect(context.Background(), id)
	if record.PayoutStatus != "pending" {
		t.Fatalf("payout status = %q, want pending", record.PayoutStatus)
	}
}

func TestAirdropTracksBalanceAcrossBatch(t *testing.T) {
	cfg := testConfig()
	h := newHarness(cfg)
	h.seedProspect("first", nil, payable("B", validTestnet, ""))
	h.seedProspect("second", nil, payable("B", validMainnet, ""))
	// Enough for one tier B payout above the reserve, not two.
	h.chain.balance = ports.Balance{TokenSats: 59000}

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Sent != 1 || result.Skipped != 1 {
		t.Fatalf("sent = %d skipped = %d, want 1/1", result.Sent, result.Skipped)
	}
}

func TestAirdropBroadcastFailureSettlesAsFailed(t *testing.T) {
	h := newHarness(testConfig())
	prURL := "https://github.com/dev/repo/pull/1"
	id := h.seedProspect("dev", nil, payable("A", validTestnet, prURL))
	h.chain.balance = ports.Balance{TokenSats: 100000}
	h.chain.transferErr = errors.New("signer unavailable")

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Failed != 1 || result.Sent != 0 {
		t.Fatalf("failed = %d sent = %d, want 1/0", result.Failed, result.Sent)
	}

	record, _ := h.repo.GetProspect(context.Background(), id)
	if record.PayoutStatus != "failed" {
		t.Fatalf("payout status = %q, want failed", record.PayoutStatus)
	}

	// A failed broadcast never consumes the daily cap.
	today, _ := h.limits.GetOrCreate(context.Background(), "2026-08-31")
	if today.PayoutsSent != 0 {
		t.Fatalf("payouts sent = %d, want 0", today.PayoutsSent)
	}
}

func TestAirdropAbortedTransactionEndsFailed(t *testing.T) {
	h := newHarness(testConfig())
	id := h.seedProspect("dev", nil, payable("A", validTestnet, ""))
	h.chain.balance = ports.Balance{TokenSats: 100000}
	h.chain.statuses["0xtx1"] = ports.TxStatus{State: ports.TxAborted}

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Sent != 1 || result.Confirmed != 0 {
		t.Fatalf("sent = %d confirmed = %d, want 1/0", result.Sent, result.Confirmed)
	}

	record, _ := h.repo.GetProspect(context.Background(), id)
	if record.PayoutStatus != "failed" {
		t.Fatalf("payout status = %q, want failed after abort", record.PayoutStatus)
	}
}

func TestAirdropUnconfirmedStaysSent(t *testing.T) {
	h := newHarness(testConfig())
	id := h.seedProspect("dev", nil, payable("C", validTestnet, ""))
	h.chain.balance = ports.Balance{TokenSats: 100000}
	// No scripted status: every poll answers pending.

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("sent = %d, want 1", result.Sent)
	}

	record, _ := h.repo.GetProspect(context.Background(), id)
	if record.PayoutStatus != "sent" {
		t.Fatalf("payout status = %q, want sent after polling window", record.PayoutStatus)
	}
	if h.chain.transfers[0].AmountSats != 2000 {
		t.Fatalf("amount = %d, want tier C 2000", h.chain.transfers[0].AmountSats)
	}
}

func TestAirdropExcludesSettledProspects(t *testing.T) {
	h := newHarness(testConfig())
	h.seedProspect("done", nil, func(p *ports.ProspectRecord) {
		payable("A", validTestnet, "")(p)
		p.PayoutStatus = "confirmed"
	})
	h.chain.balance = ports.Balance{TokenSats: 100000}

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Sent != 0 || len(h.chain.transfers) != 0 {
		t.Fatalf("settled prospect was paid again: %+v", result)
	}
}

func TestAirdropDryRunPlansWithoutChainCalls(t *testing.T) {
	h := newHarness(testConfig())
	h.seedProspect("dev", nil, payable("A", validTestnet, ""))
	h.chain.balanceErr = errors.New("chain must not be called")

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if result.Planned != 1 {
		t.Fatalf("planned = %d, want 1", result.Planned)
	}
	if result.Items[0].AmountSats != 10000 {
		t.Fatalf("planned amount = %d, want tier A 10000", result.Items[0].AmountSats)
	}
	if len(h.chain.transfers) != 0 {
		t.Fatal("dry run broadcast a transfer")
	}
}

func TestAirdropPaysLowAndMissingTiersAtTierCAmount(t *testing.T) {
	h := newHarness(testConfig())
	h.seedProspect("lowvalue", nil, payable("D", validTestnet, ""))
	h.seedProspect("unscored", nil, func(p *ports.ProspectRecord) {
		p.WalletAddress = strPtr(validMainnet)
		p.AddressValid = true
	})
	h.chain.balance = ports.Balance{TokenSats: 100000}

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Sent != 2 || result.Skipped != 0 {
		t.Fatalf("sent = %d skipped = %d, want 2/0", result.Sent, result.Skipped)
	}
	for _, transfer := range h.chain.transfers {
		if transfer.AmountSats != 2000 {
			t.Fatalf("amount = %d, want tier C fallback 2000", transfer.AmountSats)
		}
	}
}

func TestAirdropTargetsSingleProspectWithAmountOverride(t *testing.T) {
	h := newHarness(testConfig())
	h.seedProspect("first", nil, payable("A", validTestnet, ""))
	targetID := h.seedProspect("second", nil, payable("B", validMainnet, ""))
	h.chain.balance = ports.Balance{TokenSats: 100000}

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{
		ProspectID: targetID,
		AmountSats: 1234,
	})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("sent = %d, want 1", result.Sent)
	}
	if len(h.chain.transfers) != 1 {
		t.Fatalf("transfers = %d, want only the targeted prospect", len(h.chain.transfers))
	}
	if h.chain.transfers[0].Recipient != validMainnet || h.chain.transfers[0].AmountSats != 1234 {
		t.Fatalf("transfer = %+v, want override amount to target", h.chain.transfers[0])
	}
}

func TestAirdropDelaysAfterFailedBroadcast(t *testing.T) {
	h := newHarness(testConfig())
	h.seedProspect("first", nil, payable("A", validTestnet, ""))
	h.seedProspect("second", nil, payable("A", validMainnet, ""))
	h.chain.balance = ports.Balance{TokenSats: 100000}
	h.chain.transferErr = errors.New("signer unavailable")

	sleeps := 0
	h.svc.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}

	result, err := h.svc.Airdrop(context.Background(), AirdropInput{})
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if result.Failed != 2 {
		t.Fatalf("failed = %d, want 2", result.Failed)
	}
	if sleeps != 2 {
		t.Fatalf("sleeps = %d, want the delay after each failed broadcast", sleeps)
	}
}
