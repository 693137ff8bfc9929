package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"agentdrop/internal/bootstrap/config"
	"agentdrop/internal/ports"
)

// fakeRepo is an in-memory ProspectRepository mirroring the guarded-update
// semantics of the sqlite implementation.
type fakeRepo struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*ports.ProspectRecord
	repos  map[uint64][]ports.MatchedRepoRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rows:  make(map[uint64]*ports.ProspectRecord),
		repos: make(map[uint64][]ports.MatchedRepoRecord),
	}
}

func (f *fakeRepo) CreateProspect(_ context.Context, input ports.ProspectCreate) (ports.ProspectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if strings.EqualFold(row.Username, input.Username) {
			return ports.ProspectRecord{}, ports.ErrDuplicateUsername
		}
	}

	f.nextID++
	record := ports.ProspectRecord{
		ProspectID:     f.nextID,
		Username:       input.Username,
		GithubID:       input.GithubID,
		Email:          input.Email,
		OutreachStatus: "pending",
		PayoutStatus:   "pending",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	f.rows[record.ProspectID] = &record
	f.repos[record.ProspectID] = append([]ports.MatchedRepoRecord(nil), input.Repos...)
	return record, nil
}

func (f *fakeRepo) GetProspect(_ context.Context, id uint64) (ports.ProspectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return ports.ProspectRecord{}, ports.ErrProspectNotFound
	}
	return *row, nil
}

func (f *fakeRepo) GetProspectByUsername(_ context.Context, username string) (ports.ProspectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if strings.EqualFold(row.Username, username) {
			return *row, nil
		}
	}
	return ports.ProspectRecord{}, ports.ErrProspectNotFound
}

func (f *fakeRepo) GetProspectByPRURL(_ context.Context, prURL string) (ports.ProspectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.PRURL != nil && *row.PRURL == prURL {
			return *row, nil
		}
	}
	return ports.ProspectRecord{}, ports.ErrProspectNotFound
}

func (f *fakeRepo) ListProspects(_ context.Context, filter ports.ProspectFilter) ([]ports.ProspectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]uint64, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]ports.ProspectRecord, 0)
	for _, id := range ids {
		row := f.rows[id]
		if filter.Tier != "" && (row.Tier == nil || *row.Tier != filter.Tier) {
			continue
		}
		if filter.PendingQualification && row.Tier != nil {
			continue
		}
		if filter.OutreachStatus != "" && row.OutreachStatus != filter.OutreachStatus {
			continue
		}
		if filter.PayoutStatus != "" && row.PayoutStatus != filter.PayoutStatus {
			continue
		}
		if filter.AddressValid != nil && row.AddressValid != *filter.AddressValid {
			continue
		}
		if filter.RequireAddress && row.WalletAddress == nil {
			continue
		}
		out = append(out, *row)
	}

	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeRepo) ListMatchedRepos(_ context.Context, id uint64) ([]ports.MatchedRepoRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.MatchedRepoRecord(nil), f.repos[id]...), nil
}

func (f *fakeRepo) UpdateScore(_ context.Context, id uint64, score int, tier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return ports.ErrProspectNotFound
	}
	row.Score = &score
	row.Tier = &tier
	return nil
}

func (f *fakeRepo) UpdateOutreachOpened(_ context.Context, id uint64, update ports.OutreachOpenedUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return ports.ErrProspectNotFound
	}
	if row.OutreachStatus != "pending" {
		return ports.ErrStaleStatus
	}
	row.OutreachStatus = "pr_opened"
	row.TargetRepo = &update.TargetRepo
	row.PRURL = &update.PRURL
	row.PRNumber = &update.PRNumber
	row.PROpenedAt = &update.PROpenedAt
	return nil
}

func (f *fakeRepo) UpdateOutreachStatus(_ context.Context, id uint64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return ports.ErrProspectNotFound
	}
	row.OutreachStatus = status
	return nil
}

func (f *fakeRepo) UpdateVerification(_ context.Context, id uint64, address string, valid bool, verifiedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return ports.ErrProspectNotFound
	}
	row.WalletAddress = &address
	row.AddressValid = valid
	row.VerifiedAt = verifiedAt
	return nil
}

func (f *fakeRepo) UpdatePayoutSent(_ context.Context, id uint64, txid string, amount int64, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return ports.ErrProspectNotFound
	}
	if row.PayoutStatus != "pending" {
		return ports.ErrStaleStatus
	}
	row.PayoutStatus = "sent"
	row.PayoutTxID = &txid
	row.PayoutAmount = &amount
	row.PayoutSentAt = &sentAt
	return nil
}

func (f *fakeRepo) UpdatePayoutStatus(_ context.Context, id uint64, status string, blockHeight *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return ports.ErrProspectNotFound
	}
	row.PayoutStatus = status
	if blockHeight != nil {
		row.BlockHeight = blockHeight
	}
	return nil
}

func (f *fakeRepo) TallyProspects(_ context.Context) (ports.ProspectTally, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tally := ports.ProspectTally{
		ByTier:     make(map[string]int64),
		ByOutreach: make(map[string]int64),
		ByPayout:   make(map[string]int64),
	}
	for _, row := range f.rows {
		tally.Total++
		if row.Tier != nil {
			tally.ByTier[*row.Tier]++
		}
		tally.ByOutreach[row.OutreachStatus]++
		tally.ByPayout[row.PayoutStatus]++
	}
	return tally, nil
}

type fakeLimits struct {
	mu   sync.Mutex
	rows map[string]*ports.DailyLimitsRow
}

func newFakeLimits() *fakeLimits {
	return &fakeLimits{rows: make(map[string]*ports.DailyLimitsRow)}
}

func (f *fakeLimits) row(date string) *ports.DailyLimitsRow {
	if _, ok := f.rows[date]; !ok {
		f.rows[date] = &ports.DailyLimitsRow{Date: date}
	}
	return f.rows[date]
}

func (f *fakeLimits) GetOrCreate(_ context.Context, date string) (ports.DailyLimitsRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.row(date), nil
}

func (f *fakeLimits) IncrementPRs(_ context.Context, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.row(date).PRsOpened++
	return nil
}

func (f *fakeLimits) IncrementPayouts(_ context.Context, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.row(date).PayoutsSent++
	return nil
}

type fakeActivity struct {
	mu      sync.Mutex
	entries []ports.ActivityEntry
}

func (f *fakeActivity) Append(_ context.Context, input ports.ActivityEntryCreate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, ports.ActivityEntry{
		EntryID:    uint64(len(f.entries) + 1),
		Action:     input.Action,
		ProspectID: input.ProspectID,
		RunID:      input.RunID,
		Details:    input.Details,
		CreatedAt:  input.CreatedAt,
	})
	return nil
}

func (f *fakeActivity) ListRecent(_ context.Context, limit int) ([]ports.ActivityEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := append([]ports.ActivityEntry(nil), f.entries...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeActivity) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.entries))
	for _, entry := range f.entries {
		out = append(out, entry.Action)
	}
	return out
}

type fakeUOW struct{}

func (fakeUOW) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeCodeHost records calls and serves scripted responses.
type fakeCodeHost struct {
	mu sync.Mutex

	searchResults map[string][]ports.RepoSearchResult
	profiles      map[string]ports.UserProfile
	prStates      map[string]string
	comments      map[string][]ports.PRComment

	openPRErr error

	forks   []string
	prsOpen []string
	posted  map[string][]string
}

func newFakeCodeHost() *fakeCodeHost {
	return &fakeCodeHost{
		searchResults: make(map[string][]ports.RepoSearchResult),
		profiles:      make(map[string]ports.UserProfile),
		prStates:      make(map[string]string),
		comments:      make(map[string][]ports.PRComment),
		posted:        make(map[string][]string),
	}
}

func (f *fakeCodeHost) SearchRepositories(_ context.Context, query string, _ int) ([]ports.RepoSearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchResults[query], nil
}

func (f *fakeCodeHost) GetUserProfile(_ context.Context, username string) (ports.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	profile, ok := f.profiles[strings.ToLower(username)]
	if !ok {
		return ports.UserProfile{}, fmt.Errorf("no such user %q", username)
	}
	return profile, nil
}

func (f *fakeCodeHost) ForkRepository(_ context.Context, owner, repo string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forks = append(f.forks, owner+"/"+repo)
	return "bot/" + repo, nil
}

func (f *fakeCodeHost) CreateBranch(_ context.Context, _, _, _, _ string) error { return nil }

func (f *fakeCodeHost) CreateFile(_ context.Context, _, _, _, _, _ string, _ []byte) error {
	return nil
}

func (f *fakeCodeHost) OpenPullRequest(_ context.Context, owner, repo, _, _, _, _ string) (ports.PullRequestRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.openPRErr != nil {
		return ports.PullRequestRef{}, f.openPRErr
	}
	url := fmt.Sprintf("https://github.com/%s/%s/pull/%d", owner, repo, len(f.prsOpen)+1)
	f.prsOpen = append(f.prsOpen, url)
	return ports.PullRequestRef{URL: url, Number: len(f.prsOpen)}, nil
}

func (f *fakeCodeHost) ListPullRequestComments(_ context.Context, prURL string) ([]ports.PRComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments[prURL], nil
}

func (f *fakeCodeHost) PostPullRequestComment(_ context.Context, prURL, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted[prURL] = append(f.posted[prURL], body)
	return nil
}

func (f *fakeCodeHost) GetPullRequestState(_ context.Context, prURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if state, ok := f.prStates[prURL]; ok {
		return state, nil
	}
	return "open", nil
}

// fakeChain scripts balance and transfer behavior.
type fakeChain struct {
	mu sync.Mutex

	balance     ports.Balance
	balanceErr  error
	transferErr error
	statuses    map[string]ports.TxStatus

	transfers []ports.TransferRequest
	nextTx    int
}

func newFakeChain() *fakeChain {
	return &fakeChain{statuses: make(map[string]ports.TxStatus)}
}

func (f *fakeChain) GetBalance(_ context.Context, _ string) (ports.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.balanceErr != nil {
		return ports.Balance{}, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeChain) SendTransfer(_ context.Context, req ports.TransferRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.nextTx++
	f.transfers = append(f.transfers, req)
	return fmt.Sprintf("0xtx%d", f.nextTx), nil
}

func (f *fakeChain) GetTransactionStatus(_ context.Context, txid string) (ports.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if status, ok := f.statuses[txid]; ok {
		return status, nil
	}
	return ports.TxStatus{State: ports.TxPending}, nil
}

type fakeMirror struct {
	mu       sync.Mutex
	pushed   int
	limitRow *ports.DailyLimitsRow
}

func (f *fakeMirror) Enabled() bool { return true }

func (f *fakeMirror) PushProspects(_ context.Context, prospects []ports.ProspectRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = len(prospects)
	return nil
}

func (f *fakeMirror) PushDailyLimits(_ context.Context, row ports.DailyLimitsRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limitRow = &row
	return nil
}

type testHarness struct {
	svc      *Service
	repo     *fakeRepo
	limits   *fakeLimits
	activity *fakeActivity
	codehost *fakeCodeHost
	chain    *fakeChain
	mirror   *fakeMirror
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.Github.BotUsername = "agentdrop-bot"
	cfg.Network.Name = "testnet"
	cfg.Network.TreasuryAddress = "ST2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"
	cfg.Outreach.MaxDailyPRs = 10
	cfg.Outreach.Branch = "agentdrop-invite"
	cfg.Outreach.FilePath = "AGENTDROP_INVITE.md"
	cfg.Outreach.BaseBranch = "main"
	cfg.Payout.AmountTierA = 10000
	cfg.Payout.AmountTierB = 5000
	cfg.Payout.AmountTierC = 2000
	cfg.Payout.MinReserve = 50000
	cfg.Payout.MaxDaily = 5
	cfg.Payout.ConfirmAttempts = 2
	return cfg
}

func newHarness(cfg config.Config) *testHarness {
	h := &testHarness{
		repo:     newFakeRepo(),
		limits:   newFakeLimits(),
		activity: &fakeActivity{},
		codehost: newFakeCodeHost(),
		chain:    newFakeChain(),
		mirror:   &fakeMirror{},
	}
	h.svc = NewService(h.repo, h.limits, h.activity, fakeUOW{}, h.codehost, h.chain, h.mirror, cfg, defaultCampaign())
	h.svc.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	h.svc.sleep = func(context.Context, time.Duration) error { return nil }
	return h
}

// seedProspect inserts a prospect with evidence and optional lifecycle state.
func (h *testHarness) seedProspect(username string, repos []ports.MatchedRepoRecord, mutate func(*ports.ProspectRecord)) uint64 {
	record, err := h.repo.CreateProspect(context.Background(), ports.ProspectCreate{
		Username: username,
		GithubID: int64(len(h.repo.rows) + 100),
		Repos:    repos,
	})
	if err != nil {
		panic(err)
	}
	if mutate != nil {
		h.repo.mu.Lock()
		mutate(h.repo.rows[record.ProspectID])
		h.repo.mu.Unlock()
	}
	return record.ProspectID
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
