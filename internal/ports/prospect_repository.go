package ports

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProspectNotFound  = errors.New("prospect not found")
	ErrDuplicateUsername = errors.New("prospect username already exists")
	// ErrStaleStatus is returned when a guarded status update matched no row,
	// meaning another run already moved the prospect past the expected state.
	ErrStaleStatus = errors.New("prospect status changed since read")
)

type MatchedRepoRecord struct {
	Name         string
	FullName     string
	URL          string
	Stars        int
	Description  string
	Language     string
	LastUpdated  time.Time
	MatchedQuery string
}

type ProspectRecord struct {
	ProspectID     uint64
	Username       string
	GithubID       int64
	Email          *string
	Score          *int
	Tier           *string
	OutreachStatus string
	TargetRepo     *string
	PRURL          *string
	PRNumber       *int
	PROpenedAt     *time.Time
	WalletAddress  *string
	AddressValid   bool
	VerifiedAt     *time.Time
	PayoutStatus   string
	PayoutTxID     *string
	PayoutAmount   *int64
	PayoutSentAt   *time.Time
	BlockHeight    *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ProspectCreate struct {
	Username string
	GithubID int64
	Email    *string
	Repos    []MatchedRepoRecord
}

// ProspectFilter narrows ListProspects. Zero values mean "no constraint";
// PendingQualification selects rows whose tier is still null.
type ProspectFilter struct {
	Tier                 string
	PendingQualification bool
	OutreachStatus       string
	PayoutStatus         string
	AddressValid         *bool
	RequireAddress       bool
	Limit                int
	Offset               int
}

type OutreachOpenedUpdate struct {
	TargetRepo string
	PRURL      string
	PRNumber   int
	PROpenedAt time.Time
}

type ProspectTally struct {
	Total      int64
	ByTier     map[string]int64
	ByOutreach map[string]int64
	ByPayout   map[string]int64
}

type ProspectRepository interface {
	CreateProspect(ctx context.Context, input ProspectCreate) (ProspectRecord, error)
	GetProspect(ctx context.Context, prospectID uint64) (ProspectRecord, error)
	GetProspectByUsername(ctx context.Context, username string) (ProspectRecord, error)
	GetProspectByPRURL(ctx context.Context, prURL string) (ProspectRecord, error)
	ListProspects(ctx context.Context, filter ProspectFilter) ([]ProspectRecord, error)
	ListMatchedRepos(ctx context.Context, prospectID uint64) ([]MatchedRepoRecord, error)
	UpdateScore(ctx context.Context, prospectID uint64, score int, tier string) error
	// UpdateOutreachOpened moves pending -> pr_opened and persists PR facts;
	// returns ErrStaleStatus when the prospect is no longer pending.
	UpdateOutreachOpened(ctx context.Context, prospectID uint64, update OutreachOpenedUpdate) error
	UpdateOutreachStatus(ctx context.Context, prospectID uint64, status string) error
	UpdateVerification(ctx context.Context, prospectID uint64, address string, valid bool, verifiedAt *time.Time) error
	// UpdatePayoutSent moves pending -> sent and sets txid/amount exactly
	// once; returns ErrStaleStatus when the payout already left pending.
	UpdatePayoutSent(ctx context.Context, prospectID uint64, txid string, amount int64, sentAt time.Time) error
	UpdatePayoutStatus(ctx context.Context, prospectID uint64, status string, blockHeight *int64) error
	TallyProspects(ctx context.Context) (ProspectTally, error)
}
