package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"agentdrop/internal/errs"
	"agentdrop/internal/infrastructure/persistence/sqlite/model"
	"agentdrop/internal/ports"
)

type ProspectRepository struct {
	db *gorm.DB
}

var _ ports.ProspectRepository = (*ProspectRepository)(nil)

func NewProspectRepository(db *gorm.DB) *ProspectRepository {
	return &ProspectRepository{db: db}
}

func (r *ProspectRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *ProspectRepository) CreateProspect(ctx context.Context, input ports.ProspectCreate) (ports.ProspectRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.ProspectRecord{}, err
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return ports.ProspectRecord{}, errors.New("username is required")
	}

	now := time.Now().UTC()
	row := model.Prospect{
		Username:       username,
		GithubID:       input.GithubID,
		Email:          input.Email,
		OutreachStatus: "pending",
		PayoutStatus:   "pending",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return ports.ErrDuplicateUsername
			}
			return errs.Wrap(err, "insert prospect")
		}

		for _, repo := range input.Repos {
			repoRow := model.MatchedRepo{
				ProspectID:   row.ProspectID,
				Name:         repo.Name,
				FullName:     repo.FullName,
				URL:          repo.URL,
				Stars:        repo.Stars,
				Description:  repo.Description,
				Language:     repo.Language,
				LastUpdated:  repo.LastUpdated,
				MatchedQuery: repo.MatchedQuery,
			}
			if err := tx.Create(&repoRow).Error; err != nil {
				return errs.Wrap(err, "insert matched repo")
			}
		}
		return nil
	}); err != nil {
		return ports.ProspectRecord{}, err
	}

	return mapProspect(row), nil
}

func (r *ProspectRepository) GetProspect(ctx context.Context, prospectID uint64) (ports.ProspectRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.ProspectRecord{}, err
	}
	return getProspectBy(db, "prospect_id = ?", prospectID)
}

func (r *ProspectRepository) GetProspectByUsername(ctx context.Context, username string) (ports.ProspectRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.ProspectRecord{}, err
	}
	return getProspectBy(db, "username = ?", strings.TrimSpace(username))
}

func (r *ProspectRepository) GetProspectByPRURL(ctx context.Context, prURL string) (ports.ProspectRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.ProspectRecord{}, err
	}
	return getProspectBy(db, "pr_url = ?", strings.TrimSpace(prURL))
}

func (r *ProspectRepository) ListProspects(ctx context.Context, filter ports.ProspectFilter) ([]ports.ProspectRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Prospect{})
	if filter.Tier != "" {
		query = query.Where("tier = ?", filter.Tier)
	}
	if filter.PendingQualification {
		query = query.Where("tier IS NULL")
	}
	if filter.OutreachStatus != "" {
		query = query.Where("outreach_status = ?", filter.OutreachStatus)
	}
	if filter.PayoutStatus != "" {
		query = query.Where("payout_status = ?", filter.PayoutStatus)
	}
	if filter.AddressValid != nil {
		query = query.Where("address_valid = ?", *filter.AddressValid)
	}
	if filter.RequireAddress {
		query = query.Where("wallet_address IS NOT NULL AND wallet_address != ''")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []model.Prospect
	if err := query.Order("prospect_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query prospects")
	}

	items := make([]ports.ProspectRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapProspect(row))
	}
	return items, nil
}

func (r *ProspectRepository) ListMatchedRepos(ctx context.Context, prospectID uint64) ([]ports.MatchedRepoRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.MatchedRepo
	if err := db.
		Where("prospect_id = ?", prospectID).
		Order("matched_repo_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query matched repos")
	}

	repos := make([]ports.MatchedRepoRecord, 0, len(rows))
	for _, row := range rows {
		repos = append(repos, ports.MatchedRepoRecord{
			Name:         row.Name,
			FullName:     row.FullName,
			URL:          row.URL,
			Stars:        row.Stars,
			Description:  row.Description,
			Language:     row.Language,
			LastUpdated:  row.LastUpdated,
			MatchedQuery: row.MatchedQuery,
		})
	}
	return repos, nil
}

func (r *ProspectRepository) UpdateScore(ctx context.Context, prospectID uint64, score int, tier string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Prospect{}).
		Where("prospect_id = ?", prospectID).
		Updates(map[string]any{
			"score":      score,
			"tier":       tier,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update score")
	}
	if result.RowsAffected == 0 {
		return ports.ErrProspectNotFound
	}
	return nil
}

func (r *ProspectRepository) UpdateOutreachOpened(ctx context.Context, prospectID uint64, update ports.OutreachOpenedUpdate) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	// Guarded on the prior status so a concurrent run cannot double-open.
	result := db.Model(&model.Prospect{}).
		Where("prospect_id = ? AND outreach_status = ?", prospectID, "pending").
		Updates(map[string]any{
			"outreach_status": "pr_opened",
			"target_repo":     update.TargetRepo,
			"pr_url":          update.PRURL,
			"pr_number":       update.PRNumber,
			"pr_opened_at":    update.PROpenedAt,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update outreach opened")
	}
	if result.RowsAffected == 0 {
		return ports.ErrStaleStatus
	}
	return nil
}

func (r *ProspectRepository) UpdateOutreachStatus(ctx context.Context, prospectID uint64, status string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Prospect{}).
		Where("prospect_id = ?", prospectID).
		Updates(map[string]any{
			"outreach_status": status,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update outreach status")
	}
	if result.RowsAffected == 0 {
		return ports.ErrProspectNotFound
	}
	return nil
}

func (r *ProspectRepository) UpdateVerification(ctx context.Context, prospectID uint64, address string, valid bool, verifiedAt *time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Prospect{}).
		Where("prospect_id = ?", prospectID).
		Updates(map[string]any{
			"wallet_address": address,
			"address_valid":  valid,
			"verified_at":    verifiedAt,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update verification")
	}
	if result.RowsAffected == 0 {
		return ports.ErrProspectNotFound
	}
	return nil
}

func (r *ProspectRepository) UpdatePayoutSent(ctx context.Context, prospectID uint64, txid string, amount int64, sentAt time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	// payout_amount is written exactly once here; later transitions never
	// touch it, which keeps the amount immutable once set.
	result := db.Model(&model.Prospect{}).
		Where("prospect_id = ? AND payout_status = ?", prospectID, "pending").
		Updates(map[string]any{
			"payout_status":  "sent",
			"payout_txid":    txid,
			"payout_amount":  amount,
			"payout_sent_at": sentAt,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update payout sent")
	}
	if result.RowsAffected == 0 {
		return ports.ErrStaleStatus
	}
	return nil
}

func (r *ProspectRepository) UpdatePayoutStatus(ctx context.Context, prospectID uint64, status string, blockHeight *int64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"payout_status": status,
		"updated_at":    time.Now().UTC(),
	}
	if blockHeight != nil {
		updates["block_height"] = *blockHeight
	}

	result := db.Model(&model.Prospect{}).
		Where("prospect_id = ?", prospectID).
		Updates(updates)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update payout status")
	}
	if result.RowsAffected == 0 {
		return ports.ErrProspectNotFound
	}
	return nil
}

func (r *ProspectRepository) TallyProspects(ctx context.Context) (ports.ProspectTally, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.ProspectTally{}, err
	}

	tally := ports.ProspectTally{
		ByTier:     map[string]int64{},
		ByOutreach: map[string]int64{},
		ByPayout:   map[string]int64{},
	}

	if err := db.Model(&model.Prospect{}).Count(&tally.Total).Error; err != nil {
		return ports.ProspectTally{}, errs.Wrap(err, "count prospects")
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var tiers []bucket
	if err := db.Model(&model.Prospect{}).
		Select("tier as key, count(*) as count").
		Where("tier IS NOT NULL").
		Group("tier").
		Scan(&tiers).Error; err != nil {
		return ports.ProspectTally{}, errs.Wrap(err, "tally tiers")
	}
	for _, b := range tiers {
		tally.ByTier[b.Key] = b.Count
	}

	var outreach []bucket
	if err := db.Model(&model.Prospect{}).
		Select("outreach_status as key, count(*) as count").
		Group("outreach_status").
		Scan(&outreach).Error; err != nil {
		return ports.ProspectTally{}, errs.Wrap(err, "tally outreach")
	}
	for _, b := range outreach {
		tally.ByOutreach[b.Key] = b.Count
	}

	var payouts []bucket
	if err := db.Model(&model.Prospect{}).
		Select("payout_status as key, count(*) as count").
		Group("payout_status").
		Scan(&payouts).Error; err != nil {
		return ports.ProspectTally{}, errs.Wrap(err, "tally payouts")
	}
	for _, b := range payouts {
		tally.ByPayout[b.Key] = b.Count
	}

	return tally, nil
}

func getProspectBy(db *gorm.DB, cond string, arg any) (ports.ProspectRecord, error) {
	var row model.Prospect
	if err := db.Where(cond, arg).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ProspectRecord{}, ports.ErrProspectNotFound
		}
		return ports.ProspectRecord{}, errs.Wrap(err, "query prospect")
	}
	return mapProspect(row), nil
}

func mapProspect(row model.Prospect) ports.ProspectRecord {
	return ports.ProspectRecord{
		ProspectID:     row.ProspectID,
		Username:       row.Username,
		GithubID:       row.GithubID,
		Email:          row.Email,
		Score:          row.Score,
		Tier:           row.Tier,
		OutreachStatus: row.OutreachStatus,
		TargetRepo:     row.TargetRepo,
		PRURL:          row.PRURL,
		PRNumber:       row.PRNumber,
		PROpenedAt:     row.PROpenedAt,
		WalletAddress:  row.WalletAddress,
		AddressValid:   row.AddressValid,
		VerifiedAt:     row.VerifiedAt,
		PayoutStatus:   row.PayoutStatus,
		PayoutTxID:     row.PayoutTxID,
		PayoutAmount:   row.PayoutAmount,
		PayoutSentAt:   row.PayoutSentAt,
		BlockHeight:    row.BlockHeight,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
