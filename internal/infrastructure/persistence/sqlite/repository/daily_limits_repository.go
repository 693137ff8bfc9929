package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agentdrop/internal/errs"
	"agentdrop/internal/infrastructure/persistence/sqlite/model"
	"agentdrop/internal/ports"
)

type DailyLimitsRepository struct {
	db *gorm.DB
}

var _ ports.DailyLimitsRepository = (*DailyLimitsRepository)(nil)

func NewDailyLimitsRepository(db *gorm.DB) *DailyLimitsRepository {
	return &DailyLimitsRepository{db: db}
}

func (r *DailyLimitsRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *DailyLimitsRepository) GetOrCreate(ctx context.Context, date string) (ports.DailyLimitsRow, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.DailyLimitsRow{}, err
	}

	trimmed := strings.TrimSpace(date)
	if trimmed == "" {
		return ports.DailyLimitsRow{}, errors.New("date is required")
	}

	row := model.DailyLimits{Date: trimmed}
	if err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoNothing: true,
		}).
		Create(&row).Error; err != nil {
		return ports.DailyLimitsRow{}, errs.Wrap(err, "create daily limits row")
	}

	// Re-read: OnConflict DoNothing leaves counters stale on the struct.
	if err := db.Where("date = ?", trimmed).Take(&row).Error; err != nil {
		return ports.DailyLimitsRow{}, errs.Wrap(err, "query daily limits row")
	}

	return ports.DailyLimitsRow{
		Date:        row.Date,
		PRsOpened:   row.PRsOpened,
		PayoutsSent: row.PayoutsSent,
	}, nil
}

func (r *DailyLimitsRepository) IncrementPRs(ctx context.Context, date string) error {
	return r.increment(ctx, date, "prs_opened")
}

func (r *DailyLimitsRepository) IncrementPayouts(ctx context.Context, date string) error {
	return r.increment(ctx, date, "payouts_sent")
}

func (r *DailyLimitsRepository) increment(ctx context.Context, date, column string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if _, err := r.GetOrCreate(ctx, date); err != nil {
		return err
	}

	result := db.Model(&model.DailyLimits{}).
		Where("date = ?", strings.TrimSpace(date)).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return errs.Wrapf(result.Error, "increment %s", column)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("daily limits row missing for %s", date)
	}
	return nil
}
