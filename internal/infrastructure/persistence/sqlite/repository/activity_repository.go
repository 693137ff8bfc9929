package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"agentdrop/internal/errs"
	"agentdrop/internal/infrastructure/persistence/sqlite/model"
	"agentdrop/internal/ports"
)

type ActivityRepository struct {
	db *gorm.DB
}

var _ ports.ActivityLogRepository = (*ActivityRepository)(nil)

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *ActivityRepository) Append(ctx context.Context, input ports.ActivityEntryCreate) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if input.Action == "" {
		return errors.New("action is required")
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := model.ActivityLog{
		Action:     input.Action,
		ProspectID: input.ProspectID,
		RunID:      input.RunID,
		Details:    input.Details,
		CreatedAt:  createdAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "append activity entry")
	}
	return nil
}

func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]ports.ActivityEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.ActivityLog{}).Order("entry_id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.ActivityLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query activity log")
	}

	items := make([]ports.ActivityEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.ActivityEntry{
			EntryID:    row.EntryID,
			Action:     row.Action,
			ProspectID: row.ProspectID,
			RunID:      row.RunID,
			Details:    row.Details,
			CreatedAt:  row.CreatedAt,
		})
	}
	return items, nil
}
