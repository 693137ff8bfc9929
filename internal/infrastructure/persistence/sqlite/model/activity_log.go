package model

import "time"

// ActivityLog rows are append-only; nothing in the core updates or deletes
// them.
type ActivityLog struct {
	EntryID    uint64    `gorm:"column:entry_id;primaryKey;autoIncrement"`
	Action     string    `gorm:"column:action;type:text;not null;index"`
	ProspectID *uint64   `gorm:"column:prospect_id;index"`
	RunID      string    `gorm:"column:run_id;type:text"`
	Details    string    `gorm:"column:details;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index"`
}

func (ActivityLog) TableName() string {
	return "activity_log"
}
