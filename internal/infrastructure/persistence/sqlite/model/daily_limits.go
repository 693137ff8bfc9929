package model

type DailyLimits struct {
	DailyLimitsID uint64 `gorm:"column:daily_limits_id;primaryKey;autoIncrement"`
	Date          string `gorm:"column:date;type:text;not null;uniqueIndex"`
	PRsOpened     int    `gorm:"column:prs_opened;not null;default:0"`
	PayoutsSent   int    `gorm:"column:payouts_sent;not null;default:0"`
}

func (DailyLimits) TableName() string {
	return "daily_limits"
}
