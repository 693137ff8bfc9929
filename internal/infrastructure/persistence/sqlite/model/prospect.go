package model

import "time"

type Prospect struct {
	ProspectID     uint64     `gorm:"column:prospect_id;primaryKey;autoIncrement"`
	Username       string     `gorm:"column:username;type:text;not null;uniqueIndex"`
	GithubID       int64      `gorm:"column:github_id;not null"`
	Email          *string    `gorm:"column:email;type:text"`
	Score          *int       `gorm:"column:score"`
	Tier           *string    `gorm:"column:tier;type:text;index"`
	OutreachStatus string     `gorm:"column:outreach_status;type:text;not null;default:pending;index"`
	TargetRepo     *string    `gorm:"column:target_repo;type:text"`
	PRURL          *string    `gorm:"column:pr_url;type:text"`
	PRNumber       *int       `gorm:"column:pr_number"`
	PROpenedAt     *time.Time `gorm:"column:pr_opened_at"`
	WalletAddress  *string    `gorm:"column:wallet_address;type:text"`
	AddressValid   bool       `gorm:"column:address_valid;not null;default:0"`
	VerifiedAt     *time.Time `gorm:"column:verified_at"`
	PayoutStatus   string     `gorm:"column:payout_status;type:text;not null;default:pending;index"`
	PayoutTxID     *string    `gorm:"column:payout_txid;type:text"`
	PayoutAmount   *int64     `gorm:"column:payout_amount"`
	PayoutSentAt   *time.Time `gorm:"column:payout_sent_at"`
	BlockHeight    *int64     `gorm:"column:block_height"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;not null"`
}

func (Prospect) TableName() string {
	return "prospects"
}
