package model

import "time"

type MatchedRepo struct {
	MatchedRepoID uint64    `gorm:"column:matched_repo_id;primaryKey;autoIncrement"`
	ProspectID    uint64    `gorm:"column:prospect_id;not null;index"`
	Name          string    `gorm:"column:name;type:text;not null"`
	FullName      string    `gorm:"column:full_name;type:text;not null"`
	URL           string    `gorm:"column:url;type:text;not null"`
	Stars         int       `gorm:"column:stars;not null;default:0"`
	Description   string    `gorm:"column:description;type:text"`
	Language      string    `gorm:"column:language;type:text"`
	LastUpdated   time.Time `gorm:"column:last_updated"`
	MatchedQuery  string    `gorm:"column:matched_query;type:text"`
}

func (MatchedRepo) TableName() string {
	return "matched_repos"
}
