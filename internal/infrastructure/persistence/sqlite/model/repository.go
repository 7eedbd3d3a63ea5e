package model

import "time"

type Repository struct {
	ID            string    `gorm:"column:id;type:text;primaryKey"`
	Provider      string    `gorm:"column:provider;type:text;not null;uniqueIndex:idx_repositories_provider_external_id,priority:1;index:idx_repositories_provider_full_name,priority:1"`
	ExternalID    string    `gorm:"column:external_id;type:text;not null;uniqueIndex:idx_repositories_provider_external_id,priority:2"`
	Name          string    `gorm:"column:name;type:text;not null"`
	FullName      string    `gorm:"column:full_name;type:text;not null;index:idx_repositories_provider_full_name,priority:2"`
	URL           string    `gorm:"column:url;type:text;not null"`
	DefaultBranch string    `gorm:"column:default_branch;type:text;not null"`
	IsPrivate     bool      `gorm:"column:is_private;not null;default:0"`
	Language      *string   `gorm:"column:language;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (Repository) TableName() string {
	return "repositories"
}
