package model

import "time"

type Review struct {
	ID           string    `gorm:"column:id;type:text;primaryKey"`
	RepositoryID string    `gorm:"column:repository_id;type:text;not null;index"`
	UserID       string    `gorm:"column:user_id;type:text;not null;index"`
	Branch       string    `gorm:"column:branch;type:text;not null"`
	CommitSHA    string    `gorm:"column:commit_sha;type:text;not null"`
	PRNumber     *int      `gorm:"column:pr_number"`
	Title        string    `gorm:"column:title;type:text;not null"`
	Description  string    `gorm:"column:description;type:text;not null"`
	Status       string    `gorm:"column:status;type:text;not null;index"`
	Score        *float64  `gorm:"column:score"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (Review) TableName() string {
	return "reviews"
}
