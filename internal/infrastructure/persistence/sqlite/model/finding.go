package model

import "time"

type Finding struct {
	ID          string    `gorm:"column:id;type:text;primaryKey"`
	ReviewID    string    `gorm:"column:review_id;type:text;not null;index"`
	Type        string    `gorm:"column:type;type:text;not null"`
	Severity    string    `gorm:"column:severity;type:text;not null"`
	Title       string    `gorm:"column:title;type:text;not null"`
	Description string    `gorm:"column:description;type:text;not null"`
	FilePath    string    `gorm:"column:file_path;type:text;not null"`
	StartLine   int       `gorm:"column:start_line;not null"`
	EndLine     int       `gorm:"column:end_line;not null"`
	Suggestion  *string   `gorm:"column:suggestion;type:text"`
	AutoFixable bool      `gorm:"column:auto_fixable;not null;default:0"`
	Fixed       bool      `gorm:"column:fixed;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (Finding) TableName() string {
	return "findings"
}
