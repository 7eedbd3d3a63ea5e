package model

import "time"

type Comment struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	ReviewID  string    `gorm:"column:review_id;type:text;not null;index"`
	UserID    string    `gorm:"column:user_id;type:text;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	FilePath  *string   `gorm:"column:file_path;type:text"`
	Line      *int      `gorm:"column:line"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (Comment) TableName() string {
	return "comments"
}
