package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"reviewdeck/internal/errs"
	"reviewdeck/internal/infrastructure/persistence/sqlite/model"
	"reviewdeck/internal/ports"
)

type CommentStore struct {
	db *gorm.DB
}

var _ ports.CommentStore = (*CommentStore)(nil)

func NewCommentStore(db *gorm.DB) *CommentStore {
	return &CommentStore{db: db}
}

func (s *CommentStore) Create(ctx context.Context, input ports.CommentCreate) (ports.Comment, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.Comment{}, err
	}

	row := model.Comment{
		ID:        input.ID,
		ReviewID:  input.ReviewID,
		UserID:    input.UserID,
		Content:   input.Content,
		FilePath:  optionalString(input.FilePath),
		Line:      optionalInt(input.Line),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Comment{}, errs.Wrap(err, "insert comment")
	}
	return mapComment(row), nil
}

func (s *CommentStore) ListByReview(ctx context.Context, reviewID string) ([]ports.Comment, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Comment
	if err := db.
		Where("review_id = ?", reviewID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query comments")
	}

	items := make([]ports.Comment, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapComment(row))
	}
	return items, nil
}

func mapComment(row model.Comment) ports.Comment {
	filePath := ""
	if row.FilePath != nil {
		filePath = *row.FilePath
	}
	line := 0
	if row.Line != nil {
		line = *row.Line
	}
	return ports.Comment{
		ID:        row.ID,
		ReviewID:  row.ReviewID,
		UserID:    row.UserID,
		Content:   row.Content,
		FilePath:  filePath,
		Line:      line,
		CreatedAt: row.CreatedAt,
	}
}
