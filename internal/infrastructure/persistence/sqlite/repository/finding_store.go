package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/infrastructure/persistence/sqlite/model"
	"reviewdeck/internal/ports"
)

type FindingStore struct {
	db *gorm.DB
}

var _ ports.FindingStore = (*FindingStore)(nil)

func NewFindingStore(db *gorm.DB) *FindingStore {
	return &FindingStore{db: db}
}

func (s *FindingStore) CreateBatch(ctx context.Context, reviewID string, findings []ports.FindingCreate) error {
	if len(findings) == 0 {
		return nil
	}

	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return err
	}

	// Findings may not be attributed to a review after its terminal
	// transition; the insert and the status check share one transaction.
	return db.Transaction(func(tx *gorm.DB) error {
		var parent model.Review
		if err := tx.Where("id = ?", reviewID).Take(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrReviewNotFound
			}
			return errs.Wrap(err, "query parent review")
		}
		if review.Status(parent.Status).Terminal() {
			return ports.ErrReviewTerminal
		}

		now := time.Now().UTC()
		rows := make([]model.Finding, 0, len(findings))
		for _, f := range findings {
			rows = append(rows, model.Finding{
				ID:          f.ID,
				ReviewID:    reviewID,
				Type:        string(f.Type),
				Severity:    string(f.Severity),
				Title:       f.Title,
				Description: f.Description,
				FilePath:    f.FilePath,
				StartLine:   f.StartLine,
				EndLine:     f.EndLine,
				Suggestion:  optionalString(f.Suggestion),
				AutoFixable: f.AutoFixable,
				CreatedAt:   now,
			})
		}

		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return errs.Wrap(err, "insert findings")
		}
		return nil
	})
}

func (s *FindingStore) ListByReview(ctx context.Context, reviewID string) ([]ports.Finding, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Finding
	if err := db.
		Where("review_id = ?", reviewID).
		Order("file_path asc, start_line asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query findings")
	}

	items := make([]ports.Finding, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapFinding(row))
	}
	return items, nil
}

func (s *FindingStore) Get(ctx context.Context, id string) (ports.Finding, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.Finding{}, err
	}

	var row model.Finding
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Finding{}, ports.ErrFindingNotFound
		}
		return ports.Finding{}, errs.Wrap(err, "query finding")
	}
	return mapFinding(row), nil
}

func (s *FindingStore) MarkFixed(ctx context.Context, id string) error {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return err
	}

	result := db.Model(&model.Finding{}).Where("id = ?", id).Update("fixed", true)
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark finding fixed")
	}
	if result.RowsAffected == 0 {
		return ports.ErrFindingNotFound
	}
	return nil
}

func mapFinding(row model.Finding) ports.Finding {
	suggestion := ""
	if row.Suggestion != nil {
		suggestion = *row.Suggestion
	}
	return ports.Finding{
		ID:          row.ID,
		ReviewID:    row.ReviewID,
		Type:        review.FindingType(row.Type),
		Severity:    review.Severity(row.Severity),
		Title:       row.Title,
		Description: row.Description,
		FilePath:    row.FilePath,
		StartLine:   row.StartLine,
		EndLine:     row.EndLine,
		Suggestion:  suggestion,
		AutoFixable: row.AutoFixable,
		Fixed:       row.Fixed,
		CreatedAt:   row.CreatedAt,
	}
}
