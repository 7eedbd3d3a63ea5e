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

type ReviewStore struct {
	db *gorm.DB
}

var _ ports.ReviewStore = (*ReviewStore)(nil)

func NewReviewStore(db *gorm.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

func (s *ReviewStore) Create(ctx context.Context, input ports.ReviewCreate) (ports.Review, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.Review{}, err
	}

	now := time.Now().UTC()
	row := model.Review{
		ID:           input.ID,
		RepositoryID: input.RepositoryID,
		UserID:       input.UserID,
		Branch:       input.Branch,
		CommitSHA:    input.CommitSHA,
		PRNumber:     optionalInt(input.PRNumber),
		Title:        input.Title,
		Description:  input.Description,
		Status:       string(review.StatusInProgress),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := db.Create(&row).Error; err != nil {
		return ports.Review{}, errs.Wrap(err, "insert review")
	}
	return mapReview(row), nil
}

func (s *ReviewStore) Get(ctx context.Context, id string) (ports.Review, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.Review{}, err
	}

	var row model.Review
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Review{}, ports.ErrReviewNotFound
		}
		return ports.Review{}, errs.Wrap(err, "query review")
	}
	return mapReview(row), nil
}

func (s *ReviewStore) List(ctx context.Context, filter ports.ReviewFilter) ([]ports.Review, int64, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return nil, 0, err
	}

	query := db.Model(&model.Review{})
	if filter.RepositoryID != "" {
		query = query.Where("repository_id = ?", filter.RepositoryID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Wrap(err, "count reviews")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var rows []model.Review
	if err := query.
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, errs.Wrap(err, "query reviews")
	}

	items := make([]ports.Review, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapReview(row))
	}
	return items, total, nil
}

func (s *ReviewStore) Complete(ctx context.Context, id string, score float64) error {
	return s.transition(ctx, id, review.StatusCompleted, &score)
}

func (s *ReviewStore) Fail(ctx context.Context, id string) error {
	return s.transition(ctx, id, review.StatusFailed, nil)
}

// transition performs the one-way terminal update. The WHERE clause only
// matches IN_PROGRESS rows, so a retried or late caller cannot overwrite a
// terminal state.
func (s *ReviewStore) transition(ctx context.Context, id string, next review.Status, score *float64) error {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"status":     string(next),
		"updated_at": time.Now().UTC(),
	}
	if score != nil {
		updates["score"] = *score
	}

	result := db.Model(&model.Review{}).
		Where("id = ? AND status = ?", id, string(review.StatusInProgress)).
		Updates(updates)
	if result.Error != nil {
		return errs.Wrapf(result.Error, "transition review %s to %s", id, next)
	}
	if result.RowsAffected == 0 {
		var row model.Review
		if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrReviewNotFound
			}
			return errs.Wrap(err, "query review after failed transition")
		}
		return ports.ErrReviewTerminal
	}
	return nil
}

func (s *ReviewStore) ListStaleInProgress(ctx context.Context, cutoff time.Time) ([]ports.Review, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Review
	if err := db.
		Where("status = ? AND created_at < ?", string(review.StatusInProgress), cutoff).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query stale reviews")
	}

	items := make([]ports.Review, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapReview(row))
	}
	return items, nil
}

func mapReview(row model.Review) ports.Review {
	prNumber := 0
	if row.PRNumber != nil {
		prNumber = *row.PRNumber
	}
	return ports.Review{
		ID:           row.ID,
		RepositoryID: row.RepositoryID,
		UserID:       row.UserID,
		Branch:       row.Branch,
		CommitSHA:    row.CommitSHA,
		PRNumber:     prNumber,
		Title:        row.Title,
		Description:  row.Description,
		Status:       review.Status(row.Status),
		Score:        row.Score,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func optionalInt(value int) *int {
	if value == 0 {
		return nil
	}
	return &value
}
