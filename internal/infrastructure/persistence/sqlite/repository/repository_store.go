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

type RepositoryStore struct {
	db *gorm.DB
}

var _ ports.RepositoryStore = (*RepositoryStore)(nil)

func NewRepositoryStore(db *gorm.DB) *RepositoryStore {
	return &RepositoryStore{db: db}
}

func (s *RepositoryStore) GetByExternalID(ctx context.Context, provider review.Provider, externalID string) (ports.Repository, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.Repository{}, err
	}

	var row model.Repository
	if err := db.
		Where("provider = ? AND external_id = ?", string(provider), externalID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Repository{}, ports.ErrRepositoryNotFound
		}
		return ports.Repository{}, errs.Wrap(err, "query repository by external id")
	}
	return mapRepository(row), nil
}

func (s *RepositoryStore) GetByFullName(ctx context.Context, provider review.Provider, fullName string) (ports.Repository, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.Repository{}, err
	}

	var row model.Repository
	if err := db.
		Where("provider = ? AND full_name = ?", string(provider), fullName).
		Order("created_at asc").
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Repository{}, ports.ErrRepositoryNotFound
		}
		return ports.Repository{}, errs.Wrap(err, "query repository by full name")
	}
	return mapRepository(row), nil
}

func (s *RepositoryStore) GetByID(ctx context.Context, id string) (ports.Repository, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.Repository{}, err
	}

	var row model.Repository
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Repository{}, ports.ErrRepositoryNotFound
		}
		return ports.Repository{}, errs.Wrap(err, "query repository by id")
	}
	return mapRepository(row), nil
}

func (s *RepositoryStore) Create(ctx context.Context, input ports.RepositoryCreate) (ports.Repository, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.Repository{}, err
	}

	now := time.Now().UTC()
	row := model.Repository{
		ID:            input.ID,
		Provider:      string(input.Provider),
		ExternalID:    input.ExternalID,
		Name:          input.Name,
		FullName:      input.FullName,
		URL:           input.URL,
		DefaultBranch: input.DefaultBranch,
		IsPrivate:     input.IsPrivate,
		Language:      optionalString(input.Language),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.Repository{}, ports.ErrDuplicateRepository
		}
		return ports.Repository{}, errs.Wrap(err, "insert repository")
	}
	return mapRepository(row), nil
}

func (s *RepositoryStore) UpdateMetadata(ctx context.Context, id string, meta ports.RepositoryMetadata) error {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"default_branch": meta.DefaultBranch,
		"is_private":     meta.IsPrivate,
		"updated_at":     time.Now().UTC(),
	}
	if meta.Language != "" {
		updates["language"] = meta.Language
	}

	result := db.Model(&model.Repository{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update repository metadata")
	}
	if result.RowsAffected == 0 {
		return ports.ErrRepositoryNotFound
	}
	return nil
}

func (s *RepositoryStore) SetExternalID(ctx context.Context, id string, externalID string) error {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return err
	}

	result := db.Model(&model.Repository{}).Where("id = ?", id).Updates(map[string]any{
		"external_id": externalID,
		"updated_at":  time.Now().UTC(),
	})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ports.ErrDuplicateRepository
		}
		return errs.Wrap(result.Error, "set repository external id")
	}
	if result.RowsAffected == 0 {
		return ports.ErrRepositoryNotFound
	}
	return nil
}

func mapRepository(row model.Repository) ports.Repository {
	language := ""
	if row.Language != nil {
		language = *row.Language
	}
	return ports.Repository{
		ID:            row.ID,
		Provider:      review.Provider(row.Provider),
		ExternalID:    row.ExternalID,
		Name:          row.Name,
		FullName:      row.FullName,
		URL:           row.URL,
		DefaultBranch: row.DefaultBranch,
		IsPrivate:     row.IsPrivate,
		Language:      language,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
