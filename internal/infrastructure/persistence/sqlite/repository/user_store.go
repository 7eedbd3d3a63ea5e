package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"reviewdeck/internal/errs"
	"reviewdeck/internal/infrastructure/persistence/sqlite/model"
	"reviewdeck/internal/ports"
)

type UserStore struct {
	db *gorm.DB
}

var _ ports.UserStore = (*UserStore)(nil)

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Get(ctx context.Context, id string) (ports.User, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.User{}, err
	}

	var row model.User
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.User{}, ports.ErrUserNotFound
		}
		return ports.User{}, errs.Wrap(err, "query user")
	}
	return mapUser(row), nil
}

func (s *UserStore) FindRepositoryOwner(ctx context.Context, repositoryID string) (ports.User, error) {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return ports.User{}, err
	}

	// Direct ownership wins; organization membership is the fallback.
	var row model.User
	direct := db.Model(&model.RepositoryOwner{}).
		Select("user_id").
		Where("repository_id = ?", repositoryID)
	err = db.Where("id IN (?)", direct).Order("id asc").Take(&row).Error
	if err == nil {
		return mapUser(row), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.User{}, errs.Wrap(err, "query direct repository owner")
	}

	owningOrgs := db.Model(&model.OrganizationRepository{}).
		Select("organization_id").
		Where("repository_id = ?", repositoryID)
	members := db.Model(&model.OrganizationMember{}).
		Select("user_id").
		Where("organization_id IN (?)", owningOrgs)
	if err := db.Where("id IN (?)", members).Order("id asc").Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.User{}, ports.ErrUserNotFound
		}
		return ports.User{}, errs.Wrap(err, "query organization repository owner")
	}
	return mapUser(row), nil
}

func mapUser(row model.User) ports.User {
	return ports.User{
		ID:    row.ID,
		Email: row.Email,
		Name:  row.Name,
	}
}
