package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"reviewdeck/internal/domain/review"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/infrastructure/persistence/sqlite/model"
	"reviewdeck/internal/ports"
)

type DeliveryStore struct {
	db *gorm.DB
}

var _ ports.DeliveryStore = (*DeliveryStore)(nil)

func NewDeliveryStore(db *gorm.DB) *DeliveryStore {
	return &DeliveryStore{db: db}
}

func (s *DeliveryStore) Record(ctx context.Context, provider review.Provider, deliveryID string) error {
	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return err
	}

	row := model.WebhookDelivery{
		Provider:   string(provider),
		DeliveryID: deliveryID,
		ReceivedAt: time.Now().UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateDelivery
		}
		return errs.Wrap(err, "insert webhook delivery")
	}
	return nil
}
