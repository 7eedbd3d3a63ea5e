package model

import "time"

// WebhookDelivery records a provider delivery ID so at-least-once
// redeliveries of the same event do not create duplicate reviews.
type WebhookDelivery struct {
	Provider   string    `gorm:"column:provider;type:text;primaryKey"`
	DeliveryID string    `gorm:"column:delivery_id;type:text;primaryKey"`
	ReceivedAt time.Time `gorm:"column:received_at;not null"`
}

func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
