package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"schoolpay/internal/models/db_models"
)

type WebhookEventRepository interface {
	FindByEventID(ctx context.Context, eventID string) (*db_models.WebhookEvent, error)
	// Record inserts the delivery or, for a redelivery, bumps Attempts and stores the latest outcome.
	Record(ctx context.Context, event *db_models.WebhookEvent) error
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (w *webhookEventRepository) FindByEventID(ctx context.Context, eventID string) (*db_models.WebhookEvent, error) {
	var event db_models.WebhookEvent
	err := w.db.WithContext(ctx).First(&event, "event_id = ?", eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (w *webhookEventRepository) Record(ctx context.Context, event *db_models.WebhookEvent) error {
	existing, err := w.FindByEventID(ctx, event.EventID)
	if err != nil {
		return err
	}

	if existing == nil {
		event.Attempts = 1
		return w.db.WithContext(ctx).Create(event).Error
	}

	event.ID = existing.ID
	event.Attempts = existing.Attempts + 1
	return w.db.WithContext(ctx).
		Model(existing).
		Updates(map[string]interface{}{
			"outcome":  event.Outcome,
			"error":    event.Error,
			"attempts": event.Attempts,
		}).Error
}
