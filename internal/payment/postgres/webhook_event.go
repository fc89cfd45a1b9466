package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/webhook"
	paymentpkg "github.com/oneroskilfu/ireva-app-sub001/internal/payment"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) paymentpkg.WebhookEventRepositoryAPI {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, e *webhook.Event) error {
	return database.Conn(ctx, r.db).Create(e).Error
}

// Complete records what processing made of a stored delivery.
func (r *WebhookEventRepository) Complete(ctx context.Context, e *webhook.Event) error {
	return database.Conn(ctx, r.db).Model(&webhook.Event{}).
		Where("id = ?", e.ID).
		Updates(map[string]interface{}{
			"provider_event_id": e.ProviderEventID,
			"order_id":          e.OrderID,
			"status":            e.Status,
			"outcome":           e.Outcome,
			"processing_error":  e.ProcessingError,
			"processed_at":      e.ProcessedAt,
		}).Error
}
