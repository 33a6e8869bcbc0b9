package repository

import (
	"context"
	"marketplace-gateway/internal/model"

	"gorm.io/gorm"
)

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *model.WebhookDelivery) error
	ListByWebhook(ctx context.Context, webhookID uint, limit, offset int) ([]*model.WebhookDelivery, error)
}

type deliveryRepositoryImpl struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepositoryImpl{db: db}
}

func (r *deliveryRepositoryImpl) Create(ctx context.Context, delivery *model.WebhookDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *deliveryRepositoryImpl) ListByWebhook(ctx context.Context, webhookID uint, limit, offset int) ([]*model.WebhookDelivery, error) {
	var deliveries []*model.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("webhook_id = ?", webhookID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&deliveries).Error

	if err != nil {
		return nil, err
	}

	return deliveries, nil
}
