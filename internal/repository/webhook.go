package repository

import (
	"context"
	"marketplace-gateway/internal/model"
	"time"

	"gorm.io/gorm"
)

type WebhookRepository interface {
	Create(ctx context.Context, webhook *model.Webhook) error
	FindByID(ctx context.Context, id uint) (*model.Webhook, error)
	FindActive(ctx context.Context) ([]*model.Webhook, error)
	ListByAPIKey(ctx context.Context, apiKeyID uint) ([]*model.Webhook, error)

	// MarkDelivered resets the consecutive-failure counter after any success
	MarkDelivered(ctx context.Context, id uint, at time.Time) error
	// RecordFailure increments the counter and deactivates the webhook once
	// it reaches the threshold
	RecordFailure(ctx context.Context, id uint, disableThreshold int) error
	SetActive(ctx context.Context, id uint, active bool) error
}

type webhookRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepositoryImpl{db: db}
}

func (r *webhookRepositoryImpl) Create(ctx context.Context, webhook *model.Webhook) error {
	return r.db.WithContext(ctx).Create(webhook).Error
}

func (r *webhookRepositoryImpl) FindByID(ctx context.Context, id uint) (*model.Webhook, error) {
	var webhook model.Webhook
	err := r.db.WithContext(ctx).First(&webhook, id).Error
	if err != nil {
		return nil, err
	}
	return &webhook, nil
}

func (r *webhookRepositoryImpl) FindActive(ctx context.Context) ([]*model.Webhook, error) {
	var webhooks []*model.Webhook
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&webhooks).Error

	if err != nil {
		return nil, err
	}

	return webhooks, nil
}

func (r *webhookRepositoryImpl) ListByAPIKey(ctx context.Context, apiKeyID uint) ([]*model.Webhook, error) {
	var webhooks []*model.Webhook
	err := r.db.WithContext(ctx).
		Where("api_key_id = ?", apiKeyID).
		Order("created_at DESC").
		Find(&webhooks).Error

	if err != nil {
		return nil, err
	}

	return webhooks, nil
}

func (r *webhookRepositoryImpl) MarkDelivered(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Webhook{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failure_count":     0,
			"last_delivered_at": at,
		}).Error
}

func (r *webhookRepositoryImpl) RecordFailure(ctx context.Context, id uint, disableThreshold int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Webhook{}).
			Where("id = ?", id).
			UpdateColumn("failure_count", gorm.Expr("failure_count + 1")).Error
		if err != nil {
			return err
		}

		var webhook model.Webhook
		if err := tx.First(&webhook, id).Error; err != nil {
			return err
		}

		if webhook.FailureCount >= disableThreshold {
			return tx.Model(&model.Webhook{}).
				Where("id = ?", id).
				Update("is_active", false).Error
		}
		return nil
	})
}

func (r *webhookRepositoryImpl) SetActive(ctx context.Context, id uint, active bool) error {
	updates := map[string]interface{}{"is_active": active}
	if active {
		// explicit reactivation starts with a clean slate
		updates["failure_count"] = 0
	}

	return r.db.WithContext(ctx).Model(&model.Webhook{}).
		Where("id = ?", id).
		Updates(updates).Error
}
