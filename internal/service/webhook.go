package service

import (
	"context"
	"errors"
	"fmt"
	"marketplace-gateway/internal/dto"
	"marketplace-gateway/internal/model"
	"marketplace-gateway/internal/repository"
	"strings"

	"github.com/google/uuid"
)

var ErrWebhookNotFound = errors.New("webhook not found")

type WebhookService interface {
	// Register creates a subscription; the signing secret is returned once
	Register(ctx context.Context, apiKeyID uint, req *dto.RegisterWebhookRequest) (*dto.WebhookResponse, error)
	List(ctx context.Context, apiKeyID uint) ([]*dto.WebhookResponse, error)
	Deactivate(ctx context.Context, apiKeyID, webhookID uint) error
	// Reactivate is the explicit owner action required after auto-disable
	Reactivate(ctx context.Context, apiKeyID, webhookID uint) error
	Deliveries(ctx context.Context, apiKeyID, webhookID uint, limit, offset int) ([]*model.WebhookDelivery, error)
}

type webhookServiceImpl struct {
	webhooks   repository.WebhookRepository
	deliveries repository.DeliveryRepository
}

func NewWebhookService(webhooks repository.WebhookRepository, deliveries repository.DeliveryRepository) WebhookService {
	return &webhookServiceImpl{
		webhooks:   webhooks,
		deliveries: deliveries,
	}
}

func (s *webhookServiceImpl) Register(ctx context.Context, apiKeyID uint, req *dto.RegisterWebhookRequest) (*dto.WebhookResponse, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if len(req.Events) == 0 {
		return nil, fmt.Errorf("at least one event subscription is required")
	}

	secret := "whsec_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	wh := &model.Webhook{
		APIKeyID: apiKeyID,
		URL:      req.URL,
		Events:   strings.Join(req.Events, ","),
		Secret:   secret,
		IsActive: true,
	}
	if err := s.webhooks.Create(ctx, wh); err != nil {
		return nil, fmt.Errorf("store webhook: %w", err)
	}

	resp := toWebhookResponse(wh)
	resp.Secret = secret
	return resp, nil
}

func (s *webhookServiceImpl) List(ctx context.Context, apiKeyID uint) ([]*dto.WebhookResponse, error) {
	webhooks, err := s.webhooks.ListByAPIKey(ctx, apiKeyID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}

	out := make([]*dto.WebhookResponse, len(webhooks))
	for i, wh := range webhooks {
		out[i] = toWebhookResponse(wh)
	}
	return out, nil
}

func (s *webhookServiceImpl) owned(ctx context.Context, apiKeyID, webhookID uint) (*model.Webhook, error) {
	wh, err := s.webhooks.FindByID(ctx, webhookID)
	if err != nil || wh.APIKeyID != apiKeyID {
		return nil, ErrWebhookNotFound
	}
	return wh, nil
}

func (s *webhookServiceImpl) Deactivate(ctx context.Context, apiKeyID, webhookID uint) error {
	wh, err := s.owned(ctx, apiKeyID, webhookID)
	if err != nil {
		return err
	}
	return s.webhooks.SetActive(ctx, wh.ID, false)
}

func (s *webhookServiceImpl) Reactivate(ctx context.Context, apiKeyID, webhookID uint) error {
	wh, err := s.owned(ctx, apiKeyID, webhookID)
	if err != nil {
		return err
	}
	return s.webhooks.SetActive(ctx, wh.ID, true)
}

func (s *webhookServiceImpl) Deliveries(ctx context.Context, apiKeyID, webhookID uint, limit, offset int) ([]*model.WebhookDelivery, error) {
	wh, err := s.owned(ctx, apiKeyID, webhookID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.deliveries.ListByWebhook(ctx, wh.ID, limit, offset)
}

func toWebhookResponse(wh *model.Webhook) *dto.WebhookResponse {
	return &dto.WebhookResponse{
		ID:              wh.ID,
		URL:             wh.URL,
		Events:          wh.EventList(),
		IsActive:        wh.IsActive,
		FailureCount:    wh.FailureCount,
		LastDeliveredAt: wh.LastDeliveredAt,
		CreatedAt:       wh.CreatedAt,
	}
}
