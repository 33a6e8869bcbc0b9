package service

import (
	"context"
	"fmt"
	"marketplace-gateway/internal/dto"
	"marketplace-gateway/internal/model"
	"marketplace-gateway/internal/repository"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupWebhookService(t *testing.T) (WebhookService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Webhook{}, &model.WebhookDelivery{}))

	svc := NewWebhookService(
		repository.NewWebhookRepository(db),
		repository.NewDeliveryRepository(db),
	)
	return svc, db
}

func TestRegister_ReturnsSecretOnce(t *testing.T) {
	svc, _ := setupWebhookService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, 1, &dto.RegisterWebhookRequest{
		URL:    "https://partner.example.com/hooks",
		Events: []string{"order.created", "order.delivered"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Secret, "whsec_"))
	assert.True(t, resp.IsActive)
	assert.ElementsMatch(t, []string{"order.created", "order.delivered"}, resp.Events)

	// listing never exposes the secret again
	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Secret)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := setupWebhookService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, 1, &dto.RegisterWebhookRequest{Events: []string{"order.created"}})
	assert.Error(t, err)

	_, err = svc.Register(ctx, 1, &dto.RegisterWebhookRequest{URL: "https://partner.example.com/hooks"})
	assert.Error(t, err)
}

func TestWebhookOwnership(t *testing.T) {
	svc, _ := setupWebhookService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, 1, &dto.RegisterWebhookRequest{
		URL:    "https://partner.example.com/hooks",
		Events: []string{"*"},
	})
	require.NoError(t, err)

	// another key cannot touch or even see the subscription
	assert.ErrorIs(t, svc.Deactivate(ctx, 2, resp.ID), ErrWebhookNotFound)
	assert.ErrorIs(t, svc.Reactivate(ctx, 2, resp.ID), ErrWebhookNotFound)
	_, err = svc.Deliveries(ctx, 2, resp.ID, 10, 0)
	assert.ErrorIs(t, err, ErrWebhookNotFound)

	require.NoError(t, svc.Deactivate(ctx, 1, resp.ID))
}

func TestReactivate_ResetsFailureCount(t *testing.T) {
	svc, db := setupWebhookService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, 1, &dto.RegisterWebhookRequest{
		URL:    "https://partner.example.com/hooks",
		Events: []string{"*"},
	})
	require.NoError(t, err)

	// simulate auto-disable after repeated exhausted delivery sequences
	require.NoError(t, db.Model(&model.Webhook{}).
		Where("id = ?", resp.ID).
		Updates(map[string]any{"is_active": false, "failure_count": 10}).Error)

	require.NoError(t, svc.Reactivate(ctx, 1, resp.ID))

	var wh model.Webhook
	require.NoError(t, db.First(&wh, resp.ID).Error)
	assert.True(t, wh.IsActive)
	assert.Equal(t, 0, wh.FailureCount)
}

func TestDeliveries_ClampsLimit(t *testing.T) {
	svc, db := setupWebhookService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, 1, &dto.RegisterWebhookRequest{
		URL:    "https://partner.example.com/hooks",
		Events: []string{"*"},
	})
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		require.NoError(t, db.Create(&model.WebhookDelivery{
			WebhookID:  resp.ID,
			DeliveryID: fmt.Sprintf("dlv-%d", i),
			Event:      "order.created",
			Attempt:    1,
		}).Error)
	}

	rows, err := svc.Deliveries(ctx, 1, resp.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 50)

	rows, err = svc.Deliveries(ctx, 1, resp.ID, 500, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 50)

	rows, err = svc.Deliveries(ctx, 1, resp.ID, 10, 55)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}
