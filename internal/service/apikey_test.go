package service

import (
	"context"
	"errors"
	"fmt"
	"marketplace-gateway/internal/dto"
	"marketplace-gateway/internal/model"
	"marketplace-gateway/internal/repository"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupKeyService(t *testing.T) (APIKeyService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.APIKey{}))
	return NewAPIKeyService(repository.NewAPIKeyRepository(db)), db
}

func createKey(t *testing.T, svc APIKeyService, tier string) *dto.CreatedKeyResponse {
	t.Helper()
	created, err := svc.Create(context.Background(), "acct-1", &dto.CreateKeyRequest{Tier: tier})
	require.NoError(t, err)
	return created
}

func TestCreate_ReturnsSecretOnceAndStoresHash(t *testing.T) {
	svc, db := setupKeyService(t)

	created := createKey(t, svc, TierStarter)
	assert.True(t, strings.HasPrefix(created.PublicID, "pk_live_"))
	assert.True(t, strings.HasPrefix(created.Secret, "sk_live_"))
	assert.Equal(t, int64(10_000), created.DailyLimit)
	assert.ElementsMatch(t, []string{"read", "write"}, created.Permissions)

	var stored model.APIKey
	require.NoError(t, db.Where("public_id = ?", created.PublicID).First(&stored).Error)

	// only the bcrypt hash is persisted
	assert.NotEqual(t, created.Secret, stored.SecretHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.SecretHash), []byte(created.Secret)))
}

func TestCreate_SandboxKeysUseTestPrefix(t *testing.T) {
	svc, _ := setupKeyService(t)

	created, err := svc.Create(context.Background(), "acct-1", &dto.CreateKeyRequest{
		Tier:    TierFree,
		Sandbox: true,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.PublicID, "pk_test_"))
	assert.True(t, strings.HasPrefix(created.Secret, "sk_test_"))
}

func TestCreate_RejectsUnknownTier(t *testing.T) {
	svc, _ := setupKeyService(t)

	_, err := svc.Create(context.Background(), "acct-1", &dto.CreateKeyRequest{Tier: "platinum"})
	assert.ErrorIs(t, err, ErrInvalidTier)
}

func TestAuthorize_Ladder(t *testing.T) {
	svc, db := setupKeyService(t)
	ctx := context.Background()

	created := createKey(t, svc, TierFree)

	t.Run("unknown key", func(t *testing.T) {
		_, _, err := svc.Authorize(ctx, "pk_live_nope", "", false)
		assert.ErrorIs(t, err, ErrInvalidAPIKey)
	})

	t.Run("valid key without secret", func(t *testing.T) {
		key, info, err := svc.Authorize(ctx, created.PublicID, "", false)
		require.NoError(t, err)
		assert.Equal(t, created.PublicID, key.PublicID)
		assert.Equal(t, int64(1_000), info.Limit)
		assert.Equal(t, int64(999), info.Remaining)
	})

	t.Run("secret required but missing", func(t *testing.T) {
		_, _, err := svc.Authorize(ctx, created.PublicID, "", true)
		assert.ErrorIs(t, err, ErrInvalidSecret)
	})

	t.Run("wrong secret rejected even when optional", func(t *testing.T) {
		_, _, err := svc.Authorize(ctx, created.PublicID, "sk_live_wrong", false)
		assert.ErrorIs(t, err, ErrInvalidSecret)
	})

	t.Run("correct secret", func(t *testing.T) {
		_, _, err := svc.Authorize(ctx, created.PublicID, created.Secret, true)
		assert.NoError(t, err)
	})

	t.Run("expired key", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		require.NoError(t, db.Model(&model.APIKey{}).
			Where("public_id = ?", created.PublicID).
			Update("expires_at", past).Error)

		_, _, err := svc.Authorize(ctx, created.PublicID, "", false)
		assert.ErrorIs(t, err, ErrKeyExpired)
	})

	t.Run("deactivated key", func(t *testing.T) {
		require.NoError(t, db.Model(&model.APIKey{}).
			Where("public_id = ?", created.PublicID).
			Updates(map[string]any{"expires_at": nil, "is_active": false}).Error)

		_, _, err := svc.Authorize(ctx, created.PublicID, "", false)
		assert.ErrorIs(t, err, ErrKeyDeactivated)
	})
}

func TestAuthorize_QuotaExhaustion(t *testing.T) {
	svc, db := setupKeyService(t)
	ctx := context.Background()

	created := createKey(t, svc, TierFree)

	var stored model.APIKey
	require.NoError(t, db.Where("public_id = ?", created.PublicID).First(&stored).Error)
	require.NoError(t, db.Model(&stored).Update("daily_requests", stored.DailyLimit).Error)

	_, _, err := svc.Authorize(ctx, created.PublicID, "", false)

	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, int64(1_000), rateErr.Limit)
	assert.Equal(t, TierFree, rateErr.Tier)
	assert.WithinDuration(t, stored.LastResetAt.Add(24*time.Hour), rateErr.ResetAt, time.Second)
}

func TestAuthorize_RollingWindowReset(t *testing.T) {
	svc, db := setupKeyService(t)
	ctx := context.Background()

	created := createKey(t, svc, TierFree)

	// exhausted quota, but the window opened more than 24h ago
	require.NoError(t, db.Model(&model.APIKey{}).
		Where("public_id = ?", created.PublicID).
		Updates(map[string]any{
			"daily_requests": 1_000,
			"last_reset_at":  time.Now().Add(-25 * time.Hour),
		}).Error)

	key, info, err := svc.Authorize(ctx, created.PublicID, "", false)
	require.NoError(t, err)

	// the admitting call itself is the first consumed unit of the new window
	assert.Equal(t, int64(1), key.DailyRequests)
	assert.Equal(t, int64(999), info.Remaining)

	var stored model.APIKey
	require.NoError(t, db.Where("public_id = ?", created.PublicID).First(&stored).Error)
	assert.Equal(t, int64(1), stored.DailyRequests)
	assert.WithinDuration(t, time.Now(), stored.LastResetAt, 5*time.Second)
}

func TestAuthorize_ConsumesQuotaPerCall(t *testing.T) {
	svc, db := setupKeyService(t)
	ctx := context.Background()

	created := createKey(t, svc, TierFree)

	for i := 0; i < 3; i++ {
		_, _, err := svc.Authorize(ctx, created.PublicID, "", false)
		require.NoError(t, err)
	}

	var stored model.APIKey
	require.NoError(t, db.Where("public_id = ?", created.PublicID).First(&stored).Error)
	assert.Equal(t, int64(3), stored.DailyRequests)
}

func TestRotate_InvalidatesOldPublicID(t *testing.T) {
	svc, _ := setupKeyService(t)
	ctx := context.Background()

	created := createKey(t, svc, TierPro)

	rotated, err := svc.Rotate(ctx, "acct-1", created.PublicID)
	require.NoError(t, err)
	assert.NotEqual(t, created.PublicID, rotated.PublicID)
	assert.NotEqual(t, created.Secret, rotated.Secret)
	assert.Equal(t, TierPro, rotated.Tier)

	_, _, err = svc.Authorize(ctx, created.PublicID, "", false)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, _, err = svc.Authorize(ctx, rotated.PublicID, rotated.Secret, true)
	assert.NoError(t, err)
}

func TestRotate_RejectsForeignAccount(t *testing.T) {
	svc, _ := setupKeyService(t)

	created := createKey(t, svc, TierFree)

	_, err := svc.Rotate(context.Background(), "acct-2", created.PublicID)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestDeactivate_ThenAuthorizeFails(t *testing.T) {
	svc, _ := setupKeyService(t)
	ctx := context.Background()

	created := createKey(t, svc, TierFree)
	require.NoError(t, svc.Deactivate(ctx, "acct-1", created.PublicID))

	_, _, err := svc.Authorize(ctx, created.PublicID, "", false)
	assert.ErrorIs(t, err, ErrKeyDeactivated)
}

func TestList_SummariesNeverCarrySecrets(t *testing.T) {
	svc, _ := setupKeyService(t)
	ctx := context.Background()

	createKey(t, svc, TierFree)
	createKey(t, svc, TierEnterprise)

	summaries, err := svc.List(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.True(t, strings.HasPrefix(s.PublicID, "pk_"))
	}

	other, err := svc.List(ctx, "acct-other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name        string
		permissions string
		required    []string
		want        bool
	}{
		{"direct match", "read,write", []string{"write"}, true},
		{"any of several", "read", []string{"write", "read"}, true},
		{"missing", "read", []string{"webhook"}, false},
		{"admin covers everything", "admin", []string{"whitelabel"}, true},
		{"empty set", "", []string{"read"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := &model.APIKey{Permissions: tt.permissions}
			assert.Equal(t, tt.want, HasPermission(key, tt.required...))
		})
	}
}
