package repository

import (
	"context"
	"marketplace-gateway/internal/model"
	"time"

	"gorm.io/gorm"
)

type APIKeyRepository interface {
	Create(ctx context.Context, key *model.APIKey) error
	FindByPublicID(ctx context.Context, publicID string) (*model.APIKey, error)
	ListByAccount(ctx context.Context, accountID string) ([]*model.APIKey, error)

	// IncrementUsage consumes one unit of quota before the protected call runs
	IncrementUsage(ctx context.Context, id uint, at time.Time) error
	// ResetUsage starts a fresh 24h window with the current call already counted
	ResetUsage(ctx context.Context, id uint, at time.Time) error

	// Rotate atomically replaces the public/secret pair
	Rotate(ctx context.Context, id uint, newPublicID, newSecretHash string) error
	Deactivate(ctx context.Context, id uint) error
}

type apiKeyRepositoryImpl struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepositoryImpl{db: db}
}

func (r *apiKeyRepositoryImpl) Create(ctx context.Context, key *model.APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *apiKeyRepositoryImpl) FindByPublicID(ctx context.Context, publicID string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&key).Error

	if err != nil {
		return nil, err
	}

	return &key, nil
}

func (r *apiKeyRepositoryImpl) ListByAccount(ctx context.Context, accountID string) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&keys).Error

	if err != nil {
		return nil, err
	}

	return keys, nil
}

func (r *apiKeyRepositoryImpl) IncrementUsage(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"daily_requests": gorm.Expr("daily_requests + 1"),
			"last_used_at":   at,
		}).Error
}

func (r *apiKeyRepositoryImpl) ResetUsage(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"daily_requests": 1,
			"last_reset_at":  at,
			"last_used_at":   at,
		}).Error
}

func (r *apiKeyRepositoryImpl) Rotate(ctx context.Context, id uint, newPublicID, newSecretHash string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.APIKey{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"public_id":   newPublicID,
				"secret_hash": newSecretHash,
				"updated_at":  time.Now(),
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *apiKeyRepositoryImpl) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
