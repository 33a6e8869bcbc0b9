package repository

import (
	"context"
	"marketplace-gateway/internal/model"

	"gorm.io/gorm"
)

type UsageLogRepository interface {
	Create(ctx context.Context, entry *model.APIUsageLog) error
}

type usageLogRepositoryImpl struct {
	db *gorm.DB
}

func NewUsageLogRepository(db *gorm.DB) UsageLogRepository {
	return &usageLogRepositoryImpl{db: db}
}

func (r *usageLogRepositoryImpl) Create(ctx context.Context, entry *model.APIUsageLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
