package repository

import (
	"context"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"gorm.io/gorm"
)

// RejectedCommitRepository parks commit queue messages the service refused.
type RejectedCommitRepository interface {
	Save(ctx context.Context, rejected *models.RejectedCommit) error
	// List returns the newest rejections first.
	List(ctx context.Context, limit int) ([]models.RejectedCommit, error)
}

type GormRejectedCommitRepository struct {
	db *gorm.DB
}

func NewGormRejectedCommitRepository(db *gorm.DB) RejectedCommitRepository {
	return &GormRejectedCommitRepository{db: db}
}

func (r *GormRejectedCommitRepository) Save(ctx context.Context, rejected *models.RejectedCommit) error {
	return r.db.WithContext(ctx).Create(rejected).Error
}

func (r *GormRejectedCommitRepository) List(ctx context.Context, limit int) ([]models.RejectedCommit, error) {
	var rejected []models.RejectedCommit
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rejected).Error; err != nil {
		return nil, err
	}
	return rejected, nil
}
