package services

import (
	"context"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/repository"
	"go.uber.org/zap"
)

const (
	defaultRejectedLimit = 50
	maxRejectedLimit     = 500
)

// RejectedCommitService lists commits the queue consumer parked.
type RejectedCommitService interface {
	ListRejected(ctx context.Context, limit int) ([]models.RejectedCommit, *ServiceError)
}

type rejectedCommitServiceImpl struct {
	repo   repository.RejectedCommitRepository
	logger *zap.Logger
}

func NewRejectedCommitService(repo repository.RejectedCommitRepository, logger *zap.Logger) RejectedCommitService {
	return &rejectedCommitServiceImpl{repo: repo, logger: logger}
}

// ListRejected clamps limit to [1, 500]; zero or less means the default of 50.
func (s *rejectedCommitServiceImpl) ListRejected(ctx context.Context, limit int) ([]models.RejectedCommit, *ServiceError) {
	if limit <= 0 {
		limit = defaultRejectedLimit
	}
	if limit > maxRejectedLimit {
		limit = maxRejectedLimit
	}

	rejected, err := s.repo.List(ctx, limit)
	if err != nil {
		s.logger.Error("failed to fetch rejected commits", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch rejected commits"}
	}
	if rejected == nil {
		rejected = []models.RejectedCommit{}
	}
	return rejected, nil
}
