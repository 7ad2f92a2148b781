package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductService manages the catalog terminals sell from.
type ProductService interface {
	ListProducts(ctx context.Context) ([]models.Product, *ServiceError)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, *ServiceError)
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, *ServiceError)
	AdjustStock(ctx context.Context, id uuid.UUID, req *models.AdjustStockRequest) (*models.Product, *ServiceError)
}

type productServiceImpl struct {
	repo   repository.ProductRepository
	logger *zap.Logger
}

func NewProductService(repo repository.ProductRepository, logger *zap.Logger) ProductService {
	return &productServiceImpl{repo: repo, logger: logger}
}

func (s *productServiceImpl) ListProducts(ctx context.Context) ([]models.Product, *ServiceError) {
	products, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to fetch products", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch products"}
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (s *productServiceImpl) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, *ServiceError) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Product not found"}
		}
		s.logger.Error("failed to fetch product", zap.String("product_id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch product"}
	}
	return product, nil
}

func (s *productServiceImpl) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, *ServiceError) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "Product name is required"}
	}

	product := &models.Product{
		Name:  name,
		Price: models.RoundMoney(req.Price),
		Stock: req.Stock,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		s.logger.Error("failed to create product", zap.String("name", name), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create product"}
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
		zap.Int("stock", product.Stock),
	)
	return product, nil
}

// AdjustStock applies a manual stock change. Unlike sales, adjustments may not
// take stock below zero.
func (s *productServiceImpl) AdjustStock(ctx context.Context, id uuid.UUID, req *models.AdjustStockRequest) (*models.Product, *ServiceError) {
	if req.Delta == 0 {
		return nil, &ServiceError{StatusCode: 400, Message: "Delta must not be zero"}
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Manual adjustment"
	}

	product, err := s.repo.AdjustStock(ctx, id, req.Delta, reason)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, &ServiceError{StatusCode: 404, Message: "Product not found"}
	case errors.Is(err, repository.ErrInsufficientStock):
		return nil, &ServiceError{StatusCode: 409, Message: "Not enough stock available"}
	case err != nil:
		s.logger.Error("failed to adjust stock", zap.String("product_id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to adjust stock"}
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", id.String()),
		zap.Int("delta", req.Delta),
		zap.Int("stock", product.Stock),
		zap.String("reason", reason),
	)
	return product, nil
}
