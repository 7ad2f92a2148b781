package repository

import (
	"context"
	"errors"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock is returned when an adjustment would take stock below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// ProductRepository is the catalog the commit transaction decrements.
type ProductRepository interface {
	List(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// AdjustStock applies delta and records the movement in one transaction.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int, reason string) (*models.Product, error)
}

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindByID returns gorm.ErrRecordNotFound when no product matches id.
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *GormProductRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int, reason string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&product).Error; err != nil {
			return err
		}
		if product.Stock+delta < 0 {
			return ErrInsufficientStock
		}

		if err := tx.Model(&product).UpdateColumn("stock", gorm.Expr("stock + ?", delta)).Error; err != nil {
			return err
		}
		product.Stock += delta

		return tx.Create(&models.StockMovement{
			ProductID: id,
			Type:      models.MovementTypeAdjustment,
			Quantity:  delta,
			Reason:    reason,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}
