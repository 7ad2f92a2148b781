package repository

import (
	"context"
	"errors"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrProductNotFound is returned when a stock decrement targets no product.
var ErrProductNotFound = errors.New("product not found")

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// WithTx runs fn against a repository bound to a single transaction.
	// Returning an error from fn rolls everything back.
	WithTx(ctx context.Context, fn func(tx OrderRepository) error) error
	FindByLocalID(ctx context.Context, localID string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error)
	CreateStockMovements(ctx context.Context, movements []models.StockMovement) error
	FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new instance of GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) WithTx(ctx context.Context, fn func(tx OrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormOrderRepository{db: tx})
	})
}

// FindByLocalID returns gorm.ErrRecordNotFound when no order carries localID.
func (r *GormOrderRepository) FindByLocalID(ctx context.Context, localID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("local_id = ?", localID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Create inserts the order header and its items.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// DecrementStock subtracts quantity from the product and returns the new
// stock level, which may be negative.
func (r *GormOrderRepository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	var product models.Product
	res := r.db.WithContext(ctx).
		Model(&product).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "stock"}}}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrProductNotFound
	}
	return product.Stock, nil
}

func (r *GormOrderRepository) CreateStockMovements(ctx context.Context, movements []models.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&movements).Error
}

// FindAll retrieves all orders with pagination, newest first
func (r *GormOrderRepository) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("OrderItems").
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// FindByID retrieves an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order

	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}

	return &order, nil
}

// UpdateStatus returns gorm.ErrRecordNotFound when no order matches id.
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
