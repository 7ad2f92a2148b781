package repository

import (
	"context"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"gorm.io/gorm"
)

// CustomerRepository stores the customers a sale can be attributed to.
type CustomerRepository interface {
	// FindByCedula returns gorm.ErrRecordNotFound when nobody has that id number.
	FindByCedula(ctx context.Context, cedula string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
}

type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) CustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) FindByCedula(ctx context.Context, cedula string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("cedula = ?", cedula).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *GormCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}
