package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CustomerService looks customers up by cedula, the national id number
// cashiers ask for at checkout.
type CustomerService interface {
	FindByCedula(ctx context.Context, cedula string) (*models.Customer, *ServiceError)
	CreateCustomer(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, *ServiceError)
}

type customerServiceImpl struct {
	repo   repository.CustomerRepository
	logger *zap.Logger
}

func NewCustomerService(repo repository.CustomerRepository, logger *zap.Logger) CustomerService {
	return &customerServiceImpl{repo: repo, logger: logger}
}

func (s *customerServiceImpl) FindByCedula(ctx context.Context, cedula string) (*models.Customer, *ServiceError) {
	cedula = strings.TrimSpace(cedula)
	if cedula == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "cedula is required"}
	}

	customer, err := s.repo.FindByCedula(ctx, cedula)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Customer not found"}
		}
		s.logger.Error("failed to fetch customer", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch customer"}
	}
	return customer, nil
}

func (s *customerServiceImpl) CreateCustomer(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, *ServiceError) {
	cedula := strings.TrimSpace(req.Cedula)
	name := strings.TrimSpace(req.Name)
	if cedula == "" || name == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "cedula and name are required"}
	}

	if _, err := s.repo.FindByCedula(ctx, cedula); err == nil {
		return nil, &ServiceError{StatusCode: 409, Message: "A customer with this cedula already exists"}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("failed to check customer", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create customer"}
	}

	customer := &models.Customer{
		Cedula: cedula,
		Name:   name,
		Email:  strings.TrimSpace(req.Email),
		Phone:  strings.TrimSpace(req.Phone),
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		s.logger.Error("failed to create customer", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create customer"}
	}

	s.logger.Info("customer created", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}
