package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/logger"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"go.uber.org/zap"
)

// ErrCustomerNotFound is returned by a CustomerDirectory when no customer has
// the cedula.
var ErrCustomerNotFound = errors.New("customer not found")

// CustomerDirectory finds customers on the order service.
type CustomerDirectory interface {
	FindCustomer(ctx context.Context, cedula string) (*models.Customer, error)
}

// FindCustomer calls the order service's GET /customers?cedula=. Transport
// failures and 5xx answers come back as *TransientError.
func (c *HTTPOrderClient) FindCustomer(ctx context.Context, cedula string) (*models.Customer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/customers?cedula="+url.QueryEscape(cedula), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(terminalHeader, c.terminalID)
	req.Header.Set("X-User-ID", c.userID)
	if rid := logger.GetRequestID(ctx); rid != "unknown" {
		req.Header.Set(logger.RequestIDHeader, rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransientError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var customer models.Customer
		if err := json.Unmarshal(body, &customer); err != nil || customer.ID == "" {
			return nil, &TransientError{StatusCode: resp.StatusCode, Err: errors.New("malformed customer response")}
		}
		return &customer, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCustomerNotFound
	case resp.StatusCode >= 500:
		return nil, &TransientError{StatusCode: resp.StatusCode, Err: errors.New(errorMessage(body, resp.Status))}
	default:
		return nil, fmt.Errorf("customer lookup failed (%d): %s", resp.StatusCode, errorMessage(body, resp.Status))
	}
}

// CustomerService looks up the customer a sale is attributed to. Lookups
// need the order service, so they fail fast while the terminal is offline;
// a sale can still be completed without a customer.
type CustomerService interface {
	LookupCustomer(ctx context.Context, cedula string) (*models.Customer, *ServiceError)
}

type customerServiceImpl struct {
	directory CustomerDirectory
	network   Connectivity
	logger    *zap.Logger
}

func NewCustomerService(directory CustomerDirectory, network Connectivity, logger *zap.Logger) CustomerService {
	return &customerServiceImpl{directory: directory, network: network, logger: logger}
}

func (s *customerServiceImpl) LookupCustomer(ctx context.Context, cedula string) (*models.Customer, *ServiceError) {
	cedula = strings.TrimSpace(cedula)
	if cedula == "" {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "cedula is required"}
	}
	if !s.network.IsOnline() {
		return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Customer lookup is not available offline"}
	}

	customer, err := s.directory.FindCustomer(ctx, cedula)
	switch {
	case err == nil:
		return customer, nil
	case errors.Is(err, ErrCustomerNotFound):
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Customer not found"}
	case IsTransient(err):
		s.logger.Warn("Customer lookup failed, marking offline", zap.Error(err))
		s.network.Set(false)
		return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Customer lookup is not available offline"}
	default:
		s.logger.Error("Customer lookup failed", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusBadGateway, Message: "Customer lookup failed"}
	}
}
