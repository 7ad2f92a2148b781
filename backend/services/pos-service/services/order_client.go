package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/logger"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"go.uber.org/zap"
)

const (
	idempotencyHeader = "Idempotency-Key"
	terminalHeader    = "X-Terminal-ID"
)

// CommitResult is the server's answer to a successful commit.
type CommitResult struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	TotalAmount float64 `json:"total_amount"`
	Duplicate   bool    `json:"duplicate"`
}

// OrderClient commits one order on the server. The server applies the
// whole order in one transaction. Errors are *ValidationError or
// *TransientError.
type OrderClient interface {
	CommitOrder(ctx context.Context, order models.QueuedOrder) (*CommitResult, error)
}

type commitRequest struct {
	LocalID        string             `json:"local_id"`
	Items          []models.OrderItem `json:"items"`
	TotalAmount    float64            `json:"total_amount"`
	PaymentMethod  string             `json:"payment_method"`
	CustomerID     *string            `json:"customer_id,omitempty"`
	CashierID      *string            `json:"cashier_id,omitempty"`
	CreatedAtLocal *time.Time         `json:"created_at_local,omitempty"`
}

// HTTPOrderClient calls the order service's POST /orders/commit. The local
// id is sent as the Idempotency-Key so a retry after a lost response does
// not commit twice.
type HTTPOrderClient struct {
	baseURL    string
	httpClient *http.Client
	terminalID string
	userID     string
	logger     *zap.Logger
}

func NewHTTPOrderClient(baseURL string, timeout time.Duration, terminalID, userID string, logger *zap.Logger) *HTTPOrderClient {
	return &HTTPOrderClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		terminalID: terminalID,
		userID:     userID,
		logger:     logger,
	}
}

func (c *HTTPOrderClient) CommitOrder(ctx context.Context, order models.QueuedOrder) (*CommitResult, error) {
	payload := commitRequest{
		LocalID:       order.LocalID,
		Items:         order.Items,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: string(order.PaymentMethod),
		CustomerID:    order.CustomerID,
		CashierID:     order.CashierID,
	}
	if !order.CreatedAtLocal.IsZero() {
		ts := order.CreatedAtLocal
		payload.CreatedAtLocal = &ts
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("encode order: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders/commit", bytes.NewReader(body))
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(idempotencyHeader, order.LocalID)
	req.Header.Set(terminalHeader, c.terminalID)
	userID := c.userID
	if order.CashierID != nil && *order.CashierID != "" {
		userID = *order.CashierID
	}
	req.Header.Set("X-User-ID", userID)
	if rid := logger.GetRequestID(ctx); rid != "unknown" {
		req.Header.Set(logger.RequestIDHeader, rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransientError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var result CommitResult
		if err := json.Unmarshal(respBody, &result); err != nil || result.OrderID == "" {
			return nil, &TransientError{StatusCode: resp.StatusCode, Err: errors.New("malformed commit response")}
		}
		if result.Duplicate {
			c.logger.Info("Order was already committed",
				zap.String("local_id", order.LocalID),
				zap.String("order_id", result.OrderID),
			)
		}
		return &result, nil

	case isValidationStatus(resp.StatusCode):
		return nil, &ValidationError{StatusCode: resp.StatusCode, Message: errorMessage(respBody, resp.Status)}

	default:
		return nil, &TransientError{StatusCode: resp.StatusCode, Err: errors.New(errorMessage(respBody, resp.Status))}
	}
}

func isValidationStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

func errorMessage(body []byte, fallback string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return fallback
}
