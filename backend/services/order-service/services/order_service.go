package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/kafka"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	EventOrderCommitted = "pos.order.committed"

	// totals further apart than this are logged as a mismatch
	totalTolerance = 0.005
)

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Permanent reports whether retrying the same request can never succeed.
func (e *ServiceError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderService defines the order business logic.
type OrderService interface {
	CommitOrder(ctx context.Context, req *models.CommitOrderRequest) (*models.CommitOrderResponse, *ServiceError)
	ListOrders(ctx context.Context, page, limit int) (*OrderResponse, *ServiceError)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, *ServiceError)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) *ServiceError
}

type orderServiceImpl struct {
	repo    repository.OrderRepository
	events  kafka.EventPublisher
	metrics *awspkg.MetricsClient
	logger  *zap.Logger
	now     func() time.Time
}

// NewOrderService creates an OrderService. events and metrics may be nil.
func NewOrderService(repo repository.OrderRepository, events kafka.EventPublisher, metrics *awspkg.MetricsClient, logger *zap.Logger) OrderService {
	return &orderServiceImpl{
		repo:    repo,
		events:  events,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// CommitOrder records a completed sale in one transaction: order header,
// line items, stock decrements and SALE stock movements. A request whose
// local_id was already committed returns the existing order.
func (s *orderServiceImpl) CommitOrder(ctx context.Context, req *models.CommitOrderRequest) (*models.CommitOrderResponse, *ServiceError) {
	order, svcErr := s.buildOrder(req)
	if svcErr != nil {
		return nil, svcErr
	}

	if math.Abs(order.TotalAmount-req.TotalAmount) > totalTolerance {
		s.logger.Warn("client total differs from recomputed total",
			zap.String("local_id", req.LocalID),
			zap.Float64("client_total", req.TotalAmount),
			zap.Float64("server_total", order.TotalAmount),
		)
	}

	start := s.now()
	var existing *models.Order
	var negative []uuid.UUID

	err := s.repo.WithTx(ctx, func(tx repository.OrderRepository) error {
		found, err := tx.FindByLocalID(ctx, req.LocalID)
		if err == nil {
			existing = found
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(ctx, order); err != nil {
			return err
		}

		movements := make([]models.StockMovement, 0, len(order.OrderItems))
		for _, item := range order.OrderItems {
			remaining, err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
			}
			if remaining < 0 {
				negative = append(negative, item.ProductID)
			}
			movements = append(movements, models.StockMovement{
				ProductID: item.ProductID,
				OrderID:   &order.ID,
				Type:      models.MovementTypeSale,
				Quantity:  -item.Quantity,
				Reason:    "Order #" + order.ID.String()[:8],
			})
		}
		return tx.CreateStockMovements(ctx, movements)
	})

	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			s.recordMetric(awspkg.MetricOrdersRejected)
			return nil, &ServiceError{StatusCode: 422, Message: "Order references an unknown product"}
		case isDuplicateKey(err):
			// a concurrent commit of the same local_id won the unique index
			found, findErr := s.repo.FindByLocalID(ctx, req.LocalID)
			if findErr == nil {
				existing = found
				break
			}
			s.logger.Error("duplicate order but lookup failed", zap.String("local_id", req.LocalID), zap.Error(findErr))
			return nil, &ServiceError{StatusCode: 500, Message: "Failed to commit order"}
		default:
			s.logger.Error("commit transaction failed", zap.String("local_id", req.LocalID), zap.Error(err))
			return nil, &ServiceError{StatusCode: 500, Message: "Failed to commit order"}
		}
	}

	if existing != nil {
		s.logger.Info("order already committed",
			zap.String("local_id", req.LocalID),
			zap.String("order_id", existing.ID.String()),
		)
		s.recordMetric(awspkg.MetricOrdersDuplicate)
		return &models.CommitOrderResponse{
			OrderID:     existing.ID.String(),
			OrderNumber: existing.OrderNumber,
			TotalAmount: existing.TotalAmount,
			Duplicate:   true,
		}, nil
	}

	for _, pid := range negative {
		s.logger.Warn("stock went negative", zap.String("product_id", pid.String()), zap.String("order_id", order.ID.String()))
		s.recordMetric(awspkg.MetricStockNegative)
	}

	s.logger.Info("order committed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("local_id", req.LocalID),
		zap.Int("items", len(order.OrderItems)),
		zap.Float64("total_amount", order.TotalAmount),
	)
	s.recordMetric(awspkg.MetricOrdersCreated)
	if s.metrics.IsEnabled() {
		elapsed := s.now().Sub(start)
		go func() {
			mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.metrics.RecordLatency(mctx, awspkg.MetricCommitLatency, elapsed, map[string]string{"Service": "order-service"})
		}()
	}

	s.publishCommitted(ctx, order)

	return &models.CommitOrderResponse{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
	}, nil
}

func (s *orderServiceImpl) buildOrder(req *models.CommitOrderRequest) (*models.Order, *ServiceError) {
	localID := strings.TrimSpace(req.LocalID)
	if localID == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "local_id is required"}
	}
	if len(req.Items) == 0 {
		return nil, &ServiceError{StatusCode: 422, Message: "At least one item is required"}
	}
	if _, ok := models.PaymentMethods[req.PaymentMethod]; !ok {
		return nil, &ServiceError{StatusCode: 422, Message: "Unsupported payment method"}
	}

	orderID := uuid.New()
	items := make([]models.OrderItem, 0, len(req.Items))
	total := 0.0
	for _, it := range req.Items {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, &ServiceError{StatusCode: 422, Message: "Invalid product_id " + it.ProductID}
		}
		if it.Quantity < 1 {
			return nil, &ServiceError{StatusCode: 422, Message: "Quantity must be at least 1"}
		}
		if it.UnitPrice < 0 {
			return nil, &ServiceError{StatusCode: 422, Message: "Unit price cannot be negative"}
		}
		subtotal := models.RoundMoney(it.UnitPrice * float64(it.Quantity))
		total += subtotal
		items = append(items, models.OrderItem{
			OrderID:   orderID,
			ProductID: pid,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  subtotal,
		})
	}

	now := s.now()
	return &models.Order{
		ID:             orderID,
		OrderNumber:    "POS-" + now.Format("20060102-150405") + "-" + orderID.String()[:8],
		LocalID:        &localID,
		CashierID:      req.CashierID,
		CustomerID:     req.CustomerID,
		TotalAmount:    models.RoundMoney(total),
		PaymentMethod:  req.PaymentMethod,
		Status:         models.OrderStatusCompleted,
		CreatedAtLocal: req.CreatedAtLocal,
		OrderItems:     items,
	}, nil
}

func (s *orderServiceImpl) publishCommitted(ctx context.Context, order *models.Order) {
	if s.events == nil {
		return
	}

	evt := models.OrderCommittedEvent{
		Event:         EventOrderCommitted,
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		Timestamp:     s.now().UTC(),
	}
	if order.LocalID != nil {
		evt.LocalID = *order.LocalID
	}
	if order.CashierID != nil {
		evt.CashierID = *order.CashierID
	}
	for _, it := range order.OrderItems {
		evt.Items = append(evt.Items, models.CommittedItem{ProductID: it.ProductID.String(), Quantity: it.Quantity})
	}

	if err := s.events.PublishOrderCommitted(ctx, evt); err != nil {
		// the order is committed; downstream consumers can backfill from the table
		s.logger.Warn("order event publish failed", zap.String("order_id", evt.OrderID), zap.Error(err))
		s.recordMetric(awspkg.MetricEventPublishFail)
	}
}

func (s *orderServiceImpl) recordMetric(name string) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.RecordCount(mctx, name, map[string]string{"Service": "order-service"})
	}()
}

// ListOrders retrieves paginated orders, newest first
func (s *orderServiceImpl) ListOrders(ctx context.Context, page, limit int) (*OrderResponse, *ServiceError) {
	orders, total, err := s.repo.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("failed to fetch orders", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}

	return &OrderResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}, nil
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		s.logger.Error("failed to fetch order", zap.String("order_id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}
	return order, nil
}

func (s *orderServiceImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status string) *ServiceError {
	status = strings.ToUpper(strings.TrimSpace(status))
	if _, ok := models.OrderStatuses[status]; !ok {
		return &ServiceError{StatusCode: 400, Message: "Unsupported status " + status}
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		s.logger.Error("failed to update order status", zap.String("order_id", id.String()), zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to update order"}
	}

	s.logger.Info("order status updated", zap.String("order_id", id.String()), zap.String("status", status))
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "SQLSTATE 23505")
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
