package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/notify"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/repository"
	"go.uber.org/zap"
)

// Connectivity is the part of the network monitor checkout depends on.
type Connectivity interface {
	IsOnline() bool
	Set(online bool)
}

// CheckoutService turns the current cart into an order. Online it commits
// directly; offline, or when the commit cannot reach a decision, the order
// is queued for the next sync.
type CheckoutService interface {
	Checkout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, *ServiceError)
}

type checkoutServiceImpl struct {
	cart      CartService
	queue     *repository.QueueRepository
	client    OrderClient
	network   Connectivity
	notifier  notify.Notifier
	metrics   *awspkg.MetricsClient
	logger    *zap.Logger
	cashierID string
	now       func() time.Time
}

func NewCheckoutService(
	cart CartService,
	queue *repository.QueueRepository,
	client OrderClient,
	network Connectivity,
	notifier notify.Notifier,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
	cashierID string,
) CheckoutService {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &checkoutServiceImpl{
		cart:      cart,
		queue:     queue,
		client:    client,
		network:   network,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		cashierID: cashierID,
		now:       time.Now,
	}
}

func (s *checkoutServiceImpl) Checkout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, *ServiceError) {
	if !req.PaymentMethod.Valid() {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Invalid payment method"}
	}

	var resp *models.CheckoutResponse
	svcErr := s.cart.Checkout(ctx, func(cart *models.Cart) *ServiceError {
		order := models.QueuedOrder{
			LocalID:        cart.CheckoutID,
			Items:          cart.Items(),
			TotalAmount:    cart.Total(),
			PaymentMethod:  req.PaymentMethod,
			CustomerID:     req.CustomerID,
			CreatedAtLocal: s.now().UTC(),
		}
		if s.cashierID != "" {
			cashier := s.cashierID
			order.CashierID = &cashier
		}

		var sellErr *ServiceError
		resp, sellErr = s.sell(ctx, order)
		return sellErr
	})
	if svcErr != nil {
		return nil, svcErr
	}

	if resp.Status == models.CheckoutCompleted {
		s.notifier.Notify(ctx, models.Event{
			Type:    models.EventOrderCompleted,
			Message: "Order completed",
			LocalID: resp.LocalID,
			At:      s.now().UTC(),
		})
		s.recordMetric(awspkg.MetricOrdersCreated)
	} else {
		s.notifier.Notify(ctx, models.Event{
			Type:    models.EventQueued,
			Message: "Order saved offline. It will sync when you are back online.",
			LocalID: resp.LocalID,
			At:      s.now().UTC(),
		})
		s.recordMetric(awspkg.MetricOfflineQueued)
	}
	return resp, nil
}

// sell commits the order when online and queues it otherwise. It runs under
// the cart lock.
func (s *checkoutServiceImpl) sell(ctx context.Context, order models.QueuedOrder) (*models.CheckoutResponse, *ServiceError) {
	if s.network.IsOnline() {
		result, err := s.client.CommitOrder(ctx, order)
		if err == nil {
			return &models.CheckoutResponse{
				Status:      models.CheckoutCompleted,
				LocalID:     order.LocalID,
				OrderID:     result.OrderID,
				TotalAmount: order.TotalAmount,
			}, nil
		}

		var vErr *ValidationError
		if errors.As(err, &vErr) {
			s.logger.Warn("Order rejected at checkout",
				zap.String("local_id", order.LocalID),
				zap.Int("status", vErr.StatusCode),
				zap.String("reason", vErr.Message),
			)
			return nil, &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: vErr.Message}
		}

		// no decision from the server; keep the sale and sync it later
		s.logger.Warn("Order commit failed, saving offline",
			zap.String("local_id", order.LocalID),
			zap.String("class", classify(err)),
			zap.Error(err),
		)
		s.network.Set(false)
	}

	queued, err := s.queue.Enqueue(context.WithoutCancel(ctx), order)
	if err != nil {
		pErr := &PersistenceError{Op: "enqueue", Err: err}
		s.logger.Error("Order could not be saved offline", zap.String("local_id", order.LocalID), zap.Error(pErr))
		return nil, &ServiceError{
			StatusCode: http.StatusInsufficientStorage,
			Message:    "Order could not be saved locally. The sale was not recorded.",
		}
	}

	return &models.CheckoutResponse{
		Status:      models.CheckoutQueued,
		LocalID:     queued.LocalID,
		TotalAmount: queued.TotalAmount,
		Message:     "Order saved offline",
	}, nil
}

func (s *checkoutServiceImpl) recordMetric(name string) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.RecordCount(ctx, name, map[string]string{"Service": "pos-service"})
	}()
}
