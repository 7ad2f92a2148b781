package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/repository"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// mockOrderRepository keeps committed state in memory. WithTx works on a
// copy and only keeps it when fn succeeds.
type mockOrderRepository struct {
	orders    map[string]*models.Order
	stock     map[uuid.UUID]int
	movements []models.StockMovement
	txCount   int
	createErr error
}

func newMockRepo() *mockOrderRepository {
	return &mockOrderRepository{
		orders: map[string]*models.Order{},
		stock:  map[uuid.UUID]int{},
	}
}

func (m *mockOrderRepository) clone() *mockOrderRepository {
	c := &mockOrderRepository{
		orders:    map[string]*models.Order{},
		stock:     map[uuid.UUID]int{},
		movements: append([]models.StockMovement(nil), m.movements...),
		createErr: m.createErr,
	}
	for k, v := range m.orders {
		c.orders[k] = v
	}
	for k, v := range m.stock {
		c.stock[k] = v
	}
	return c
}

func (m *mockOrderRepository) WithTx(_ context.Context, fn func(tx repository.OrderRepository) error) error {
	m.txCount++
	tx := m.clone()
	if err := fn(tx); err != nil {
		return err
	}
	m.orders, m.stock, m.movements = tx.orders, tx.stock, tx.movements
	return nil
}

func (m *mockOrderRepository) FindByLocalID(_ context.Context, localID string) (*models.Order, error) {
	o, ok := m.orders[localID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (m *mockOrderRepository) Create(_ context.Context, order *models.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[*order.LocalID] = order
	return nil
}

func (m *mockOrderRepository) DecrementStock(_ context.Context, productID uuid.UUID, quantity int) (int, error) {
	s, ok := m.stock[productID]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	m.stock[productID] = s - quantity
	return s - quantity, nil
}

func (m *mockOrderRepository) CreateStockMovements(_ context.Context, movements []models.StockMovement) error {
	m.movements = append(m.movements, movements...)
	return nil
}

func (m *mockOrderRepository) FindAll(_ context.Context, _, _ int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (m *mockOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOrderRepository) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	for _, o := range m.orders {
		if o.ID == id {
			o.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type mockPublisher struct {
	events []models.OrderCommittedEvent
	err    error
}

func (p *mockPublisher) PublishOrderCommitted(_ context.Context, evt models.OrderCommittedEvent) error {
	p.events = append(p.events, evt)
	return p.err
}

func (p *mockPublisher) Close() error { return nil }

func newTestService(repo repository.OrderRepository, pub *mockPublisher) services.OrderService {
	if pub == nil {
		return services.NewOrderService(repo, nil, nil, zap.NewNop())
	}
	return services.NewOrderService(repo, pub, nil, zap.NewNop())
}

func coffeeRequest(productID uuid.UUID) *models.CommitOrderRequest {
	return &models.CommitOrderRequest{
		LocalID:       uuid.NewString(),
		Items:         []models.CommitOrderItem{{ProductID: productID.String(), Name: "Coffee", UnitPrice: 2.50, Quantity: 2}},
		TotalAmount:   5.00,
		PaymentMethod: "CASH",
	}
}

// --- Tests ---

func TestCommitOrder_WritesOrderStockAndMovement(t *testing.T) {
	repo := newMockRepo()
	coffee := uuid.New()
	repo.stock[coffee] = 10
	pub := &mockPublisher{}
	svc := newTestService(repo, pub)

	req := coffeeRequest(coffee)
	resp, svcErr := svc.CommitOrder(context.Background(), req)
	require.Nil(t, svcErr)

	assert.False(t, resp.Duplicate)
	assert.Equal(t, 5.00, resp.TotalAmount)
	assert.Contains(t, resp.OrderNumber, "POS-")

	order := repo.orders[req.LocalID]
	require.NotNil(t, order)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, 5.00, order.OrderItems[0].Subtotal)
	assert.Equal(t, 8, repo.stock[coffee])

	require.Len(t, repo.movements, 1)
	assert.Equal(t, models.MovementTypeSale, repo.movements[0].Type)
	assert.Equal(t, -2, repo.movements[0].Quantity)
	assert.Equal(t, "Order #"+resp.OrderID[:8], repo.movements[0].Reason)

	require.Len(t, pub.events, 1)
	assert.Equal(t, services.EventOrderCommitted, pub.events[0].Event)
	assert.Equal(t, req.LocalID, pub.events[0].LocalID)
}

func TestCommitOrder_ReplayReturnsExistingOrder(t *testing.T) {
	repo := newMockRepo()
	coffee := uuid.New()
	repo.stock[coffee] = 10
	pub := &mockPublisher{}
	svc := newTestService(repo, pub)

	req := coffeeRequest(coffee)
	first, svcErr := svc.CommitOrder(context.Background(), req)
	require.Nil(t, svcErr)

	second, svcErr := svc.CommitOrder(context.Background(), req)
	require.Nil(t, svcErr)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 8, repo.stock[coffee], "stock must only be decremented once")
	assert.Len(t, repo.movements, 1)
	assert.Len(t, pub.events, 1)
}

func TestCommitOrder_UnknownProductRollsBack(t *testing.T) {
	repo := newMockRepo()
	known := uuid.New()
	repo.stock[known] = 5
	svc := newTestService(repo, nil)

	req := coffeeRequest(known)
	req.Items = append(req.Items, models.CommitOrderItem{ProductID: uuid.NewString(), Name: "Ghost", UnitPrice: 1, Quantity: 1})

	resp, svcErr := svc.CommitOrder(context.Background(), req)
	assert.Nil(t, resp)
	require.NotNil(t, svcErr)
	assert.Equal(t, 422, svcErr.StatusCode)
	assert.True(t, svcErr.Permanent())

	assert.Empty(t, repo.orders)
	assert.Equal(t, 5, repo.stock[known])
	assert.Empty(t, repo.movements)
}

func TestCommitOrder_RecomputesTotal(t *testing.T) {
	repo := newMockRepo()
	coffee := uuid.New()
	repo.stock[coffee] = 10
	svc := newTestService(repo, nil)

	req := coffeeRequest(coffee)
	req.TotalAmount = 999

	resp, svcErr := svc.CommitOrder(context.Background(), req)
	require.Nil(t, svcErr)
	assert.Equal(t, 5.00, resp.TotalAmount)
}

func TestCommitOrder_AllowsNegativeStock(t *testing.T) {
	repo := newMockRepo()
	coffee := uuid.New()
	repo.stock[coffee] = 1
	svc := newTestService(repo, nil)

	_, svcErr := svc.CommitOrder(context.Background(), coffeeRequest(coffee))
	require.Nil(t, svcErr)
	assert.Equal(t, -1, repo.stock[coffee])
}

func TestCommitOrder_ValidationErrors(t *testing.T) {
	svc := newTestService(newMockRepo(), nil)
	pid := uuid.New()

	cases := map[string]func(r *models.CommitOrderRequest){
		"missing local id":    func(r *models.CommitOrderRequest) { r.LocalID = " " },
		"no items":            func(r *models.CommitOrderRequest) { r.Items = nil },
		"bad payment method":  func(r *models.CommitOrderRequest) { r.PaymentMethod = "BITCOIN" },
		"bad product id":      func(r *models.CommitOrderRequest) { r.Items[0].ProductID = "abc" },
		"zero quantity":       func(r *models.CommitOrderRequest) { r.Items[0].Quantity = 0 },
		"negative unit price": func(r *models.CommitOrderRequest) { r.Items[0].UnitPrice = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := coffeeRequest(pid)
			mutate(req)
			_, svcErr := svc.CommitOrder(context.Background(), req)
			require.NotNil(t, svcErr)
			assert.True(t, svcErr.Permanent())
		})
	}
}

func TestCommitOrder_ConcurrentDuplicateResolvesToExisting(t *testing.T) {
	repo := newMockRepo()
	coffee := uuid.New()
	repo.stock[coffee] = 10
	svc := newTestService(repo, nil)

	req := coffeeRequest(coffee)
	winner := &models.Order{ID: uuid.New(), OrderNumber: "POS-winner", LocalID: &req.LocalID, TotalAmount: 5}
	// the insert loses the race on the unique index after the lookup missed
	repo.createErr = fmt.Errorf("ERROR: duplicate key value violates unique constraint \"idx_orders_local_id\" (SQLSTATE 23505)")
	repoWithWinner := &racingRepo{mockOrderRepository: repo, winner: winner}

	svc = newTestService(repoWithWinner, nil)
	resp, svcErr := svc.CommitOrder(context.Background(), req)
	require.Nil(t, svcErr)
	assert.True(t, resp.Duplicate)
	assert.Equal(t, winner.ID.String(), resp.OrderID)
}

// racingRepo misses the order inside the transaction and finds it afterwards.
type racingRepo struct {
	*mockOrderRepository
	winner *models.Order
	calls  int
}

func (r *racingRepo) FindByLocalID(_ context.Context, _ string) (*models.Order, error) {
	r.calls++
	if r.calls == 1 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.winner, nil
}

func (r *racingRepo) WithTx(ctx context.Context, fn func(tx repository.OrderRepository) error) error {
	return fn(r)
}

func TestCommitOrder_DatabaseFailureIsRetryable(t *testing.T) {
	repo := newMockRepo()
	coffee := uuid.New()
	repo.stock[coffee] = 10
	repo.createErr = errors.New("connection reset by peer")
	svc := newTestService(repo, nil)

	_, svcErr := svc.CommitOrder(context.Background(), coffeeRequest(coffee))
	require.NotNil(t, svcErr)
	assert.Equal(t, 500, svcErr.StatusCode)
	assert.False(t, svcErr.Permanent())
}

func TestCommitOrder_PublishFailureDoesNotFailCommit(t *testing.T) {
	repo := newMockRepo()
	coffee := uuid.New()
	repo.stock[coffee] = 10
	svc := newTestService(repo, &mockPublisher{err: errors.New("broker down")})

	resp, svcErr := svc.CommitOrder(context.Background(), coffeeRequest(coffee))
	require.Nil(t, svcErr)
	assert.NotEmpty(t, resp.OrderID)
}

func TestUpdateStatus(t *testing.T) {
	repo := newMockRepo()
	coffee := uuid.New()
	repo.stock[coffee] = 10
	svc := newTestService(repo, nil)

	resp, _ := svc.CommitOrder(context.Background(), coffeeRequest(coffee))
	id := uuid.MustParse(resp.OrderID)

	assert.Nil(t, svc.UpdateStatus(context.Background(), id, "refunded"))
	order, svcErr := svc.GetOrder(context.Background(), id)
	require.Nil(t, svcErr)
	assert.Equal(t, models.OrderStatusRefunded, order.Status)

	svcErr = svc.UpdateStatus(context.Background(), id, "LOST")
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)

	svcErr = svc.UpdateStatus(context.Background(), uuid.New(), models.OrderStatusCancelled)
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestListOrders_Meta(t *testing.T) {
	repo := newMockRepo()
	coffee := uuid.New()
	repo.stock[coffee] = 100
	svc := newTestService(repo, nil)
	for i := 0; i < 3; i++ {
		_, svcErr := svc.CommitOrder(context.Background(), coffeeRequest(coffee))
		require.Nil(t, svcErr)
	}

	out, svcErr := svc.ListOrders(context.Background(), 1, 2)
	require.Nil(t, svcErr)
	assert.Equal(t, int64(3), out.Meta.TotalOrders)
	assert.Equal(t, int64(2), out.Meta.TotalPages)
	assert.True(t, out.Meta.HasMore)
}

// --- SQS consumer ---

type stubOrderService struct {
	services.OrderService
	commitFn func(req *models.CommitOrderRequest) (*models.CommitOrderResponse, *services.ServiceError)
	got      []*models.CommitOrderRequest
}

func (s *stubOrderService) CommitOrder(_ context.Context, req *models.CommitOrderRequest) (*models.CommitOrderResponse, *services.ServiceError) {
	s.got = append(s.got, req)
	return s.commitFn(req)
}

func TestSQSCommitConsumer_HandleMessage(t *testing.T) {
	ok := &stubOrderService{commitFn: func(req *models.CommitOrderRequest) (*models.CommitOrderResponse, *services.ServiceError) {
		return &models.CommitOrderResponse{OrderID: "o1"}, nil
	}}
	parked := &mockRejectedRepository{}
	c := services.NewSQSCommitConsumer(nil, ok, parked, nil, zap.NewNop())

	body, _ := json.Marshal(models.CommitOrderRequest{LocalID: "l1", PaymentMethod: "CASH"})
	assert.NoError(t, c.HandleMessage(context.Background(), string(body)))

	envelope, _ := json.Marshal(map[string]string{"Type": "Notification", "Message": string(body)})
	assert.NoError(t, c.HandleMessage(context.Background(), string(envelope)))
	require.Len(t, ok.got, 2)
	assert.Equal(t, "l1", ok.got[1].LocalID)
	assert.Empty(t, parked.saved)

	err := c.HandleMessage(context.Background(), "{not json")
	assert.ErrorIs(t, err, awspkg.ErrPermanent)
	require.Len(t, parked.saved, 1)
	assert.Equal(t, 400, parked.saved[0].StatusCode)
	assert.Equal(t, "{not json", parked.saved[0].Body)
}

func TestSQSCommitConsumer_ParksRejectedCommits(t *testing.T) {
	rejected := &stubOrderService{commitFn: func(*models.CommitOrderRequest) (*models.CommitOrderResponse, *services.ServiceError) {
		return nil, &services.ServiceError{StatusCode: 422, Message: "unknown product"}
	}}
	parked := &mockRejectedRepository{}
	body := `{"local_id":"x","payment_method":"CASH"}`

	err := services.NewSQSCommitConsumer(nil, rejected, parked, nil, zap.NewNop()).HandleMessage(context.Background(), body)

	assert.ErrorIs(t, err, awspkg.ErrPermanent)
	require.Len(t, parked.saved, 1)
	assert.Equal(t, "x", parked.saved[0].LocalID)
	assert.Equal(t, 422, parked.saved[0].StatusCode)
	assert.Equal(t, "unknown product", parked.saved[0].Reason)
	assert.Equal(t, body, parked.saved[0].Body)
}

func TestSQSCommitConsumer_KeepsMessageWhenParkingFails(t *testing.T) {
	rejected := &stubOrderService{commitFn: func(*models.CommitOrderRequest) (*models.CommitOrderResponse, *services.ServiceError) {
		return nil, &services.ServiceError{StatusCode: 422, Message: "unknown product"}
	}}
	parked := &mockRejectedRepository{saveErr: errors.New("db down")}

	err := services.NewSQSCommitConsumer(nil, rejected, parked, nil, zap.NewNop()).HandleMessage(context.Background(), `{"local_id":"x"}`)

	require.Error(t, err)
	assert.NotErrorIs(t, err, awspkg.ErrPermanent)
}

func TestSQSCommitConsumer_RetriesTransientErrors(t *testing.T) {
	broken := &stubOrderService{commitFn: func(*models.CommitOrderRequest) (*models.CommitOrderResponse, *services.ServiceError) {
		return nil, &services.ServiceError{StatusCode: 500, Message: "db down"}
	}}
	parked := &mockRejectedRepository{}

	err := services.NewSQSCommitConsumer(nil, broken, parked, nil, zap.NewNop()).HandleMessage(context.Background(), `{"local_id":"x"}`)

	require.Error(t, err)
	assert.NotErrorIs(t, err, awspkg.ErrPermanent)
	assert.Empty(t, parked.saved)
}
