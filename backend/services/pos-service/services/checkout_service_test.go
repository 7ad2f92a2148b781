package services_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/database"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/repository"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type checkoutHarness struct {
	f       *fixture
	cart    services.CartService
	client  *mockOrderClient
	conn    *fakeConnectivity
	events  *recordingNotifier
	service services.CheckoutService
}

func newCheckoutHarness(t *testing.T, online bool) *checkoutHarness {
	f := newFixture(t)
	h := &checkoutHarness{
		f:      f,
		cart:   services.NewCartService(f.carts, zap.NewNop()),
		client: newMockOrderClient(),
		conn:   &fakeConnectivity{online: online},
		events: &recordingNotifier{},
	}
	h.service = services.NewCheckoutService(h.cart, f.queue, h.client, h.conn, h.events, nil, zap.NewNop(), "cashier-1")
	return h
}

func (h *checkoutHarness) fillCart(t *testing.T) {
	t.Helper()
	_, svcErr := h.cart.Add(context.Background(), models.Product{ID: "p1", Name: "Coffee", Price: 2.5, Stock: 10}, 2)
	require.Nil(t, svcErr)
}

func TestCheckout_OnlineCommitsDirectly(t *testing.T) {
	h := newCheckoutHarness(t, true)
	h.fillCart(t)

	resp, svcErr := h.service.Checkout(context.Background(), models.CheckoutRequest{PaymentMethod: models.PaymentCard})
	require.Nil(t, svcErr)
	assert.Equal(t, models.CheckoutCompleted, resp.Status)
	assert.Equal(t, "o1", resp.OrderID)
	assert.Equal(t, 5.0, resp.TotalAmount)

	require.Len(t, h.client.orders, 1)
	sent := h.client.orders[0]
	assert.Equal(t, resp.LocalID, sent.LocalID)
	require.NotNil(t, sent.CashierID)
	assert.Equal(t, "cashier-1", *sent.CashierID)

	assert.Empty(t, h.f.queuedIDs(t))
	cart, _ := h.cart.GetCart(context.Background())
	assert.True(t, cart.IsEmpty())

	_, ok := h.events.Last(models.EventOrderCompleted)
	assert.True(t, ok)
}

func TestCheckout_OfflineEnqueues(t *testing.T) {
	h := newCheckoutHarness(t, false)
	h.fillCart(t)

	resp, svcErr := h.service.Checkout(context.Background(), models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.Nil(t, svcErr)
	assert.Equal(t, models.CheckoutQueued, resp.Status)
	assert.Empty(t, h.client.Calls())
	assert.Equal(t, []string{resp.LocalID}, h.f.queuedIDs(t))

	cart, _ := h.cart.GetCart(context.Background())
	assert.True(t, cart.IsEmpty())

	evt, ok := h.events.Last(models.EventQueued)
	require.True(t, ok)
	assert.Equal(t, resp.LocalID, evt.LocalID)
}

func TestCheckout_TransientFailureFallsBackToQueue(t *testing.T) {
	h := newCheckoutHarness(t, true)
	h.fillCart(t)
	h.service = services.NewCheckoutService(h.cart, h.f.queue, failingClient{err: errTransient}, h.conn, h.events, nil, zap.NewNop(), "")

	resp, svcErr := h.service.Checkout(context.Background(), models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.Nil(t, svcErr)
	assert.Equal(t, models.CheckoutQueued, resp.Status)
	assert.Equal(t, []string{resp.LocalID}, h.f.queuedIDs(t))
	assert.False(t, h.conn.IsOnline())
}

func TestCheckout_ValidationErrorKeepsCart(t *testing.T) {
	h := newCheckoutHarness(t, true)
	h.fillCart(t)
	h.service = services.NewCheckoutService(h.cart, h.f.queue, failingClient{err: errValidation}, h.conn, h.events, nil, zap.NewNop(), "")

	_, svcErr := h.service.Checkout(context.Background(), models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.StatusCode)
	assert.Empty(t, h.f.queuedIDs(t))

	cart, _ := h.cart.GetCart(context.Background())
	assert.False(t, cart.IsEmpty())
}

func TestCheckout_PersistenceFailureSurfaced(t *testing.T) {
	h := newCheckoutHarness(t, false)
	h.fillCart(t)

	brokenQueue := repository.NewQueueRepository(readOnlyStore{h.f.store}, zap.NewNop())
	h.service = services.NewCheckoutService(h.cart, brokenQueue, h.client, h.conn, h.events, nil, zap.NewNop(), "")

	_, svcErr := h.service.Checkout(context.Background(), models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInsufficientStorage, svcErr.StatusCode)

	cart, _ := h.cart.GetCart(context.Background())
	assert.False(t, cart.IsEmpty())
	_, queued := h.events.Last(models.EventQueued)
	assert.False(t, queued)
}

func TestCheckout_EmptyCartAndBadPayment(t *testing.T) {
	h := newCheckoutHarness(t, false)

	_, svcErr := h.service.Checkout(context.Background(), models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.NotNil(t, svcErr)
	assert.Equal(t, "Cart is empty", svcErr.Message)

	h.fillCart(t)
	_, svcErr = h.service.Checkout(context.Background(), models.CheckoutRequest{PaymentMethod: "BITCOIN"})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
}

// Coffee x2 at 2.50 sold offline, then synced once the terminal is back online.
func TestCheckout_OfflineSaleSyncedOnReconnect(t *testing.T) {
	h := newCheckoutHarness(t, false)
	ctx := context.Background()
	h.fillCart(t)

	resp, svcErr := h.service.Checkout(ctx, models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.Nil(t, svcErr)
	assert.Equal(t, models.CheckoutQueued, resp.Status)

	queue, err := h.f.queue.Load(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, []models.OrderItem{{ProductID: "p1", Name: "Coffee", UnitPrice: 2.5, Quantity: 2}}, queue[0].Items)
	assert.Equal(t, 5.0, queue[0].TotalAmount)
	assert.Equal(t, models.PaymentCash, queue[0].PaymentMethod)

	h.conn.Set(true)
	syncSvc := services.NewSyncService(h.f.queue, h.f.review, h.client, h.events, nil, zap.NewNop(), services.SyncConfig{MaxRejections: 3})
	outcome, err := syncSvc.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Succeeded)
	assert.Empty(t, h.f.queuedIDs(t))

	evt, ok := h.events.Last(models.EventSynced)
	require.True(t, ok)
	assert.Equal(t, 1, evt.Count)
}

func TestCheckout_ConcurrentCheckoutsCommitCartOnce(t *testing.T) {
	h := newCheckoutHarness(t, true)
	h.fillCart(t)
	_, svcErr := h.cart.Add(context.Background(), models.Product{ID: "p2", Name: "Muffin", Price: 3, Stock: 5}, 1)
	require.Nil(t, svcErr)

	h.client.started = make(chan struct{}, 1)
	h.client.release = make(chan struct{})

	type result struct {
		resp *models.CheckoutResponse
		err  *services.ServiceError
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := h.service.Checkout(context.Background(), models.CheckoutRequest{PaymentMethod: models.PaymentCash})
			results <- result{resp, err}
		}()
	}

	<-h.client.started
	close(h.client.release)
	wg.Wait()
	close(results)

	var completed, empty int
	for r := range results {
		switch {
		case r.err == nil:
			completed++
			assert.Equal(t, models.CheckoutCompleted, r.resp.Status)
		case r.err.Message == "Cart is empty":
			empty++
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, empty)
	assert.Len(t, h.client.Calls(), 1)
}

func TestCheckout_ItemAddedDuringCommitIsKept(t *testing.T) {
	h := newCheckoutHarness(t, true)
	h.fillCart(t)
	ctx := context.Background()

	h.client.started = make(chan struct{}, 1)
	h.client.release = make(chan struct{})

	checkoutDone := make(chan *services.ServiceError, 1)
	go func() {
		_, err := h.service.Checkout(ctx, models.CheckoutRequest{PaymentMethod: models.PaymentCash})
		checkoutDone <- err
	}()
	<-h.client.started

	addDone := make(chan *services.ServiceError, 1)
	go func() {
		_, err := h.cart.Add(ctx, models.Product{ID: "p2", Name: "Muffin", Price: 3, Stock: 5}, 1)
		addDone <- err
	}()
	assert.Never(t, func() bool { return len(addDone) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(h.client.release)
	require.Nil(t, <-checkoutDone)
	require.Nil(t, <-addDone)

	require.Len(t, h.client.orders, 1)
	assert.Equal(t, "p1", h.client.orders[0].Items[0].ProductID)
	assert.Len(t, h.client.orders[0].Items, 1)

	cart, _ := h.cart.GetCart(ctx)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "p2", cart.Lines[0].ProductID)
}

func TestCheckout_RetryReusesLocalID(t *testing.T) {
	h := newCheckoutHarness(t, true)
	h.fillCart(t)
	ctx := context.Background()
	client := &sequenceClient{errs: []error{errValidation, nil}}
	h.service = services.NewCheckoutService(h.cart, h.f.queue, client, h.conn, h.events, nil, zap.NewNop(), "")

	_, svcErr := h.service.Checkout(ctx, models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.NotNil(t, svcErr)

	resp, svcErr := h.service.Checkout(ctx, models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.Nil(t, svcErr)

	require.Len(t, client.calls, 2)
	assert.Equal(t, client.calls[0], client.calls[1])
	assert.Equal(t, client.calls[0], resp.LocalID)
}

func TestCheckout_CartChangeGetsNewLocalID(t *testing.T) {
	h := newCheckoutHarness(t, true)
	h.fillCart(t)
	ctx := context.Background()
	client := &sequenceClient{errs: []error{errValidation, nil}}
	h.service = services.NewCheckoutService(h.cart, h.f.queue, client, h.conn, h.events, nil, zap.NewNop(), "")

	_, svcErr := h.service.Checkout(ctx, models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.NotNil(t, svcErr)

	_, svcErr = h.cart.Add(ctx, models.Product{ID: "p1", Name: "Coffee", Price: 2.5, Stock: 10}, -1)
	require.Nil(t, svcErr)

	_, svcErr = h.service.Checkout(ctx, models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.Nil(t, svcErr)

	require.Len(t, client.calls, 2)
	assert.NotEqual(t, client.calls[0], client.calls[1])
}

func TestCheckout_OfflineRetryQueuesOnce(t *testing.T) {
	h := newCheckoutHarness(t, false)
	h.fillCart(t)
	ctx := context.Background()

	var cart *models.Cart
	svcErr := h.cart.Checkout(ctx, func(c *models.Cart) *services.ServiceError {
		cart = c
		return &services.ServiceError{StatusCode: http.StatusInternalServerError, Message: "interrupted"}
	})
	require.NotNil(t, svcErr)
	require.NotEmpty(t, cart.CheckoutID)
	_, err := h.f.queue.Enqueue(ctx, models.QueuedOrder{LocalID: cart.CheckoutID, Items: cart.Items(), TotalAmount: cart.Total(), PaymentMethod: models.PaymentCash})
	require.NoError(t, err)

	resp, svcErr := h.service.Checkout(ctx, models.CheckoutRequest{PaymentMethod: models.PaymentCash})
	require.Nil(t, svcErr)
	assert.Equal(t, cart.CheckoutID, resp.LocalID)
	assert.Equal(t, []string{cart.CheckoutID}, h.f.queuedIDs(t))
}

// --- Test doubles ---

// sequenceClient returns errs in call order, then succeeds.
type sequenceClient struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (c *sequenceClient) CommitOrder(_ context.Context, order models.QueuedOrder) (*services.CommitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.calls)
	c.calls = append(c.calls, order.LocalID)
	if n < len(c.errs) && c.errs[n] != nil {
		return nil, c.errs[n]
	}
	return &services.CommitResult{OrderID: "o1"}, nil
}


type failingClient struct {
	err error
}

func (c failingClient) CommitOrder(context.Context, models.QueuedOrder) (*services.CommitResult, error) {
	return nil, c.err
}

type readOnlyStore struct {
	database.Store
}

func (readOnlyStore) Set(context.Context, string, []byte) error {
	return errors.New("read-only file system")
}
