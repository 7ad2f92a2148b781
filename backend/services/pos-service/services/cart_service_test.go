package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var coffee = models.Product{ID: "p1", Name: "Coffee", Price: 2.5, Stock: 2}

func TestCart_AddWithinStock(t *testing.T) {
	svc := services.NewCartService(newFixture(t).carts, zap.NewNop())
	ctx := context.Background()

	cart, svcErr := svc.Add(ctx, coffee, 1)
	require.Nil(t, svcErr)
	cart, svcErr = svc.Add(ctx, coffee, 1)
	require.Nil(t, svcErr)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	total, svcErr := svc.Total(ctx)
	require.Nil(t, svcErr)
	assert.Equal(t, 5.0, total)
}

func TestCart_AddBeyondStockRejected(t *testing.T) {
	svc := services.NewCartService(newFixture(t).carts, zap.NewNop())
	ctx := context.Background()

	_, svcErr := svc.Add(ctx, coffee, 2)
	require.Nil(t, svcErr)

	_, svcErr = svc.Add(ctx, coffee, 1)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)

	cart, svcErr := svc.GetCart(ctx)
	require.Nil(t, svcErr)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestCart_AddOutOfStockRejected(t *testing.T) {
	svc := services.NewCartService(newFixture(t).carts, zap.NewNop())
	ctx := context.Background()

	soldOut := coffee
	soldOut.Stock = 0
	_, svcErr := svc.Add(ctx, soldOut, 1)
	require.NotNil(t, svcErr)
	assert.Equal(t, "Product is out of stock", svcErr.Message)

	cart, _ := svc.GetCart(ctx)
	assert.True(t, cart.IsEmpty())
}

func TestCart_NegativeDeltaRemovesLineAtZero(t *testing.T) {
	svc := services.NewCartService(newFixture(t).carts, zap.NewNop())
	ctx := context.Background()

	_, svcErr := svc.Add(ctx, coffee, 2)
	require.Nil(t, svcErr)

	cart, svcErr := svc.Add(ctx, coffee, -1)
	require.Nil(t, svcErr)
	assert.Equal(t, 1, cart.Lines[0].Quantity)

	cart, svcErr = svc.Add(ctx, coffee, -1)
	require.Nil(t, svcErr)
	assert.Empty(t, cart.Lines)
}

func TestCart_AddRequiresDelta(t *testing.T) {
	svc := services.NewCartService(newFixture(t).carts, zap.NewNop())
	_, svcErr := svc.Add(context.Background(), coffee, 0)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
}

func TestCart_Remove(t *testing.T) {
	svc := services.NewCartService(newFixture(t).carts, zap.NewNop())
	ctx := context.Background()

	tea := models.Product{ID: "p2", Name: "Tea", Price: 1.75, Stock: 10}
	_, _ = svc.Add(ctx, coffee, 1)
	_, _ = svc.Add(ctx, tea, 2)

	cart, svcErr := svc.Remove(ctx, "p1")
	require.Nil(t, svcErr)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "p2", cart.Lines[0].ProductID)
	assert.Equal(t, 3.5, cart.Total())

	_, svcErr = svc.Remove(ctx, "p1")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
}

func TestCart_ClearIsIdempotent(t *testing.T) {
	svc := services.NewCartService(newFixture(t).carts, zap.NewNop())
	ctx := context.Background()

	require.Nil(t, svc.Clear(ctx))
	require.Nil(t, svc.Clear(ctx))

	cart, svcErr := svc.GetCart(ctx)
	require.Nil(t, svcErr)
	assert.True(t, cart.IsEmpty())

	_, _ = svc.Add(ctx, coffee, 1)
	require.Nil(t, svc.Clear(ctx))
	cart, _ = svc.GetCart(ctx)
	assert.True(t, cart.IsEmpty())
}

func TestCart_PersistsAcrossInstances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, svcErr := services.NewCartService(f.carts, zap.NewNop()).Add(ctx, coffee, 2)
	require.Nil(t, svcErr)

	total, svcErr := services.NewCartService(f.carts, zap.NewNop()).Total(ctx)
	require.Nil(t, svcErr)
	assert.Equal(t, 5.0, total)
}
