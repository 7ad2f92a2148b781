package repository

import (
	"context"
	"time"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/database"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"go.uber.org/zap"
)

type CartRepository struct {
	store  database.Store
	logger *zap.Logger
}

func NewCartRepository(store database.Store, logger *zap.Logger) *CartRepository {
	return &CartRepository{
		store:  store,
		logger: logger,
	}
}

// GetCart never returns a nil cart.
func (r *CartRepository) GetCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := readJSON(ctx, r.store, r.logger, CartKey, &cart); err != nil {
		return nil, err
	}
	if cart.Lines == nil {
		cart.Lines = []models.CartLine{}
	}
	return &cart, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	return writeJSON(ctx, r.store, CartKey, cart)
}

func (r *CartRepository) DeleteCart(ctx context.Context) error {
	return r.store.Delete(ctx, CartKey)
}
