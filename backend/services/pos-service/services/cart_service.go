package services

import (
	"context"
	"net/http"
	"sync"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService builds the order in progress. It does not decide whether the
// sale goes online or into the offline queue.
type CartService interface {
	GetCart(ctx context.Context) (*models.Cart, *ServiceError)
	Add(ctx context.Context, product models.Product, delta int) (*models.Cart, *ServiceError)
	Remove(ctx context.Context, productID string) (*models.Cart, *ServiceError)
	Clear(ctx context.Context) *ServiceError
	Total(ctx context.Context) (float64, *ServiceError)
	// Checkout hands the current cart to sell while holding the cart lock,
	// so no other checkout or cart change interleaves. The cart is cleared
	// only when sell returns nil.
	Checkout(ctx context.Context, sell func(cart *models.Cart) *ServiceError) *ServiceError
}

type cartServiceImpl struct {
	repo   *repository.CartRepository
	logger *zap.Logger
	mu     sync.Mutex
}

func NewCartService(repo *repository.CartRepository, logger *zap.Logger) CartService {
	return &cartServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *cartServiceImpl) GetCart(ctx context.Context) (*models.Cart, *ServiceError) {
	cart, err := s.repo.GetCart(ctx)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to load cart"}
	}
	return cart, nil
}

// Add changes the quantity of product by delta. Increases are checked
// against the stock snapshot carried by product and rejected, leaving the
// cart unchanged, when stock is zero or would be exceeded. A resulting
// quantity of zero or less removes the line.
func (s *cartServiceImpl) Add(ctx context.Context, product models.Product, delta int) (*models.Cart, *ServiceError) {
	if product.ID == "" || delta == 0 {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Product and a non-zero quantity are required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, svcErr := s.GetCart(ctx)
	if svcErr != nil {
		return nil, svcErr
	}

	idx := -1
	current := 0
	for i, l := range cart.Lines {
		if l.ProductID == product.ID {
			idx, current = i, l.Quantity
			break
		}
	}

	next := current + delta
	if delta > 0 {
		if product.Stock <= 0 {
			return cart, &ServiceError{StatusCode: http.StatusConflict, Message: "Product is out of stock"}
		}
		if next > product.Stock {
			return cart, &ServiceError{StatusCode: http.StatusConflict, Message: "Not enough stock available"}
		}
	}

	switch {
	case idx < 0 && next <= 0:
		return cart, nil
	case idx < 0:
		cart.Lines = append(cart.Lines, models.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  next,
			Stock:     product.Stock,
		})
	case next <= 0:
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	default:
		line := &cart.Lines[idx]
		line.Quantity = next
		line.Stock = product.Stock
		if product.Name != "" {
			line.Name = product.Name
		}
		if delta > 0 {
			line.UnitPrice = product.Price
		}
	}
	cart.CheckoutID = ""

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		s.logger.Error("Failed to save cart", zap.String("product_id", product.ID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to save cart"}
	}
	return cart, nil
}

func (s *cartServiceImpl) Remove(ctx context.Context, productID string) (*models.Cart, *ServiceError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, svcErr := s.GetCart(ctx)
	if svcErr != nil {
		return nil, svcErr
	}

	lines := make([]models.CartLine, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		if l.ProductID != productID {
			lines = append(lines, l)
		}
	}
	if len(lines) == len(cart.Lines) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Product not in cart"}
	}
	cart.Lines = lines
	cart.CheckoutID = ""

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		s.logger.Error("Failed to update cart", zap.String("product_id", productID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to update cart"}
	}
	return cart, nil
}

// Clear empties the cart. Clearing an empty cart is not an error.
func (s *cartServiceImpl) Clear(ctx context.Context) *ServiceError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteCart(ctx); err != nil {
		s.logger.Error("Failed to clear cart", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to clear cart"}
	}
	return nil
}

func (s *cartServiceImpl) Checkout(ctx context.Context, sell func(cart *models.Cart) *ServiceError) *ServiceError {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, svcErr := s.GetCart(ctx)
	if svcErr != nil {
		return svcErr
	}
	if cart.IsEmpty() {
		return &ServiceError{StatusCode: http.StatusBadRequest, Message: "Cart is empty"}
	}

	if cart.CheckoutID == "" {
		cart.CheckoutID = uuid.NewString()
		if err := s.repo.SaveCart(ctx, cart); err != nil {
			s.logger.Error("Failed to save cart", zap.Error(err))
			return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to save cart"}
		}
	}

	if svcErr := sell(cart); svcErr != nil {
		return svcErr
	}

	// the sale is recorded; a failed clear is retried safely because the
	// next checkout reuses CheckoutID
	if err := s.repo.DeleteCart(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("Failed to clear cart after checkout", zap.String("checkout_id", cart.CheckoutID), zap.Error(err))
	}
	return nil
}

func (s *cartServiceImpl) Total(ctx context.Context) (float64, *ServiceError) {
	cart, svcErr := s.GetCart(ctx)
	if svcErr != nil {
		return 0, svcErr
	}
	return cart.Total(), nil
}
