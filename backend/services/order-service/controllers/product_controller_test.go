package controllers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/controllers"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/routes"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type mockProductService struct {
	adjustFn func(ctx context.Context, id uuid.UUID, req *models.AdjustStockRequest) (*models.Product, *services.ServiceError)
}

func (m *mockProductService) ListProducts(context.Context) ([]models.Product, *services.ServiceError) {
	return []models.Product{{ID: uuid.New(), Name: "Coffee", Price: 2.5, Stock: 10}}, nil
}

func (m *mockProductService) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, *services.ServiceError) {
	return nil, &services.ServiceError{StatusCode: 404, Message: "Product not found"}
}

func (m *mockProductService) CreateProduct(_ context.Context, req *models.CreateProductRequest) (*models.Product, *services.ServiceError) {
	return &models.Product{ID: uuid.New(), Name: req.Name, Price: req.Price, Stock: req.Stock}, nil
}

func (m *mockProductService) AdjustStock(ctx context.Context, id uuid.UUID, req *models.AdjustStockRequest) (*models.Product, *services.ServiceError) {
	return m.adjustFn(ctx, id, req)
}

func setupProductRouter(svc services.ProductService) *gin.Engine {
	r := gin.New()
	routes.RegisterProductRoutes(r, controllers.NewProductController(svc))
	return r
}

func TestProductController_ListAndCreate(t *testing.T) {
	r := setupProductRouter(&mockProductService{})

	w := do(r, http.MethodGet, "/products", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = do(r, http.MethodPost, "/products", []byte(`{"name":"Tea","price":1.8,"stock":5}`), nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Tea"`)

	w = do(r, http.MethodPost, "/products", []byte(`{"price":1.8}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductController_GetUnknown(t *testing.T) {
	r := setupProductRouter(&mockProductService{})

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/products/"+uuid.NewString(), nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/products/nope", nil, nil).Code)
}

func TestProductController_AdjustStock(t *testing.T) {
	var gotDelta int
	svc := &mockProductService{
		adjustFn: func(_ context.Context, id uuid.UUID, req *models.AdjustStockRequest) (*models.Product, *services.ServiceError) {
			gotDelta = req.Delta
			if req.Delta < -10 {
				return nil, &services.ServiceError{StatusCode: 409, Message: "Not enough stock available"}
			}
			return &models.Product{ID: id, Stock: 10 + req.Delta}, nil
		},
	}
	r := setupProductRouter(svc)
	path := "/products/" + uuid.NewString() + "/stock"

	w := do(r, http.MethodPost, path, []byte(`{"delta":24,"reason":"Delivery"}`), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 24, gotDelta)

	w = do(r, http.MethodPost, path, []byte(`{"delta":-50}`), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, path, []byte(`{"delta":0}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
