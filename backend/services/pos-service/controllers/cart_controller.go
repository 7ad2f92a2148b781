package controllers

import (
	"net/http"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/services"
	"github.com/gin-gonic/gin"
)

type CartController struct {
	cartService     services.CartService
	checkoutService services.CheckoutService
}

func NewCartController(cartService services.CartService, checkoutService services.CheckoutService) *CartController {
	return &CartController{
		cartService:     cartService,
		checkoutService: checkoutService,
	}
}

// AddItemRequest changes the quantity of one product. Quantity may be
// negative; it defaults to 1.
type AddItemRequest struct {
	Product  models.Product `json:"product" binding:"required"`
	Quantity int            `json:"quantity"`
}

type cartResponse struct {
	*models.Cart
	Total float64 `json:"total"`
}

func renderCart(ctx *gin.Context, cart *models.Cart) {
	ctx.JSON(http.StatusOK, cartResponse{Cart: cart, Total: cart.Total()})
}

// GetCart returns the cart being built
func (cc *CartController) GetCart(ctx *gin.Context) {
	cart, svcErr := cc.cartService.GetCart(ctx.Request.Context())
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	renderCart(ctx, cart)
}

// AddItem adds or updates an item in the cart
func (cc *CartController) AddItem(ctx *gin.Context) {
	var req AddItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, svcErr := cc.cartService.Add(ctx.Request.Context(), req.Product, req.Quantity)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	renderCart(ctx, cart)
}

// RemoveItem removes a specific item from the cart
func (cc *CartController) RemoveItem(ctx *gin.Context) {
	cart, svcErr := cc.cartService.Remove(ctx.Request.Context(), ctx.Param("product_id"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	renderCart(ctx, cart)
}

// ClearCart removes all items from the cart
func (cc *CartController) ClearCart(ctx *gin.Context) {
	if svcErr := cc.cartService.Clear(ctx.Request.Context()); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// Checkout completes the sale. 201 when the server committed it, 202 when it
// was saved for a later sync.
func (cc *CartController) Checkout(ctx *gin.Context) {
	var req models.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, svcErr := cc.checkoutService.Checkout(ctx.Request.Context(), req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	status := http.StatusCreated
	if resp.Status == models.CheckoutQueued {
		status = http.StatusAccepted
	}
	ctx.JSON(status, resp)
}
