package controllers

import (
	"net/http"
	"strconv"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/middleware"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyHeader carries the terminal's local order id.
const IdempotencyHeader = "Idempotency-Key"

type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

// CommitOrder records a completed sale. 201 for a new order, 200 when the
// local_id was already committed.
func (oc *OrderController) CommitOrder(ctx *gin.Context) {
	var req models.CommitOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	key := ctx.GetHeader(IdempotencyHeader)
	switch {
	case req.LocalID == "":
		req.LocalID = key
	case key != "" && key != req.LocalID:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key does not match local_id"})
		return
	}

	if req.CashierID == nil {
		if userID, err := middleware.GetUserID(ctx); err == nil {
			req.CashierID = &userID
		}
	}

	resp, svcErr := oc.orderService.CommitOrder(ctx.Request.Context(), &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	ctx.JSON(status, resp)
}

// GetOrders returns paginated orders, newest first
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)

	result, svcErr := oc.orderService.ListOrders(ctx.Request.Context(), page, limit)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// GetOrderByID returns one order with its items
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	orderUUID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID format"})
		return
	}

	order, svcErr := oc.orderService.GetOrder(ctx.Request.Context(), orderUUID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

func (oc *OrderController) UpdateOrderStatus(ctx *gin.Context) {
	orderUUID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID format"})
		return
	}

	var req models.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if svcErr := oc.orderService.UpdateStatus(ctx.Request.Context(), orderUUID, req.Status); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Order status updated"})
}

// parsePaginationParams extracts and validates pagination parameters
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	pageInt := DefaultPage
	limitInt := DefaultLimit

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}

	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limitInt = l
		if limitInt > MaxLimit {
			limitInt = MaxLimit
		}
	}

	return pageInt, limitInt
}
