package controllers

import (
	"net/http"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/services"
	"github.com/gin-gonic/gin"
)

type CustomerController struct {
	customerService services.CustomerService
}

func NewCustomerController(customerService services.CustomerService) *CustomerController {
	return &CustomerController{customerService: customerService}
}

// FindCustomer handles GET /customers?cedula=0102030405.
func (cc *CustomerController) FindCustomer(ctx *gin.Context) {
	customer, svcErr := cc.customerService.FindByCedula(ctx.Request.Context(), ctx.Query("cedula"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, customer)
}

func (cc *CustomerController) CreateCustomer(ctx *gin.Context) {
	var req models.CreateCustomerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	customer, svcErr := cc.customerService.CreateCustomer(ctx.Request.Context(), &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusCreated, customer)
}
