package controllers

import (
	"net/http"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/services"
	"github.com/gin-gonic/gin"
)

type CustomerController struct {
	customerService services.CustomerService
}

func NewCustomerController(customerService services.CustomerService) *CustomerController {
	return &CustomerController{customerService: customerService}
}

// LookupCustomer handles GET /customers?cedula=0102030405.
func (cc *CustomerController) LookupCustomer(ctx *gin.Context) {
	customer, svcErr := cc.customerService.LookupCustomer(ctx.Request.Context(), ctx.Query("cedula"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, customer)
}
