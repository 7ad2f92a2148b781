package routes

import (
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/middleware"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/controllers"
	authmw "github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterOrderRoutes(r *gin.Engine, oc *controllers.OrderController, commitLimiter *middleware.RateLimiter) {
	orders := r.Group("/orders")
	orders.Use(authmw.AuthMiddleware())
	{
		if commitLimiter != nil {
			orders.POST("/commit", middleware.RateLimitMiddleware(commitLimiter), oc.CommitOrder)
		} else {
			orders.POST("/commit", oc.CommitOrder)
		}
		orders.GET("", oc.GetOrders)
		orders.GET("/:id", oc.GetOrderByID)
		orders.PATCH("/:id/status", oc.UpdateOrderStatus)
	}
}

func RegisterProductRoutes(r *gin.Engine, pc *controllers.ProductController) {
	products := r.Group("/products")
	products.Use(authmw.AuthMiddleware())
	{
		products.GET("", pc.ListProducts)
		products.GET("/:id", pc.GetProduct)
		products.POST("", pc.CreateProduct)
		products.POST("/:id/stock", pc.AdjustStock)
	}
}

func RegisterCustomerRoutes(r *gin.Engine, cc *controllers.CustomerController) {
	customers := r.Group("/customers")
	customers.Use(authmw.AuthMiddleware())
	{
		customers.GET("", cc.FindCustomer)
		customers.POST("", cc.CreateCustomer)
	}
}

func RegisterRejectedCommitRoutes(r *gin.Engine, rc *controllers.RejectedCommitController) {
	rejected := r.Group("/rejected-commits")
	rejected.Use(authmw.AuthMiddleware())
	rejected.GET("", rc.ListRejected)
}
