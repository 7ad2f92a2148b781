package routes

import (
	"net/http"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/controllers"
	"github.com/gin-gonic/gin"
)

func RegisterPOSRoutes(r *gin.Engine, cc *controllers.CartController, oc *controllers.OfflineController) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "pos-service"})
	})

	cart := r.Group("/cart")
	{
		cart.GET("", cc.GetCart)
		cart.POST("/items", cc.AddItem)
		cart.DELETE("/items/:product_id", cc.RemoveItem)
		cart.DELETE("", cc.ClearCart)
	}
	r.POST("/checkout", cc.Checkout)

	offline := r.Group("/offline")
	{
		offline.GET("/status", oc.Status)
		offline.GET("/queue", oc.Queue)
		offline.POST("/sync", oc.Sync)
		offline.GET("/review", oc.ListReview)
		offline.POST("/review/:local_id/requeue", oc.Requeue)
		offline.DELETE("/review/:local_id", oc.Discard)
	}

	r.POST("/network", oc.SetNetwork)
	r.GET("/events", oc.Events)
}

func RegisterCustomerRoutes(r *gin.Engine, cc *controllers.CustomerController) {
	r.GET("/customers", cc.LookupCustomer)
}
