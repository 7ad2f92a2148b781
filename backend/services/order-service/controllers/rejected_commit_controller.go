package controllers

import (
	"net/http"
	"strconv"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/services"
	"github.com/gin-gonic/gin"
)

type RejectedCommitController struct {
	rejectedService services.RejectedCommitService
}

func NewRejectedCommitController(rejectedService services.RejectedCommitService) *RejectedCommitController {
	return &RejectedCommitController{rejectedService: rejectedService}
}

// ListRejected handles GET /rejected-commits?limit=50.
func (rc *RejectedCommitController) ListRejected(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	rejected, svcErr := rc.rejectedService.ListRejected(ctx.Request.Context(), limit)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rejected_commits": rejected, "count": len(rejected)})
}
