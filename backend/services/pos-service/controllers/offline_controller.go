package controllers

import (
	"net/http"

	apperrors "github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/errors"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/logger"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/notify"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OfflineController struct {
	sync    *services.SyncService
	network services.Connectivity
	hub     *notify.Hub
}

func NewOfflineController(sync *services.SyncService, network services.Connectivity, hub *notify.Hub) *OfflineController {
	return &OfflineController{
		sync:    sync,
		network: network,
		hub:     hub,
	}
}

type NetworkRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// Status reports connectivity, queue length and the last sync result.
func (oc *OfflineController) Status(ctx *gin.Context) {
	status, err := oc.sync.Status(ctx.Request.Context(), oc.network.IsOnline())
	if err != nil {
		_ = ctx.Error(apperrors.Wrap(apperrors.ErrQueueUnavailable, err))
		return
	}
	ctx.JSON(http.StatusOK, status)
}

func (oc *OfflineController) Queue(ctx *gin.Context) {
	queue, err := oc.sync.Queue(ctx.Request.Context())
	if err != nil {
		_ = ctx.Error(apperrors.Wrap(apperrors.ErrQueueUnavailable, err))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": queue, "count": len(queue)})
}

// Sync runs a pass now and returns its outcome. While offline it needs
// ?force=true.
func (oc *OfflineController) Sync(ctx *gin.Context) {
	if !oc.network.IsOnline() && ctx.Query("force") != "true" {
		_ = ctx.Error(apperrors.WithMessage(apperrors.ErrServiceUnavailable, "Terminal is offline"))
		return
	}

	outcome, err := oc.sync.Sync(ctx.Request.Context())
	if err != nil {
		logger.Error(ctx, "Manual sync failed", err)
		_ = ctx.Error(apperrors.Wrap(apperrors.ErrQueueUnavailable, err))
		return
	}
	if outcome.Skipped {
		_ = ctx.Error(apperrors.ErrSyncInProgress)
		return
	}
	ctx.JSON(http.StatusOK, outcome)
}

func (oc *OfflineController) ListReview(ctx *gin.Context) {
	entries, err := oc.sync.ListReview(ctx.Request.Context())
	if err != nil {
		_ = ctx.Error(apperrors.Wrap(apperrors.ErrQueueUnavailable, err))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": entries, "count": len(entries)})
}

func (oc *OfflineController) Requeue(ctx *gin.Context) {
	order, svcErr := oc.sync.Requeue(ctx.Request.Context(), ctx.Param("local_id"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, order)
}

func (oc *OfflineController) Discard(ctx *gin.Context) {
	localID := ctx.Param("local_id")
	if svcErr := oc.sync.Discard(ctx.Request.Context(), localID); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	logger.Warn(ctx, "Order discarded from review list", zap.String("local_id", localID))
	ctx.JSON(http.StatusOK, gin.H{"message": "Order discarded"})
}

// SetNetwork lets the terminal UI forward its own online/offline signal.
func (oc *OfflineController) SetNetwork(ctx *gin.Context) {
	var req NetworkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		_ = ctx.Error(apperrors.Wrap(apperrors.ErrBadRequest, err))
		return
	}
	oc.network.Set(*req.Online)
	ctx.JSON(http.StatusOK, gin.H{"online": oc.network.IsOnline()})
}

// Events upgrades to a WebSocket stream of status events.
func (oc *OfflineController) Events(ctx *gin.Context) {
	if oc.hub == nil {
		_ = ctx.Error(apperrors.WithMessage(apperrors.ErrNotFound, "Event stream disabled"))
		return
	}
	oc.hub.ServeWS(ctx.Writer, ctx.Request)
}
