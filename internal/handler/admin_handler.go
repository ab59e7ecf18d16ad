package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/Awerito/ulatickets-api/internal/worker"
	"github.com/Awerito/ulatickets-api/pkg/response"
	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

// AdminHandler exposes operational endpoints for the expiry reconciler
type AdminHandler struct {
	reconciler *worker.ExpiryReconciler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reconciler *worker.ExpiryReconciler) *AdminHandler {
	return &AdminHandler{reconciler: reconciler}
}

// TriggerSweep handles POST /admin/sweep. It runs one expiry pass outside
// the normal schedule; a sweep already in flight makes this a no-op.
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.trigger_sweep")
	defer span.End()

	h.reconciler.Sweep(ctx)

	span.SetStatus(codes.Ok, "")
	response.Success(c, h.reconciler.Stats())
}

// SweepStats handles GET /admin/sweep
func (h *AdminHandler) SweepStats(c *gin.Context) {
	response.Success(c, h.reconciler.Stats())
}
