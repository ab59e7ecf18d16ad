package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Awerito/ulatickets-api/pkg/database"
	"github.com/Awerito/ulatickets-api/pkg/redis"
)

// HealthHandler reports process liveness and dependency readiness
type HealthHandler struct {
	db    *database.PostgresDB
	cache *redis.Client
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.PostgresDB, cache *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /ready. It checks every dependency and reports the
// first failure with a 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	components := gin.H{}
	healthy := true

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			components["postgres"] = err.Error()
			healthy = false
		} else {
			components["postgres"] = "ok"
		}
	}

	if h.cache != nil {
		if err := h.cache.HealthCheck(ctx); err != nil {
			components["redis"] = err.Error()
			healthy = false
		} else {
			components["redis"] = "ok"
		}
	}

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "components": components})
}
