package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Awerito/ulatickets-api/internal/domain"
	"github.com/Awerito/ulatickets-api/pkg/response"
)

// respondError translates a domain error into an HTTP response. Validation
// maps to 400, missing records to 404, losing a stock or status race to 409,
// and exhausted storage retries to 503.
func respondError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), "")
	case domain.IsNotFoundError(err):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error(), "")
	case domain.IsConflictError(err):
		response.Error(c, http.StatusConflict, "CONFLICT", err.Error(), "")
	case errors.Is(err, domain.ErrStorageContention):
		response.Error(c, http.StatusServiceUnavailable, "STORAGE_CONTENTION",
			"storage is under contention, retry shortly", "")
	default:
		response.InternalError(c, err)
	}
}
