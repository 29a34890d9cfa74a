package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	amortizedomain "github.com/smallbiznis/costlens/internal/amortize/domain"
	consolidatedomain "github.com/smallbiznis/costlens/internal/consolidate/domain"
	"github.com/smallbiznis/costlens/internal/datewindow"
	enginedomain "github.com/smallbiznis/costlens/internal/engine/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware maps domain errors pushed onto the gin context
// into one JSON error shape.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, enginedomain.ErrUnknownDomain),
		errors.Is(err, enginedomain.ErrInvalidTenant),
		errors.Is(err, datewindow.ErrInvalidWindow),
		errors.Is(err, datewindow.ErrWindowTooLong),
		errors.Is(err, amortizedomain.ErrInvalidSeats):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	case errors.Is(err, enginedomain.ErrRunNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case errors.Is(err, consolidatedomain.ErrStageOrderViolation):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: err.Error()}
	}
}
