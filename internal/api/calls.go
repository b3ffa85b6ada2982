package api

import (
	"errors"
	"net/http"

	"homekeys/server/internal/calls"
	"homekeys/server/internal/models"

	"github.com/gin-gonic/gin"
)

// RequestCall asks the provider to phone the visitor
func (h *Handler) RequestCall(c *gin.Context) {
	var req models.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.CallOutcome{Message: "Phone number is required"})
		return
	}
	if req.SessionID != "" {
		if _, ok := h.sessions.Get(req.SessionID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
	}
	if h.calls == nil {
		c.JSON(http.StatusServiceUnavailable, models.CallOutcome{Message: "Calling is not available right now"})
		return
	}

	outcome, err := h.calls.Request(c.Request.Context(), req)
	if err != nil {
		c.JSON(callStatus(err), outcome)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func callStatus(err error) int {
	switch {
	case errors.Is(err, calls.ErrMissingPhone), errors.Is(err, calls.ErrInvalidPhone):
		return http.StatusBadRequest
	case errors.Is(err, calls.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, calls.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
