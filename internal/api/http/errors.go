package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/session"
	"github.com/GriffinCanCode/tabkeeper/internal/domain/tabs"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, tabs.ErrTabNotFound),
		errors.Is(err, session.ErrWindowNotFound),
		errors.Is(err, session.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, tabs.ErrRestoreInProgress):
		return http.StatusConflict
	case errors.Is(err, tabs.ErrManagerClosed),
		errors.Is(err, session.ErrStoreClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// tabID parses the :id path parameter, answering 400 when it is not a uuid.
func tabID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tab id"})
		return uuid.Nil, false
	}
	return id, true
}
