package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/logging"
)

type logLevelRequest struct {
	Level string `json:"level" binding:"required"`
}

// registerLogLevel exposes the running log level at /api/log-level.
func registerLogLevel(router *gin.Engine, logger *logging.Logger) {
	router.GET("/api/log-level", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"level": logger.Level()})
	})
	router.PUT("/api/log-level", func(c *gin.Context) {
		var req logLevelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		previous := logger.Level()
		if err := logger.SetLevel(req.Level); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Warn("Log level changed",
			zap.String("from", previous),
			zap.String("to", logger.Level()))
		c.JSON(http.StatusOK, gin.H{"level": logger.Level()})
	})
}
