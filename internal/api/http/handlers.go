package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/session"
	"github.com/GriffinCanCode/tabkeeper/internal/domain/tabs"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/monitoring"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	manager *tabs.Manager
	store   session.Store
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(manager *tabs.Manager, store session.Store, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		manager: manager,
		store:   store,
		metrics: metrics,
		logger:  logger.Named("api"),
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/tabs", h.ListTabs)
		api.GET("/tabs/count", h.CountTabs)
		api.POST("/tabs", h.CreateTab)
		api.GET("/tabs/:id", h.GetTab)
		api.PATCH("/tabs/:id", h.UpdateTab)
		api.DELETE("/tabs/:id", h.RemoveTab)
		api.POST("/tabs/:id/select", h.SelectTab)
		api.POST("/tabs/:id/move", h.MoveTab)
		api.GET("/tabs/:id/thumbnail", h.GetThumbnail)
		api.PUT("/tabs/:id/thumbnail", h.PutThumbnail)

		api.POST("/session/preserve", h.Preserve)
		api.POST("/session/restore", h.Restore)
		api.GET("/session/windows", h.ListWindows)

		api.GET("/metrics", h.Metrics)
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "tabkeeper",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"window_id": h.manager.WindowID(),
		"restoring": h.manager.Restoring(),
		"tabs":      h.manager.Stats(),
	})
}

// Metrics returns the JSON metrics snapshot
func (h *Handlers) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}
