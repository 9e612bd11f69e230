package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// RestoreRequest is the optional body of POST /api/session/restore
type RestoreRequest struct {
	Forced bool `json:"forced"`
}

// Preserve saves the current window and waits for the write
func (h *Handlers) Preserve(c *gin.Context) {
	task := h.manager.PreserveTabs()
	if err := task.Wait(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}

	stats := h.manager.Stats()
	c.JSON(http.StatusOK, gin.H{
		"window_id":  stats.WindowID,
		"tab_count":  stats.TotalTabs,
		"last_saved": stats.LastSaved,
	})
}

// Restore rebuilds the tab list from the store
func (h *Handlers) Restore(c *gin.Context) {
	var req RestoreRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	// The restore is shared with other callers; a client hanging up must not cancel it.
	task := h.manager.RestoreTabs(context.WithoutCancel(c.Request.Context()), req.Forced)
	if err := task.Wait(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}

	resp := gin.H{
		"window_id": h.manager.WindowID(),
		"tab_count": h.manager.Count(),
	}
	if selected, found := h.manager.SelectedTab(); found {
		resp["selected_tab_id"] = selected.ID
	}
	c.JSON(http.StatusOK, resp)
}

// ListWindows summarizes every persisted window
func (h *Handlers) ListWindows(c *gin.Context) {
	windows, err := h.store.FetchAllWindowsData(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	summaries := make([]types.WindowSummary, len(windows))
	for i := range windows {
		summaries[i] = windows[i].ToSummary()
	}
	c.JSON(http.StatusOK, gin.H{
		"windows": summaries,
		"count":   len(summaries),
	})
}
