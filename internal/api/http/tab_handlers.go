package http

import (
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/tabs"
	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
	"github.com/GriffinCanCode/tabkeeper/internal/shared/utils"
)

// MaxThumbnailBytes bounds an uploaded thumbnail
const MaxThumbnailBytes = 4 << 20

// CreateTabRequest is the body of POST /api/tabs
type CreateTabRequest struct {
	IsPrivate bool       `json:"is_private"`
	ParentID  *uuid.UUID `json:"parent_id"`
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	// Select makes the new tab active after it is added.
	Select bool `json:"select"`
}

// UpdateTabRequest is the body of PATCH /api/tabs/:id
type UpdateTabRequest struct {
	Title      *string             `json:"title"`
	URL        *string             `json:"url"`
	FaviconURL *string             `json:"favicon_url"`
	GroupData  *types.TabGroupData `json:"group_data"`
	ClearGroup bool                `json:"clear_group"`
}

func (r *UpdateTabRequest) validate() error {
	if r.Title != nil {
		if err := utils.ValidateTitle(*r.Title); err != nil {
			return err
		}
	}
	if r.URL != nil {
		if err := utils.ValidateURL(*r.URL, "url"); err != nil {
			return err
		}
	}
	if r.FaviconURL != nil {
		if err := utils.ValidateURL(*r.FaviconURL, "favicon_url"); err != nil {
			return err
		}
	}
	if r.GroupData != nil {
		if err := utils.ValidateSearchTerm(r.GroupData.SearchTerm); err != nil {
			return err
		}
		if err := utils.ValidateURL(r.GroupData.SearchURL, "search_url"); err != nil {
			return err
		}
		if err := utils.ValidateURL(r.GroupData.NextURL, "next_url"); err != nil {
			return err
		}
	}
	return nil
}

// MoveTabRequest is the body of POST /api/tabs/:id/move
type MoveTabRequest struct {
	Index *int `json:"index" binding:"required"`
}

// ListTabs lists all tabs in order
func (h *Handlers) ListTabs(c *gin.Context) {
	list := h.manager.Tabs()
	resp := gin.H{
		"tabs":  list,
		"count": len(list),
	}
	if selected, ok := h.manager.SelectedTab(); ok {
		resp["selected_tab_id"] = selected.ID
	}
	c.JSON(http.StatusOK, resp)
}

// CountTabs returns the tab count, optionally filtered by ?private=
func (h *Handlers) CountTabs(c *gin.Context) {
	raw, filtered := c.GetQuery("private")
	if !filtered {
		c.JSON(http.StatusOK, gin.H{"count": h.manager.Count()})
		return
	}

	private, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, errors.New("private must be a boolean"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   h.manager.CountByPrivacy(private),
		"private": private,
	})
}

// GetTab returns one tab
func (h *Handlers) GetTab(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	tab, found := h.manager.Get(id)
	if !found {
		h.respondError(c, tabs.ErrTabNotFound)
		return
	}
	c.JSON(http.StatusOK, tab)
}

// CreateTab opens a new tab
func (h *Handlers) CreateTab(c *gin.Context) {
	var req CreateTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := utils.ValidateTitle(req.Title); err != nil {
		badRequest(c, err)
		return
	}
	if err := utils.ValidateURL(req.URL, "url"); err != nil {
		badRequest(c, err)
		return
	}
	if req.ParentID != nil {
		if _, found := h.manager.Get(*req.ParentID); !found {
			badRequest(c, fmt.Errorf("parent tab %s not found", *req.ParentID))
			return
		}
	}

	tab, err := h.manager.AddTab(tabs.AddTabOptions{
		IsPrivate: req.IsPrivate,
		Parent:    req.ParentID,
		URL:       req.URL,
		Title:     req.Title,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if req.Select {
		if err := h.manager.SelectTab(tab.ID); err != nil {
			h.respondError(c, err)
			return
		}
		if selected, found := h.manager.Get(tab.ID); found {
			tab = selected
		}
	}

	c.JSON(http.StatusCreated, tab)
}

// SelectTab makes a tab active
func (h *Handlers) SelectTab(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	// SelectTab ignores unknown ids; the API reports them.
	if _, found := h.manager.Get(id); !found {
		h.respondError(c, tabs.ErrTabNotFound)
		return
	}
	if err := h.manager.SelectTab(id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"selected_tab_id": id})
}

// UpdateTab applies navigation changes to a tab
func (h *Handlers) UpdateTab(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	var req UpdateTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.validate(); err != nil {
		badRequest(c, err)
		return
	}

	err := h.manager.UpdateTab(id, tabs.TabUpdate{
		Title:      req.Title,
		URL:        req.URL,
		FaviconURL: req.FaviconURL,
		GroupData:  req.GroupData,
		ClearGroup: req.ClearGroup,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	// The tab may have been closed since the update landed.
	tab, found := h.manager.Get(id)
	if !found {
		h.respondError(c, tabs.ErrTabNotFound)
		return
	}
	c.JSON(http.StatusOK, tab)
}

// MoveTab reorders a tab
func (h *Handlers) MoveTab(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	var req MoveTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.manager.MoveTab(id, *req.Index); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tabs": h.manager.Tabs()})
}

// RemoveTab closes a tab and drops its thumbnail
func (h *Handlers) RemoveTab(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	if err := h.manager.RemoveTab(id); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.store.RemoveImage(c.Request.Context(), id); err != nil {
		h.logger.Warn("Failed to remove thumbnail",
			zap.Stringer("tab_id", id),
			zap.Error(err))
	}

	resp := gin.H{"removed": id}
	if selected, found := h.manager.SelectedTab(); found {
		resp["selected_tab_id"] = selected.ID
	}
	c.JSON(http.StatusOK, resp)
}

// GetThumbnail serves a tab's thumbnail as PNG
func (h *Handlers) GetThumbnail(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	img, err := h.store.FetchImage(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := png.Encode(c.Writer, img); err != nil {
		h.logger.Warn("Failed to write thumbnail", zap.Stringer("tab_id", id), zap.Error(err))
	}
}

// PutThumbnail stores a PNG thumbnail for a live tab
func (h *Handlers) PutThumbnail(c *gin.Context) {
	id, ok := tabID(c)
	if !ok {
		return
	}
	if _, found := h.manager.Get(id); !found {
		h.respondError(c, tabs.ErrTabNotFound)
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxThumbnailBytes)
	img, err := png.Decode(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "thumbnail too large"})
			return
		}
		badRequest(c, fmt.Errorf("thumbnail must be a PNG image: %w", err))
		return
	}

	if err := h.store.SaveImage(c.Request.Context(), id, img); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
