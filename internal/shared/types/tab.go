package types

import (
	"time"

	"github.com/google/uuid"
)

// TabState represents tab lifecycle states
type TabState string

const (
	TabCreated  TabState = "created"
	TabActive   TabState = "active"
	TabInactive TabState = "inactive"
	TabClosed   TabState = "closed"
)

// TabGroupData associates a tab with a search-driven group of related tabs.
// A nil *TabGroupData means the tab is ungrouped.
type TabGroupData struct {
	SearchTerm   string `json:"search_term"`
	SearchURL    string `json:"search_url"`
	NextURL      string `json:"next_url"`
	HistoryState string `json:"history_state,omitempty"`
}

// Clone returns a copy of g, or nil for an ungrouped tab.
func (g *TabGroupData) Clone() *TabGroupData {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

// Tab represents one live browsing tab
type Tab struct {
	ID         uuid.UUID     `json:"id"`
	Title      string        `json:"title"`
	URL        string        `json:"url"`
	FaviconURL string        `json:"favicon_url"`
	IsPrivate  bool          `json:"is_private"`
	LastUsed   time.Time     `json:"last_used"`
	CreatedAt  time.Time     `json:"created_at"`
	ParentID   *uuid.UUID    `json:"parent_id,omitempty"`
	GroupData  *TabGroupData `json:"group_data,omitempty"`
	State      TabState      `json:"state"`
}

// Clone returns a deep copy so callers cannot reach the registry's copy.
func (t *Tab) Clone() *Tab {
	c := *t
	if t.ParentID != nil {
		parent := *t.ParentID
		c.ParentID = &parent
	}
	c.GroupData = t.GroupData.Clone()
	return &c
}

// ToData converts a live tab to its persisted form.
func (t *Tab) ToData() TabData {
	data := TabData{
		ID:         t.ID,
		Title:      t.Title,
		URL:        t.URL,
		FaviconURL: t.FaviconURL,
		IsPrivate:  t.IsPrivate,
		LastUsed:   t.LastUsed,
		CreatedAt:  t.CreatedAt,
		GroupData:  t.GroupData.Clone(),
	}
	if t.ParentID != nil {
		parent := *t.ParentID
		data.ParentID = &parent
	}
	return data
}

// TabStats contains registry statistics
type TabStats struct {
	WindowID          uuid.UUID  `json:"window_id"`
	TotalTabs         int        `json:"total_tabs"`
	PrivateTabs       int        `json:"private_tabs"`
	NormalTabs        int        `json:"normal_tabs"`
	SelectedTabID     *uuid.UUID `json:"selected_tab_id,omitempty"`
	SavesCompleted    int64      `json:"saves_completed"`
	SaveFailures      int64      `json:"save_failures"`
	RestoresCompleted int64      `json:"restores_completed"`
	LastSaved         *time.Time `json:"last_saved,omitempty"`
	LastRestored      *time.Time `json:"last_restored,omitempty"`
}
