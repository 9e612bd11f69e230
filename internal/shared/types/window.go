package types

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotVersion is the current WindowSnapshot schema version.
const SnapshotVersion = 1

// TabData is the persisted form of a Tab
type TabData struct {
	ID         uuid.UUID     `json:"id"`
	Title      string        `json:"title"`
	URL        string        `json:"site_url"`
	FaviconURL string        `json:"favicon_url"`
	IsPrivate  bool          `json:"is_private"`
	LastUsed   time.Time     `json:"last_used_time"`
	CreatedAt  time.Time     `json:"created_at_time"`
	ParentID   *uuid.UUID    `json:"parent_id,omitempty"`
	GroupData  *TabGroupData `json:"tab_group_data,omitempty"`
}

// ToTab rebuilds a live tab from its persisted form. Restored tabs start inactive.
func (d TabData) ToTab() *Tab {
	tab := &Tab{
		ID:         d.ID,
		Title:      d.Title,
		URL:        d.URL,
		FaviconURL: d.FaviconURL,
		IsPrivate:  d.IsPrivate,
		LastUsed:   d.LastUsed,
		CreatedAt:  d.CreatedAt,
		GroupData:  d.GroupData.Clone(),
		State:      TabInactive,
	}
	if d.ParentID != nil {
		parent := *d.ParentID
		tab.ParentID = &parent
	}
	return tab
}

// WindowSnapshot is the durable state of one window: its ordered tabs and
// which of them is active. A save replaces the previous snapshot for the
// same window id wholesale.
type WindowSnapshot struct {
	Version     int        `json:"version"`
	ID          uuid.UUID  `json:"id"`
	IsPrimary   bool       `json:"is_primary"`
	ActiveTabID *uuid.UUID `json:"active_tab_id,omitempty"`
	SavedAt     time.Time  `json:"saved_at"`
	Tabs        []TabData  `json:"tab_data"`
}

// HasTab reports whether id is one of the snapshot's tabs.
func (w *WindowSnapshot) HasTab(id uuid.UUID) bool {
	for i := range w.Tabs {
		if w.Tabs[i].ID == id {
			return true
		}
	}
	return false
}

// Normalize applies read-side defaults for fields older writers omitted.
func (w *WindowSnapshot) Normalize() {
	if w.Version == 0 {
		w.Version = SnapshotVersion
	}
	if w.Tabs == nil {
		w.Tabs = []TabData{}
	}
}

// WindowSummary is a short description of a persisted window
type WindowSummary struct {
	ID          uuid.UUID  `json:"id"`
	IsPrimary   bool       `json:"is_primary"`
	ActiveTabID *uuid.UUID `json:"active_tab_id,omitempty"`
	SavedAt     time.Time  `json:"saved_at"`
	TabCount    int        `json:"tab_count"`
	PrivateTabs int        `json:"private_tabs"`
}

// ToSummary extracts summary information from a snapshot
func (w *WindowSnapshot) ToSummary() WindowSummary {
	var private int
	for i := range w.Tabs {
		if w.Tabs[i].IsPrivate {
			private++
		}
	}
	return WindowSummary{
		ID:          w.ID,
		IsPrimary:   w.IsPrimary,
		ActiveTabID: w.ActiveTabID,
		SavedAt:     w.SavedAt,
		TabCount:    len(w.Tabs),
		PrivateTabs: private,
	}
}
