package tabs

import (
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// EventType identifies a registry change
type EventType string

const (
	EventAdded    EventType = "added"
	EventRemoved  EventType = "removed"
	EventSelected EventType = "selected"
	EventMoved    EventType = "moved"
	EventUpdated  EventType = "updated"
	EventRestored EventType = "restored"
	EventSaved    EventType = "saved"
)

// Event describes one change to the registry. Tab is a copy and is nil for
// window-wide events (restored, saved).
type Event struct {
	Type          EventType     `json:"type"`
	WindowID      uuid.UUID     `json:"window_id"`
	Tab           *types.Tab    `json:"tab,omitempty"`
	PreviousTabID *uuid.UUID    `json:"previous_tab_id,omitempty"`
	TabCount      int           `json:"tab_count"`
	PrivateCount  int           `json:"private_count"`
	Duration      time.Duration `json:"duration,omitempty"`
	Err           error         `json:"-"`
	Warnings      []error       `json:"-"`
}

// Observer receives change notifications. Notifications are delivered after
// the registry lock is released, on the goroutine that made the change (or
// the background save/restore goroutine). Handlers must not mutate the
// registry synchronously.
type Observer interface {
	TabsChanged(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// TabsChanged calls f(ev)
func (f ObserverFunc) TabsChanged(ev Event) {
	f(ev)
}
