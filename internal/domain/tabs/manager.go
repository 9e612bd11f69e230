package tabs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/session"
	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// DefaultPreserveDelay is how long PreserveTabs waits for further requests
// before writing.
const DefaultPreserveDelay = 250 * time.Millisecond

// Options configures a Manager
type Options struct {
	// WindowID identifies this registry's window; a new id is generated when zero.
	WindowID uuid.UUID
	// Secondary marks the window as non-primary.
	Secondary bool
	// PreserveDelay is the save debounce window. Zero uses DefaultPreserveDelay.
	PreserveDelay time.Duration
	// AutoPreserve schedules a save after every successful mutation.
	AutoPreserve bool
	Logger       *zap.Logger
	Now          func() time.Time
}

// Manager owns the live, ordered tab list of one window. It mediates every
// mutation and coordinates save/restore with the Store.
type Manager struct {
	mu          sync.RWMutex
	tabs        []*types.Tab             // Protected by mu
	index       map[uuid.UUID]*types.Tab // Protected by mu
	selectedID  *uuid.UUID               // Protected by mu
	windowID    uuid.UUID                // Protected by mu
	restoring   bool                     // Protected by mu
	restoreTask *Task                    // Protected by mu
	isPrimary   bool

	store        session.Store
	saver        *saver
	logger       *zap.Logger
	now          func() time.Time
	autoPreserve bool

	observersMu sync.RWMutex
	observers   []Observer

	savesCompleted    atomic.Int64
	saveFailures      atomic.Int64
	restoresCompleted atomic.Int64
	statsMu           sync.Mutex
	lastSaved         *time.Time
	lastRestored      *time.Time
}

// NewManager creates a tab registry persisting through store
func NewManager(store session.Store, opts Options) *Manager {
	if opts.WindowID == uuid.Nil {
		opts.WindowID = uuid.New()
	}
	if opts.PreserveDelay <= 0 {
		opts.PreserveDelay = DefaultPreserveDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	m := &Manager{
		index:        make(map[uuid.UUID]*types.Tab),
		windowID:     opts.WindowID,
		isPrimary:    !opts.Secondary,
		store:        store,
		logger:       opts.Logger.Named("tabs"),
		now:          opts.Now,
		autoPreserve: opts.AutoPreserve,
	}
	m.saver = newSaver(opts.PreserveDelay, m.save)
	return m
}

// AddObserver registers o for change notifications
func (m *Manager) AddObserver(o Observer) {
	m.observersMu.Lock()
	m.observers = append(m.observers, o)
	m.observersMu.Unlock()
}

// AddTabOptions describes a new tab
type AddTabOptions struct {
	IsPrivate bool
	// Parent is the tab that opened this one; the new tab joins its group.
	Parent *uuid.UUID
	URL    string
	Title  string
}

// AddTab appends a new tab. The new tab is not selected.
func (m *Manager) AddTab(opts AddTabOptions) (*types.Tab, error) {
	now := m.now()
	tab := &types.Tab{
		ID:        uuid.New(),
		Title:     opts.Title,
		URL:       opts.URL,
		IsPrivate: opts.IsPrivate,
		LastUsed:  now,
		CreatedAt: now,
		State:     types.TabCreated,
	}

	m.mu.Lock()
	if m.restoring {
		m.mu.Unlock()
		return nil, ErrRestoreInProgress
	}
	if opts.Parent != nil {
		if parent, ok := m.index[*opts.Parent]; ok {
			parentID := parent.ID
			tab.ParentID = &parentID
			tab.GroupData = parent.GroupData.Clone()
		} else {
			m.logger.Debug("Parent tab not found, adding ungrouped", zap.Stringer("parent_id", *opts.Parent))
		}
	}
	m.tabs = append(m.tabs, tab)
	m.index[tab.ID] = tab
	ev := m.eventLocked(EventAdded, tab)
	m.mu.Unlock()

	m.notify(ev)
	m.afterMutation()
	return ev.Tab, nil
}

// SelectTab makes id the active tab and marks it most recently used.
// Unknown ids are ignored. Ordering never changes.
func (m *Manager) SelectTab(id uuid.UUID) error {
	m.mu.Lock()
	if m.restoring {
		m.mu.Unlock()
		return ErrRestoreInProgress
	}
	tab, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}

	tab.LastUsed = m.now()
	if m.selectedID != nil && *m.selectedID == id {
		m.mu.Unlock()
		return nil
	}

	previous := m.activateLocked(tab)
	ev := m.eventLocked(EventSelected, tab)
	ev.PreviousTabID = previous
	m.mu.Unlock()

	m.notify(ev)
	m.afterMutation()
	return nil
}

// RemoveTab closes a tab. When the active tab is removed, the most recently
// used remaining tab with the same privacy mode becomes active; if there is
// none, no tab is active.
func (m *Manager) RemoveTab(id uuid.UUID) error {
	m.mu.Lock()
	if m.restoring {
		m.mu.Unlock()
		return ErrRestoreInProgress
	}
	pos := m.positionLocked(id)
	if pos < 0 {
		m.mu.Unlock()
		return ErrTabNotFound
	}

	removed := m.tabs[pos]
	m.tabs = append(m.tabs[:pos], m.tabs[pos+1:]...)
	delete(m.index, id)
	removed.State = types.TabClosed

	events := []Event{m.eventLocked(EventRemoved, removed)}
	if m.selectedID != nil && *m.selectedID == id {
		m.selectedID = nil
		if next := m.mostRecentLocked(func(t *types.Tab) bool { return t.IsPrivate == removed.IsPrivate }); next != nil {
			next.LastUsed = m.now()
			m.activateLocked(next)
			ev := m.eventLocked(EventSelected, next)
			ev.PreviousTabID = &removed.ID
			events = append(events, ev)
		}
	}
	m.mu.Unlock()

	for _, ev := range events {
		m.notify(ev)
	}
	m.afterMutation()
	return nil
}

// MoveTab moves a tab to index to, clamped to the list bounds
func (m *Manager) MoveTab(id uuid.UUID, to int) error {
	m.mu.Lock()
	if m.restoring {
		m.mu.Unlock()
		return ErrRestoreInProgress
	}
	from := m.positionLocked(id)
	if from < 0 {
		m.mu.Unlock()
		return ErrTabNotFound
	}

	to = max(0, min(to, len(m.tabs)-1))
	if from == to {
		m.mu.Unlock()
		return nil
	}
	tab := m.tabs[from]
	m.tabs = append(m.tabs[:from], m.tabs[from+1:]...)
	m.tabs = append(m.tabs[:to], append([]*types.Tab{tab}, m.tabs[to:]...)...)
	ev := m.eventLocked(EventMoved, tab)
	m.mu.Unlock()

	m.notify(ev)
	m.afterMutation()
	return nil
}

// TabUpdate carries page changes reported by the web view. Nil fields are
// left unchanged.
type TabUpdate struct {
	Title      *string
	URL        *string
	FaviconURL *string
	GroupData  *types.TabGroupData
	// ClearGroup removes the tab from its group; it wins over GroupData.
	ClearGroup bool
}

// UpdateTab applies page changes to a tab
func (m *Manager) UpdateTab(id uuid.UUID, upd TabUpdate) error {
	m.mu.Lock()
	if m.restoring {
		m.mu.Unlock()
		return ErrRestoreInProgress
	}
	tab, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return ErrTabNotFound
	}

	if upd.Title != nil {
		tab.Title = *upd.Title
	}
	if upd.URL != nil {
		tab.URL = *upd.URL
	}
	if upd.FaviconURL != nil {
		tab.FaviconURL = *upd.FaviconURL
	}
	if upd.ClearGroup {
		tab.GroupData = nil
	} else if upd.GroupData != nil {
		tab.GroupData = upd.GroupData.Clone()
	}
	ev := m.eventLocked(EventUpdated, tab)
	m.mu.Unlock()

	m.notify(ev)
	m.afterMutation()
	return nil
}

// Tabs returns copies of all tabs in order
func (m *Manager) Tabs() []*types.Tab {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tabs := make([]*types.Tab, len(m.tabs))
	for i, tab := range m.tabs {
		tabs[i] = tab.Clone()
	}
	return tabs
}

// Count returns the number of open tabs
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tabs)
}

// CountByPrivacy returns the number of private (or normal) tabs
func (m *Manager) CountByPrivacy(private bool) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int
	for _, tab := range m.tabs {
		if tab.IsPrivate == private {
			n++
		}
	}
	return n
}

// Get retrieves a tab by id
func (m *Manager) Get(id uuid.UUID) (*types.Tab, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tab, ok := m.index[id]
	if !ok {
		return nil, false
	}
	return tab.Clone(), true
}

// SelectedTab returns the active tab, if any
func (m *Manager) SelectedTab() (*types.Tab, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.selectedID == nil {
		return nil, false
	}
	tab, ok := m.index[*m.selectedID]
	if !ok {
		return nil, false
	}
	return tab.Clone(), true
}

// WindowID returns the id this registry saves under
func (m *Manager) WindowID() uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.windowID
}

// Restoring reports whether a restore is in flight
func (m *Manager) Restoring() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restoring
}

// Stats returns registry statistics
func (m *Manager) Stats() types.TabStats {
	m.mu.RLock()
	stats := types.TabStats{
		WindowID:  m.windowID,
		TotalTabs: len(m.tabs),
	}
	for _, tab := range m.tabs {
		if tab.IsPrivate {
			stats.PrivateTabs++
		}
	}
	if m.selectedID != nil {
		id := *m.selectedID
		stats.SelectedTabID = &id
	}
	m.mu.RUnlock()

	stats.NormalTabs = stats.TotalTabs - stats.PrivateTabs
	stats.SavesCompleted = m.savesCompleted.Load()
	stats.SaveFailures = m.saveFailures.Load()
	stats.RestoresCompleted = m.restoresCompleted.Load()

	// Read timestamp pointers under lock to prevent data races
	m.statsMu.Lock()
	stats.LastSaved = m.lastSaved
	stats.LastRestored = m.lastRestored
	m.statsMu.Unlock()

	return stats
}

// Snapshot captures the current live state as a WindowSnapshot
func (m *Manager) Snapshot() types.WindowSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := types.WindowSnapshot{
		Version:   types.SnapshotVersion,
		ID:        m.windowID,
		IsPrimary: m.isPrimary,
		Tabs:      make([]types.TabData, len(m.tabs)),
	}
	for i, tab := range m.tabs {
		snap.Tabs[i] = tab.ToData()
	}
	if m.selectedID != nil {
		id := *m.selectedID
		snap.ActiveTabID = &id
	}
	return snap
}

// PreserveTabs schedules a save of the current state. Calls made before the
// pending write starts share its Task; calls made during a write get one
// follow-up write of the latest state.
func (m *Manager) PreserveTabs() *Task {
	return m.saver.request()
}

// RestoreTabs replaces the tab list with the persisted one. Without forced
// it does nothing when tabs are already open. Calls made while a restore is
// running share its Task. Mutations fail with ErrRestoreInProgress until the
// restore completes.
func (m *Manager) RestoreTabs(ctx context.Context, forced bool) *Task {
	m.mu.Lock()
	if m.restoring {
		task := m.restoreTask
		m.mu.Unlock()
		return task
	}
	if len(m.tabs) > 0 && !forced {
		m.mu.Unlock()
		m.logger.Debug("Skipping restore, tabs already open")
		return completedTask(nil)
	}
	m.restoring = true
	task := newTask()
	m.restoreTask = task
	m.mu.Unlock()

	go func() {
		task.complete(m.restore(ctx))
	}()
	return task
}

// Close writes any pending save and stops accepting new ones
func (m *Manager) Close(ctx context.Context) error {
	return m.saver.flush(ctx)
}

func (m *Manager) save(ctx context.Context) error {
	snap := m.Snapshot()
	start := time.Now()
	err := m.store.SaveWindowData(ctx, snap)
	elapsed := time.Since(start)

	if err != nil {
		m.saveFailures.Add(1)
		m.logger.Error("Failed to save window snapshot",
			zap.Stringer("window_id", snap.ID),
			zap.Int("tabs", len(snap.Tabs)),
			zap.Error(err),
		)
	} else {
		m.savesCompleted.Add(1)
		now := m.now()
		m.statsMu.Lock()
		m.lastSaved = &now
		m.statsMu.Unlock()
		m.logger.Debug("Saved window snapshot",
			zap.Stringer("window_id", snap.ID),
			zap.Int("tabs", len(snap.Tabs)),
			zap.Duration("elapsed", elapsed),
		)
	}

	var private int
	for i := range snap.Tabs {
		if snap.Tabs[i].IsPrivate {
			private++
		}
	}
	m.notify(Event{
		Type:         EventSaved,
		WindowID:     snap.ID,
		TabCount:     len(snap.Tabs),
		PrivateCount: private,
		Duration:     elapsed,
		Err:          err,
	})

	if err != nil {
		return fmt.Errorf("preserve tabs: %w", err)
	}
	return nil
}

func (m *Manager) restore(ctx context.Context) error {
	start := time.Now()
	windows, err := m.store.FetchAllWindowsData(ctx)
	if err != nil {
		m.mu.Lock()
		m.restoring = false
		m.restoreTask = nil
		m.mu.Unlock()
		m.logger.Error("Failed to fetch window snapshots", zap.Error(err))
		return fmt.Errorf("restore tabs: %w", err)
	}

	m.mu.Lock()
	snap := m.pickWindowLocked(windows)
	var warnings []error
	if snap != nil {
		if snap.ID != m.windowID {
			m.logger.Info("Adopting persisted window id",
				zap.Stringer("previous", m.windowID),
				zap.Stringer("window_id", snap.ID),
			)
			m.windowID = snap.ID
		}
		warnings = m.rebuildLocked(snap)
	} else {
		m.tabs = nil
		m.index = make(map[uuid.UUID]*types.Tab)
		m.selectedID = nil
	}
	m.restoring = false
	m.restoreTask = nil
	ev := m.eventLocked(EventRestored, nil)
	m.mu.Unlock()

	ev.Duration = time.Since(start)
	ev.Warnings = warnings
	for _, w := range warnings {
		m.logger.Warn("Repaired persisted tab state", zap.Error(w))
	}

	m.restoresCompleted.Add(1)
	now := m.now()
	m.statsMu.Lock()
	m.lastRestored = &now
	m.statsMu.Unlock()

	m.logger.Info("Restored tabs",
		zap.Stringer("window_id", ev.WindowID),
		zap.Int("tabs", ev.TabCount),
		zap.Int("windows_found", len(windows)),
		zap.Duration("elapsed", ev.Duration),
	)
	m.notify(ev)
	return nil
}

// pickWindowLocked chooses the snapshot to restore: this window's own, else
// for a primary registry the primary (or first) persisted window.
func (m *Manager) pickWindowLocked(windows []types.WindowSnapshot) *types.WindowSnapshot {
	for i := range windows {
		if windows[i].ID == m.windowID {
			return &windows[i]
		}
	}
	if !m.isPrimary || len(windows) == 0 {
		return nil
	}
	for i := range windows {
		if windows[i].IsPrimary {
			return &windows[i]
		}
	}
	return &windows[0]
}

// rebuildLocked replaces the live list with snap's tabs and returns the
// invariant violations it repaired.
func (m *Manager) rebuildLocked(snap *types.WindowSnapshot) []error {
	var warnings []error
	tabs := make([]*types.Tab, 0, len(snap.Tabs))
	index := make(map[uuid.UUID]*types.Tab, len(snap.Tabs))

	for _, data := range snap.Tabs {
		if data.ID == uuid.Nil {
			warnings = append(warnings, &InvariantViolation{WindowID: snap.ID, Detail: "tab without id dropped"})
			continue
		}
		if _, dup := index[data.ID]; dup {
			warnings = append(warnings, &InvariantViolation{WindowID: snap.ID, TabID: data.ID, Detail: "duplicate tab id dropped"})
			continue
		}
		tab := data.ToTab()
		tabs = append(tabs, tab)
		index[tab.ID] = tab
	}

	m.tabs = tabs
	m.index = index
	m.selectedID = nil

	var active *types.Tab
	if snap.ActiveTabID != nil {
		if tab, ok := index[*snap.ActiveTabID]; ok {
			active = tab
		} else {
			warnings = append(warnings, &InvariantViolation{
				WindowID: snap.ID,
				TabID:    *snap.ActiveTabID,
				Detail:   "active tab missing from snapshot, selecting most recently used",
			})
		}
	}
	if active == nil {
		active = m.mostRecentLocked(func(*types.Tab) bool { return true })
	}
	if active != nil {
		m.activateLocked(active)
	}
	return warnings
}

// activateLocked makes tab the active tab and returns the previous active id.
func (m *Manager) activateLocked(tab *types.Tab) *uuid.UUID {
	var previous *uuid.UUID
	if m.selectedID != nil {
		prevID := *m.selectedID
		previous = &prevID
		if current, ok := m.index[prevID]; ok && current.State == types.TabActive {
			current.State = types.TabInactive
		}
	}
	tab.State = types.TabActive
	id := tab.ID
	m.selectedID = &id
	return previous
}

// mostRecentLocked returns the matching tab with the latest LastUsed; ties go
// to the earlier tab in the list.
func (m *Manager) mostRecentLocked(match func(*types.Tab) bool) *types.Tab {
	var best *types.Tab
	for _, tab := range m.tabs {
		if !match(tab) {
			continue
		}
		if best == nil || tab.LastUsed.After(best.LastUsed) {
			best = tab
		}
	}
	return best
}

func (m *Manager) positionLocked(id uuid.UUID) int {
	for i, tab := range m.tabs {
		if tab.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) eventLocked(typ EventType, tab *types.Tab) Event {
	ev := Event{
		Type:     typ,
		WindowID: m.windowID,
		TabCount: len(m.tabs),
	}
	for _, t := range m.tabs {
		if t.IsPrivate {
			ev.PrivateCount++
		}
	}
	if tab != nil {
		ev.Tab = tab.Clone()
	}
	return ev
}

func (m *Manager) notify(ev Event) {
	m.observersMu.RLock()
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.observersMu.RUnlock()

	for _, o := range observers {
		o.TabsChanged(ev)
	}
}

func (m *Manager) afterMutation() {
	if m.autoPreserve {
		m.PreserveTabs()
	}
}
