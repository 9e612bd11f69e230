// Package testutil provides testing utilities and helpers for tabkeeper tests.
package testutil

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/session"
	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// MemoryStore is an in-memory session.Store that counts calls.
type MemoryStore struct {
	mu       sync.Mutex
	windows  map[uuid.UUID]types.WindowSnapshot
	images   map[uuid.UUID]image.Image
	saveErr  error
	fetchErr error
	// fetchGate, when set, blocks FetchAllWindowsData until closed.
	fetchGate chan struct{}

	FetchAllWindowsDataCount int
	SaveWindowDataCount      int
	Saved                    []types.WindowSnapshot
}

var _ session.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store, optionally seeded with windows.
func NewMemoryStore(windows ...types.WindowSnapshot) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[uuid.UUID]types.WindowSnapshot),
		images:  make(map[uuid.UUID]image.Image),
	}
	for _, w := range windows {
		s.windows[w.ID] = w
	}
	return s
}

// SetWindows replaces the persisted windows.
func (s *MemoryStore) SetWindows(windows ...types.WindowSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[uuid.UUID]types.WindowSnapshot)
	for _, w := range windows {
		s.windows[w.ID] = w
	}
}

// FailSaves makes subsequent saves return err (nil clears it).
func (s *MemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// FailFetches makes subsequent fetches return err (nil clears it).
func (s *MemoryStore) FailFetches(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

// HoldFetches blocks fetches until the returned release func is called.
func (s *MemoryStore) HoldFetches() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.fetchGate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Counts returns the fetch-all and save call counts.
func (s *MemoryStore) Counts() (fetches, saves int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FetchAllWindowsDataCount, s.SaveWindowDataCount
}

// LastSaved returns the most recent snapshot passed to SaveWindowData.
func (s *MemoryStore) LastSaved() (types.WindowSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Saved) == 0 {
		return types.WindowSnapshot{}, false
	}
	return s.Saved[len(s.Saved)-1], true
}

func (s *MemoryStore) FetchAllWindowsData(ctx context.Context) ([]types.WindowSnapshot, error) {
	s.mu.Lock()
	s.FetchAllWindowsDataCount++
	gate := s.fetchGate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	windows := make([]types.WindowSnapshot, 0, len(s.windows))
	for _, w := range s.windows {
		windows = append(windows, w)
	}
	return windows, nil
}

func (s *MemoryStore) FetchWindowData(ctx context.Context, windowID uuid.UUID) (*types.WindowSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[windowID]
	if !ok {
		return nil, session.ErrWindowNotFound
	}
	return &w, nil
}

func (s *MemoryStore) SaveWindowData(ctx context.Context, window types.WindowSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveWindowDataCount++
	if s.saveErr != nil {
		return &session.StorageError{Op: "save", Kind: session.WriteError, WindowID: window.ID, Err: s.saveErr}
	}
	s.Saved = append(s.Saved, window)
	s.windows[window.ID] = window
	return nil
}

func (s *MemoryStore) RemoveWindowData(ctx context.Context, windowID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, windowID)
	return nil
}

func (s *MemoryStore) ClearAllTabData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[uuid.UUID]types.WindowSnapshot)
	s.images = make(map[uuid.UUID]image.Image)
	return nil
}

func (s *MemoryStore) SaveImage(ctx context.Context, tabID uuid.UUID, img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[tabID] = img
	return nil
}

func (s *MemoryStore) FetchImage(ctx context.Context, tabID uuid.UUID) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[tabID]
	if !ok {
		return nil, session.ErrImageNotFound
	}
	return img, nil
}

func (s *MemoryStore) RemoveImage(ctx context.Context, tabID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.images, tabID)
	return nil
}

func (s *MemoryStore) PruneOrphanedImages(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := make(map[uuid.UUID]bool)
	for _, w := range s.windows {
		for _, t := range w.Tabs {
			live[t.ID] = true
		}
	}
	var removed int
	for id := range s.images {
		if !live[id] {
			delete(s.images, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }

// MockStore is a testify mock of session.Store.
type MockStore struct {
	mock.Mock
}

var _ session.Store = (*MockStore)(nil)

func (m *MockStore) FetchAllWindowsData(ctx context.Context) ([]types.WindowSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.WindowSnapshot), args.Error(1)
}

func (m *MockStore) FetchWindowData(ctx context.Context, windowID uuid.UUID) (*types.WindowSnapshot, error) {
	args := m.Called(ctx, windowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.WindowSnapshot), args.Error(1)
}

func (m *MockStore) SaveWindowData(ctx context.Context, window types.WindowSnapshot) error {
	return m.Called(ctx, window).Error(0)
}

func (m *MockStore) RemoveWindowData(ctx context.Context, windowID uuid.UUID) error {
	return m.Called(ctx, windowID).Error(0)
}

func (m *MockStore) ClearAllTabData(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) SaveImage(ctx context.Context, tabID uuid.UUID, img image.Image) error {
	return m.Called(ctx, tabID, img).Error(0)
}

func (m *MockStore) FetchImage(ctx context.Context, tabID uuid.UUID) (image.Image, error) {
	args := m.Called(ctx, tabID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(image.Image), args.Error(1)
}

func (m *MockStore) RemoveImage(ctx context.Context, tabID uuid.UUID) error {
	return m.Called(ctx, tabID).Error(0)
}

func (m *MockStore) PruneOrphanedImages(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

// NewMockStore creates a mock store whose fetches return nothing and whose
// saves succeed unless the test overrides them.
func NewMockStore(t *testing.T) *MockStore {
	t.Helper()
	m := new(MockStore)
	m.On("FetchAllWindowsData", mock.Anything).Return([]types.WindowSnapshot{}, nil).Maybe()
	m.On("SaveWindowData", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Close").Return(nil).Maybe()
	return m
}

// TabData builds n persisted tabs with distinct ids and increasing LastUsed.
func TabData(n int) []types.TabData {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tabs := make([]types.TabData, n)
	for i := range tabs {
		tabs[i] = types.TabData{
			ID:         uuid.New(),
			Title:      fmt.Sprintf("Firefox %d", i),
			URL:        fmt.Sprintf("https://www.firefox.com/%d", i),
			FaviconURL: "",
			LastUsed:   base.Add(time.Duration(i) * time.Minute),
			CreatedAt:  base,
			GroupData:  &types.TabGroupData{},
		}
	}
	return tabs
}

// Window builds a primary window snapshot holding tabs.
func Window(tabs []types.TabData) types.WindowSnapshot {
	activeID := uuid.New()
	return types.WindowSnapshot{
		Version:     types.SnapshotVersion,
		ID:          uuid.New(),
		IsPrimary:   true,
		ActiveTabID: &activeID,
		SavedAt:     time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
		Tabs:        tabs,
	}
}

// Thumbnail returns a small solid-color image.
func Thumbnail(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
