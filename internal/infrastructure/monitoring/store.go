package monitoring

import (
	"context"
	"image"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/session"
	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// InstrumentedStore wraps a session.Store and times every operation
type InstrumentedStore struct {
	session.Store
	metrics *Metrics
}

var _ session.Store = (*InstrumentedStore)(nil)

// InstrumentStore wraps store so each call is recorded in metrics
func InstrumentStore(store session.Store, metrics *Metrics) *InstrumentedStore {
	return &InstrumentedStore{Store: store, metrics: metrics}
}

func (s *InstrumentedStore) FetchAllWindowsData(ctx context.Context) ([]types.WindowSnapshot, error) {
	timer := NewTimer(s.metrics, "fetch_all")
	windows, err := s.Store.FetchAllWindowsData(ctx)
	timer.Stop(err)
	return windows, err
}

func (s *InstrumentedStore) FetchWindowData(ctx context.Context, windowID uuid.UUID) (*types.WindowSnapshot, error) {
	timer := NewTimer(s.metrics, "fetch")
	w, err := s.Store.FetchWindowData(ctx, windowID)
	timer.Stop(err)
	return w, err
}

func (s *InstrumentedStore) SaveWindowData(ctx context.Context, window types.WindowSnapshot) error {
	timer := NewTimer(s.metrics, "save")
	err := s.Store.SaveWindowData(ctx, window)
	timer.Stop(err)
	return err
}

func (s *InstrumentedStore) RemoveWindowData(ctx context.Context, windowID uuid.UUID) error {
	timer := NewTimer(s.metrics, "remove")
	err := s.Store.RemoveWindowData(ctx, windowID)
	timer.Stop(err)
	return err
}

func (s *InstrumentedStore) ClearAllTabData(ctx context.Context) error {
	timer := NewTimer(s.metrics, "clear")
	err := s.Store.ClearAllTabData(ctx)
	timer.Stop(err)
	return err
}

func (s *InstrumentedStore) SaveImage(ctx context.Context, tabID uuid.UUID, img image.Image) error {
	timer := NewTimer(s.metrics, "save_image")
	err := s.Store.SaveImage(ctx, tabID, img)
	timer.Stop(err)
	return err
}

func (s *InstrumentedStore) FetchImage(ctx context.Context, tabID uuid.UUID) (image.Image, error) {
	timer := NewTimer(s.metrics, "fetch_image")
	img, err := s.Store.FetchImage(ctx, tabID)
	timer.Stop(err)
	return img, err
}

func (s *InstrumentedStore) RemoveImage(ctx context.Context, tabID uuid.UUID) error {
	timer := NewTimer(s.metrics, "remove_image")
	err := s.Store.RemoveImage(ctx, tabID)
	timer.Stop(err)
	return err
}

func (s *InstrumentedStore) PruneOrphanedImages(ctx context.Context) (int, error) {
	timer := NewTimer(s.metrics, "prune_images")
	n, err := s.Store.PruneOrphanedImages(ctx)
	timer.Stop(err)
	return n, err
}
