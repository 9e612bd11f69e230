package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// Store is the durable persistence boundary for window snapshots and tab
// thumbnails. The tab registry only talks to storage through this interface.
type Store interface {
	FetchAllWindowsData(ctx context.Context) ([]types.WindowSnapshot, error)
	FetchWindowData(ctx context.Context, windowID uuid.UUID) (*types.WindowSnapshot, error)
	SaveWindowData(ctx context.Context, window types.WindowSnapshot) error
	RemoveWindowData(ctx context.Context, windowID uuid.UUID) error
	ClearAllTabData(ctx context.Context) error

	SaveImage(ctx context.Context, tabID uuid.UUID, img image.Image) error
	FetchImage(ctx context.Context, tabID uuid.UUID) (image.Image, error)
	RemoveImage(ctx context.Context, tabID uuid.UUID) error
	PruneOrphanedImages(ctx context.Context) (int, error)

	Close() error
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Options configures a store backend
type Options struct {
	Logger           *zap.Logger
	Compression      Compression
	FetchConcurrency int
	Now              func() time.Time
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Compression == "" {
		o.Compression = CompressionNone
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = 4
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
}

// Open creates the store backend named by backend rooted at path. For the
// file backend path is a directory; for sqlite it is the database file.
func Open(backend, path string, opts Options) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(path, opts)
	case BackendSQLite:
		return OpenSQLiteStore(path, opts)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// stampForSave fills in the fields a writer owns.
func stampForSave(w *types.WindowSnapshot, now func() time.Time) {
	w.Version = types.SnapshotVersion
	if w.SavedAt.IsZero() {
		w.SavedAt = now()
	}
	if w.Tabs == nil {
		w.Tabs = []types.TabData{}
	}
}

func encodeImage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}
	return img, nil
}
