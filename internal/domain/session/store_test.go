package session_test

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/session"
	"github.com/GriffinCanCode/tabkeeper/internal/testutil"
)

type backend struct {
	name string
	open func(t *testing.T, opts session.Options) session.Store
}

var backends = []backend{
	{
		name: "file",
		open: func(t *testing.T, opts session.Options) session.Store {
			s, err := session.NewFileStore(t.TempDir(), opts)
			require.NoError(t, err)
			return s
		},
	},
	{
		name: "file-zstd",
		open: func(t *testing.T, opts session.Options) session.Store {
			opts.Compression = session.CompressionZstd
			s, err := session.NewFileStore(t.TempDir(), opts)
			require.NoError(t, err)
			return s
		},
	},
	{
		name: "sqlite",
		open: func(t *testing.T, opts session.Options) session.Store {
			s, err := session.OpenSQLiteStore(filepath.Join(t.TempDir(), "tabs.db"), opts)
			require.NoError(t, err)
			return s
		},
	},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store session.Store)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, session.Options{})
			t.Cleanup(func() { store.Close() })
			fn(t, store)
		})
	}
}

func TestStoreFetchEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		windows, err := store.FetchAllWindowsData(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, windows)
		assert.Empty(t, windows)
	})
}

func TestStoreSaveAndFetch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		ctx := context.Background()
		tabs := testutil.TabData(3)
		parent := tabs[0].ID
		tabs[2].ParentID = &parent
		tabs[2].IsPrivate = true
		tabs[1].GroupData = nil
		window := testutil.Window(tabs)
		window.ActiveTabID = &tabs[1].ID

		require.NoError(t, store.SaveWindowData(ctx, window))

		windows, err := store.FetchAllWindowsData(ctx)
		require.NoError(t, err)
		require.Len(t, windows, 1)
		assert.Equal(t, window, windows[0])

		one, err := store.FetchWindowData(ctx, window.ID)
		require.NoError(t, err)
		assert.Equal(t, window, *one)
	})
}

func TestStoreSaveEmptyWindow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		ctx := context.Background()
		window := testutil.Window(nil)
		window.ActiveTabID = nil

		require.NoError(t, store.SaveWindowData(ctx, window))

		got, err := store.FetchWindowData(ctx, window.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.Tabs)
		assert.Empty(t, got.Tabs)
	})
}

func TestStoreSaveReplacesWindow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		ctx := context.Background()
		window := testutil.Window(testutil.TabData(5))
		require.NoError(t, store.SaveWindowData(ctx, window))

		window.Tabs = window.Tabs[:2]
		require.NoError(t, store.SaveWindowData(ctx, window))

		windows, err := store.FetchAllWindowsData(ctx)
		require.NoError(t, err)
		require.Len(t, windows, 1)
		assert.Len(t, windows[0].Tabs, 2)
	})
}

func TestStoreStampsSavedAt(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, session.Options{Now: func() time.Time { return at }})
			defer store.Close()

			window := testutil.Window(testutil.TabData(1))
			window.SavedAt = time.Time{}
			window.Version = 0
			require.NoError(t, store.SaveWindowData(context.Background(), window))

			got, err := store.FetchWindowData(context.Background(), window.ID)
			require.NoError(t, err)
			assert.Equal(t, at, got.SavedAt)
			assert.Equal(t, 1, got.Version)
		})
	}
}

func TestStoreRejectsNilWindowID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		window := testutil.Window(nil)
		window.ID = uuid.Nil

		err := store.SaveWindowData(context.Background(), window)
		require.Error(t, err)
		assert.True(t, session.IsWriteError(err))
	})
}

func TestStoreFetchUnknownWindow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		_, err := store.FetchWindowData(context.Background(), uuid.New())
		assert.ErrorIs(t, err, session.ErrWindowNotFound)
	})
}

func TestStorePrimaryDemotion(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		ctx := context.Background()
		first := testutil.Window(testutil.TabData(1))
		second := testutil.Window(testutil.TabData(2))
		second.SavedAt = first.SavedAt.Add(time.Minute)

		require.NoError(t, store.SaveWindowData(ctx, first))
		require.NoError(t, store.SaveWindowData(ctx, second))

		windows, err := store.FetchAllWindowsData(ctx)
		require.NoError(t, err)
		require.Len(t, windows, 2)

		assert.Equal(t, second.ID, windows[0].ID, "primary window sorts first")
		assert.True(t, windows[0].IsPrimary)
		assert.False(t, windows[1].IsPrimary)
		assert.Len(t, windows[1].Tabs, 1)
	})
}

func TestStoreRemoveWindow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		ctx := context.Background()
		keep := testutil.Window(testutil.TabData(1))
		keep.IsPrimary = false
		drop := testutil.Window(testutil.TabData(1))
		require.NoError(t, store.SaveWindowData(ctx, keep))
		require.NoError(t, store.SaveWindowData(ctx, drop))

		require.NoError(t, store.RemoveWindowData(ctx, drop.ID))
		require.NoError(t, store.RemoveWindowData(ctx, uuid.New()))

		windows, err := store.FetchAllWindowsData(ctx)
		require.NoError(t, err)
		require.Len(t, windows, 1)
		assert.Equal(t, keep.ID, windows[0].ID)
	})
}

func TestStoreClearAllTabData(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		ctx := context.Background()
		window := testutil.Window(testutil.TabData(2))
		require.NoError(t, store.SaveWindowData(ctx, window))
		require.NoError(t, store.SaveImage(ctx, window.Tabs[0].ID, testutil.Thumbnail(color.White)))

		require.NoError(t, store.ClearAllTabData(ctx))
		require.NoError(t, store.ClearAllTabData(ctx))

		windows, err := store.FetchAllWindowsData(ctx)
		require.NoError(t, err)
		assert.Empty(t, windows)
		_, err = store.FetchImage(ctx, window.Tabs[0].ID)
		assert.ErrorIs(t, err, session.ErrImageNotFound)
	})
}

func TestStoreImages(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		ctx := context.Background()
		tabID := uuid.New()
		red := color.RGBA{R: 255, A: 255}

		_, err := store.FetchImage(ctx, tabID)
		assert.ErrorIs(t, err, session.ErrImageNotFound)

		require.NoError(t, store.SaveImage(ctx, tabID, testutil.Thumbnail(color.White)))
		require.NoError(t, store.SaveImage(ctx, tabID, testutil.Thumbnail(red)))

		img, err := store.FetchImage(ctx, tabID)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
		assert.Equal(t, red, color.RGBAModel.Convert(img.At(3, 3)))

		require.NoError(t, store.RemoveImage(ctx, tabID))
		require.NoError(t, store.RemoveImage(ctx, tabID))
		_, err = store.FetchImage(ctx, tabID)
		assert.ErrorIs(t, err, session.ErrImageNotFound)
	})
}

func TestStorePruneOrphanedImages(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store session.Store) {
		ctx := context.Background()
		window := testutil.Window(testutil.TabData(2))
		require.NoError(t, store.SaveWindowData(ctx, window))

		orphan := uuid.New()
		for _, id := range []uuid.UUID{window.Tabs[0].ID, window.Tabs[1].ID, orphan} {
			require.NoError(t, store.SaveImage(ctx, id, testutil.Thumbnail(color.Black)))
		}

		removed, err := store.PruneOrphanedImages(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, err = store.FetchImage(ctx, orphan)
		assert.ErrorIs(t, err, session.ErrImageNotFound)
		_, err = store.FetchImage(ctx, window.Tabs[0].ID)
		assert.NoError(t, err)
	})
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := session.Open("redis", t.TempDir(), session.Options{})
	assert.Error(t, err)
}
