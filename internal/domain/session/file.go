package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

const (
	windowsDir    = "windows"
	thumbnailsDir = "thumbnails"
	thumbnailExt  = ".png"
	tempPrefix    = "."
)

// FileStore keeps one snapshot file per window and one PNG per tab under a
// root directory:
//
//	<root>/windows/<window-id>.json[.gz|.zst]
//	<root>/thumbnails/<tab-id>.png
//
// Every write goes to a temp file in the target directory and is renamed into
// place, so readers never observe a partial snapshot.
type FileStore struct {
	root   string
	codec  *Codec
	opts   Options
	logger *zap.Logger

	// Serializes writers; primary demotion rewrites several files.
	mu sync.Mutex
}

// NewFileStore creates a file-backed store rooted at dir
func NewFileStore(dir string, opts Options) (*FileStore, error) {
	opts.defaults()

	for _, sub := range []string{windowsDir, thumbnailsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	codec, err := NewCodec(opts.Compression)
	if err != nil {
		return nil, err
	}

	return &FileStore{
		root:   dir,
		codec:  codec,
		opts:   opts,
		logger: opts.Logger.Named("filestore"),
	}, nil
}

// Root returns the store's root directory
func (s *FileStore) Root() string {
	return s.root
}

// FetchAllWindowsData reads every snapshot. Unreadable snapshots are logged
// and skipped. A store with no snapshots yields an empty slice.
func (s *FileStore) FetchAllWindowsData(ctx context.Context) ([]types.WindowSnapshot, error) {
	files, err := s.windowFiles()
	if err != nil {
		return nil, readErr("fetch_all", uuid.Nil, err)
	}

	ids := make([]uuid.UUID, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}

	results := make([]*types.WindowSnapshot, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w, err := s.readSnapshot(id, files[id])
			if err != nil {
				s.logger.Warn("Skipping unreadable window snapshot",
					zap.Stringer("window_id", id),
					zap.String("path", files[id]),
					zap.Error(err),
				)
				return nil
			}
			results[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, readErr("fetch_all", uuid.Nil, err)
	}

	windows := make([]types.WindowSnapshot, 0, len(results))
	for _, w := range results {
		if w != nil {
			windows = append(windows, *w)
		}
	}
	sortWindows(windows)
	return windows, nil
}

// FetchWindowData reads the snapshot for one window
func (s *FileStore) FetchWindowData(ctx context.Context, windowID uuid.UUID) (*types.WindowSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := s.windowFiles()
	if err != nil {
		return nil, readErr("fetch", windowID, err)
	}
	path, ok := files[windowID]
	if !ok {
		return nil, readErr("fetch", windowID, ErrWindowNotFound)
	}

	w, err := s.readSnapshot(windowID, path)
	if err != nil {
		return nil, readErr("fetch", windowID, err)
	}
	return w, nil
}

// SaveWindowData atomically replaces the snapshot for window.ID. Saving a
// primary window demotes any other primary snapshot.
func (s *FileStore) SaveWindowData(ctx context.Context, window types.WindowSnapshot) error {
	if err := ctx.Err(); err != nil {
		return writeErr("save", window.ID, err)
	}
	if window.ID == uuid.Nil {
		return writeErr("save", window.ID, errors.New("window id is required"))
	}
	stampForSave(&window, s.opts.Now)

	data, err := s.codec.Encode(&window)
	if err != nil {
		return writeErr("save", window.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, windowsDir)
	name := window.ID.String() + s.codec.Ext()
	if err := writeAtomic(dir, name, data); err != nil {
		return writeErr("save", window.ID, err)
	}
	s.removeStaleVariants(window.ID, name)

	if window.IsPrimary {
		if err := s.demotePrimaries(window.ID); err != nil {
			return writeErr("demote_primary", window.ID, err)
		}
	}

	s.logger.Debug("Saved window snapshot",
		zap.Stringer("window_id", window.ID),
		zap.Int("tabs", len(window.Tabs)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// RemoveWindowData deletes a window's snapshot. Missing windows are ignored.
func (s *FileStore) RemoveWindowData(ctx context.Context, windowID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return writeErr("remove", windowID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := s.windowVariants(windowID)
	if err != nil {
		return writeErr("remove", windowID, err)
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return writeErr("remove", windowID, err)
		}
	}
	return nil
}

// ClearAllTabData removes every snapshot and thumbnail
func (s *FileStore) ClearAllTabData(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return writeErr("clear", uuid.Nil, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range []string{windowsDir, thumbnailsDir} {
		dir := filepath.Join(s.root, sub)
		if err := os.RemoveAll(dir); err != nil {
			return writeErr("clear", uuid.Nil, err)
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return writeErr("clear", uuid.Nil, err)
		}
	}

	s.logger.Info("Cleared all tab data", zap.String("root", s.root))
	return nil
}

// SaveImage stores a PNG thumbnail for a tab
func (s *FileStore) SaveImage(ctx context.Context, tabID uuid.UUID, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return writeErr("save_image", uuid.Nil, err)
	}
	data, err := encodeImage(img)
	if err != nil {
		return writeErr("save_image", uuid.Nil, err)
	}
	dir := filepath.Join(s.root, thumbnailsDir)
	if err := writeAtomic(dir, tabID.String()+thumbnailExt, data); err != nil {
		return writeErr("save_image", uuid.Nil, err)
	}
	return nil
}

// FetchImage loads a tab's thumbnail. Returns ErrImageNotFound when none exists.
func (s *FileStore) FetchImage(ctx context.Context, tabID uuid.UUID) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.imagePath(tabID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, readErr("fetch_image", uuid.Nil, err)
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, readErr("fetch_image", uuid.Nil, err)
	}
	return img, nil
}

// RemoveImage deletes a tab's thumbnail. Missing thumbnails are ignored.
func (s *FileStore) RemoveImage(ctx context.Context, tabID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return writeErr("remove_image", uuid.Nil, err)
	}
	if err := os.Remove(s.imagePath(tabID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return writeErr("remove_image", uuid.Nil, err)
	}
	return nil
}

// PruneOrphanedImages deletes thumbnails whose tab is in no snapshot. An
// unreadable snapshot aborts the prune, since its tabs cannot be known.
func (s *FileStore) PruneOrphanedImages(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.windowFiles()
	if err != nil {
		return 0, readErr("prune_images", uuid.Nil, err)
	}
	windows := make([]types.WindowSnapshot, 0, len(files))
	for id, path := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		w, err := s.readSnapshot(id, path)
		if err != nil {
			return 0, readErr("prune_images", id, err)
		}
		windows = append(windows, *w)
	}
	live := liveTabIDs(windows)

	entries, err := os.ReadDir(filepath.Join(s.root, thumbnailsDir))
	if err != nil {
		return 0, readErr("prune_images", uuid.Nil, err)
	}

	var removed int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, thumbnailExt) {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, thumbnailExt))
		if err != nil {
			continue
		}
		if _, ok := live[id]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, thumbnailsDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, writeErr("prune_images", uuid.Nil, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Pruned orphaned thumbnails", zap.Int("removed", removed))
	}
	return removed, nil
}

// Close releases codec resources
func (s *FileStore) Close() error {
	s.codec.Close()
	return nil
}

func (s *FileStore) imagePath(tabID uuid.UUID) string {
	return filepath.Join(s.root, thumbnailsDir, tabID.String()+thumbnailExt)
}

func (s *FileStore) readSnapshot(id uuid.UUID, path string) (*types.WindowSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	w, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	if w.ID != id {
		return nil, fmt.Errorf("%w: file for %s holds window %s", ErrCorruptSnapshot, id, w.ID)
	}
	return w, nil
}

// windowFiles maps each window id to its newest snapshot file.
func (s *FileStore) windowFiles() (map[uuid.UUID]string, error) {
	dir := filepath.Join(s.root, windowsDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return map[uuid.UUID]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := make(map[uuid.UUID]string, len(entries))
	modTimes := make(map[uuid.UUID]int64, len(entries))
	for _, entry := range entries {
		id, ok := parseWindowFile(entry)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime().UnixNano()
		if prev, seen := modTimes[id]; seen && prev >= mod {
			continue
		}
		files[id] = filepath.Join(dir, entry.Name())
		modTimes[id] = mod
	}
	return files, nil
}

func (s *FileStore) windowVariants(windowID uuid.UUID) ([]string, error) {
	dir := filepath.Join(s.root, windowsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if id, ok := parseWindowFile(entry); ok && id == windowID {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

// removeStaleVariants drops snapshot files for windowID written under a
// different compression mode. Must hold s.mu.
func (s *FileStore) removeStaleVariants(windowID uuid.UUID, keep string) {
	paths, err := s.windowVariants(windowID)
	if err != nil {
		return
	}
	for _, path := range paths {
		if filepath.Base(path) == keep {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to remove stale snapshot", zap.String("path", path), zap.Error(err))
		}
	}
}

// demotePrimaries clears IsPrimary on every snapshot except keep. Must hold s.mu.
func (s *FileStore) demotePrimaries(keep uuid.UUID) error {
	files, err := s.windowFiles()
	if err != nil {
		return err
	}
	for id, path := range files {
		if id == keep {
			continue
		}
		w, err := s.readSnapshot(id, path)
		if err != nil || !w.IsPrimary {
			continue
		}
		w.IsPrimary = false
		data, err := s.codec.Encode(w)
		if err != nil {
			return err
		}
		name := id.String() + s.codec.Ext()
		if err := writeAtomic(filepath.Join(s.root, windowsDir), name, data); err != nil {
			return err
		}
		s.removeStaleVariants(id, name)
		s.logger.Debug("Demoted primary window", zap.Stringer("window_id", id))
	}
	return nil
}

func parseWindowFile(entry fs.DirEntry) (uuid.UUID, bool) {
	name := entry.Name()
	if entry.IsDir() || strings.HasPrefix(name, tempPrefix) {
		return uuid.Nil, false
	}
	base, _, found := strings.Cut(name, ".")
	if !found {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(base)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// writeAtomic writes data to dir/name via a synced temp file and rename.
func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tempPrefix+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func liveTabIDs(windows []types.WindowSnapshot) map[uuid.UUID]struct{} {
	live := make(map[uuid.UUID]struct{})
	for i := range windows {
		for j := range windows[i].Tabs {
			live[windows[i].Tabs[j].ID] = struct{}{}
		}
	}
	return live
}

// sortWindows orders the primary window first, then newest saves.
func sortWindows(windows []types.WindowSnapshot) {
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].IsPrimary != windows[j].IsPrimary {
			return windows[i].IsPrimary
		}
		if !windows[i].SavedAt.Equal(windows[j].SavedAt) {
			return windows[i].SavedAt.After(windows[j].SavedAt)
		}
		return windows[i].ID.String() < windows[j].ID.String()
	})
}
