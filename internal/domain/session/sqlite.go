package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

// SQLiteStore implements Store on a SQLite database. Each window is one row
// in windows plus its ordered rows in tabs; a save rewrites both inside one
// transaction.
type SQLiteStore struct {
	db     *sql.DB
	opts   Options
	logger *zap.Logger
}

// OpenSQLiteStore opens (creating if needed) the database at path, applies
// pragmas and migrations.
func OpenSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	store, err := NewSQLiteStore(db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an already-opened database and runs migrations
func NewSQLiteStore(db *sql.DB, opts Options) (*SQLiteStore, error) {
	opts.defaults()
	if err := NewMigrationRunner(db).Run(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{
		db:     db,
		opts:   opts,
		logger: opts.Logger.Named("sqlitestore"),
	}, nil
}

// FetchAllWindowsData reads every window. Windows whose rows cannot be
// decoded are logged and skipped.
func (s *SQLiteStore) FetchAllWindowsData(ctx context.Context) ([]types.WindowSnapshot, error) {
	windows, err := s.queryWindows(ctx, `SELECT id, version, is_primary, active_tab_id, saved_at FROM windows`)
	if err != nil {
		return nil, readErr("fetch_all", uuid.Nil, err)
	}

	result := make([]types.WindowSnapshot, 0, len(windows))
	for _, w := range windows {
		tabs, err := s.queryTabs(ctx, w.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, readErr("fetch_all", uuid.Nil, ctx.Err())
			}
			s.logger.Warn("Skipping unreadable window snapshot",
				zap.Stringer("window_id", w.ID),
				zap.Error(err),
			)
			continue
		}
		w.Tabs = tabs
		result = append(result, *w)
	}
	sortWindows(result)
	return result, nil
}

// FetchWindowData reads one window
func (s *SQLiteStore) FetchWindowData(ctx context.Context, windowID uuid.UUID) (*types.WindowSnapshot, error) {
	windows, err := s.queryWindows(ctx,
		`SELECT id, version, is_primary, active_tab_id, saved_at FROM windows WHERE id = ?`,
		windowID.String(),
	)
	if err != nil {
		return nil, readErr("fetch", windowID, err)
	}
	if len(windows) == 0 {
		return nil, readErr("fetch", windowID, ErrWindowNotFound)
	}

	w := windows[0]
	tabs, err := s.queryTabs(ctx, windowID)
	if err != nil {
		return nil, readErr("fetch", windowID, err)
	}
	w.Tabs = tabs
	return w, nil
}

// SaveWindowData replaces a window and its tabs in one transaction
func (s *SQLiteStore) SaveWindowData(ctx context.Context, window types.WindowSnapshot) error {
	if window.ID == uuid.Nil {
		return writeErr("save", window.ID, errors.New("window id is required"))
	}
	stampForSave(&window, s.opts.Now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr("save", window.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var activeTab sql.NullString
	if window.ActiveTabID != nil {
		activeTab = sql.NullString{String: window.ActiveTabID.String(), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO windows (id, version, is_primary, active_tab_id, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			is_primary = excluded.is_primary,
			active_tab_id = excluded.active_tab_id,
			saved_at = excluded.saved_at
	`, window.ID.String(), window.Version, window.IsPrimary, activeTab, toUnixNano(window.SavedAt)); err != nil {
		return writeErr("save", window.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tabs WHERE window_id = ?`, window.ID.String()); err != nil {
		return writeErr("save", window.ID, err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO tabs (window_id, position, id, title, site_url, favicon_url, is_private,
			last_used, created_at, parent_id, group_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return writeErr("save", window.ID, err)
	}
	defer insert.Close()

	for i, tab := range window.Tabs {
		var parent sql.NullString
		if tab.ParentID != nil {
			parent = sql.NullString{String: tab.ParentID.String(), Valid: true}
		}
		var group sql.NullString
		if tab.GroupData != nil {
			data, err := sonic.Marshal(tab.GroupData)
			if err != nil {
				return writeErr("save", window.ID, fmt.Errorf("marshal group data: %w", err))
			}
			group = sql.NullString{String: string(data), Valid: true}
		}

		if _, err := insert.ExecContext(ctx,
			window.ID.String(), i, tab.ID.String(), tab.Title, tab.URL, tab.FaviconURL, tab.IsPrivate,
			toUnixNano(tab.LastUsed), toUnixNano(tab.CreatedAt), parent, group,
		); err != nil {
			return writeErr("save", window.ID, fmt.Errorf("insert tab %s: %w", tab.ID, err))
		}
	}

	if window.IsPrimary {
		if _, err := tx.ExecContext(ctx,
			`UPDATE windows SET is_primary = 0 WHERE id <> ? AND is_primary = 1`, window.ID.String(),
		); err != nil {
			return writeErr("demote_primary", window.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return writeErr("save", window.ID, err)
	}

	s.logger.Debug("Saved window snapshot",
		zap.Stringer("window_id", window.ID),
		zap.Int("tabs", len(window.Tabs)),
	)
	return nil
}

// RemoveWindowData deletes a window and its tabs
func (s *SQLiteStore) RemoveWindowData(ctx context.Context, windowID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM windows WHERE id = ?`, windowID.String()); err != nil {
		return writeErr("remove", windowID, err)
	}
	return nil
}

// ClearAllTabData removes every window, tab and thumbnail
func (s *SQLiteStore) ClearAllTabData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr("clear", uuid.Nil, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{`DELETE FROM tabs`, `DELETE FROM windows`, `DELETE FROM thumbnails`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return writeErr("clear", uuid.Nil, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return writeErr("clear", uuid.Nil, err)
	}

	s.logger.Info("Cleared all tab data")
	return nil
}

// SaveImage stores a PNG thumbnail for a tab
func (s *SQLiteStore) SaveImage(ctx context.Context, tabID uuid.UUID, img image.Image) error {
	data, err := encodeImage(img)
	if err != nil {
		return writeErr("save_image", uuid.Nil, err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO thumbnails (tab_id, png, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET png = excluded.png, updated_at = excluded.updated_at
	`, tabID.String(), data, toUnixNano(s.opts.Now())); err != nil {
		return writeErr("save_image", uuid.Nil, err)
	}
	return nil
}

// FetchImage loads a tab's thumbnail. Returns ErrImageNotFound when none exists.
func (s *SQLiteStore) FetchImage(ctx context.Context, tabID uuid.UUID) (image.Image, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT png FROM thumbnails WHERE tab_id = ?`, tabID.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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

// RemoveImage deletes a tab's thumbnail
func (s *SQLiteStore) RemoveImage(ctx context.Context, tabID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM thumbnails WHERE tab_id = ?`, tabID.String()); err != nil {
		return writeErr("remove_image", uuid.Nil, err)
	}
	return nil
}

// PruneOrphanedImages deletes thumbnails whose tab is in no window
func (s *SQLiteStore) PruneOrphanedImages(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM thumbnails WHERE tab_id NOT IN (SELECT id FROM tabs)`)
	if err != nil {
		return 0, writeErr("prune_images", uuid.Nil, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, writeErr("prune_images", uuid.Nil, err)
	}
	if n > 0 {
		s.logger.Info("Pruned orphaned thumbnails", zap.Int64("removed", n))
	}
	return int(n), nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryWindows(ctx context.Context, query string, args ...any) ([]*types.WindowSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []*types.WindowSnapshot
	for rows.Next() {
		var (
			id        string
			version   int
			isPrimary bool
			activeTab sql.NullString
			savedAt   int64
		)
		if err := rows.Scan(&id, &version, &isPrimary, &activeTab, &savedAt); err != nil {
			return nil, err
		}

		windowID, err := uuid.Parse(id)
		if err != nil {
			s.logger.Warn("Skipping window with invalid id", zap.String("window_id", id), zap.Error(err))
			continue
		}
		w := &types.WindowSnapshot{
			Version:   version,
			ID:        windowID,
			IsPrimary: isPrimary,
			SavedAt:   fromUnixNano(savedAt),
		}
		if activeTab.Valid {
			if tabID, err := uuid.Parse(activeTab.String); err == nil {
				w.ActiveTabID = &tabID
			}
		}
		w.Normalize()
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (s *SQLiteStore) queryTabs(ctx context.Context, windowID uuid.UUID) ([]types.TabData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, site_url, favicon_url, is_private, last_used, created_at, parent_id, group_data
		FROM tabs WHERE window_id = ? ORDER BY position
	`, windowID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tabs := []types.TabData{}
	for rows.Next() {
		var (
			id        string
			tab       types.TabData
			lastUsed  int64
			createdAt int64
			parent    sql.NullString
			group     sql.NullString
		)
		if err := rows.Scan(&id, &tab.Title, &tab.URL, &tab.FaviconURL, &tab.IsPrivate,
			&lastUsed, &createdAt, &parent, &group); err != nil {
			return nil, err
		}

		if tab.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: tab id %q: %v", ErrCorruptSnapshot, id, err)
		}
		tab.LastUsed = fromUnixNano(lastUsed)
		tab.CreatedAt = fromUnixNano(createdAt)
		if parent.Valid {
			parentID, err := uuid.Parse(parent.String)
			if err != nil {
				return nil, fmt.Errorf("%w: parent id %q: %v", ErrCorruptSnapshot, parent.String, err)
			}
			tab.ParentID = &parentID
		}
		if group.Valid {
			var g types.TabGroupData
			if err := sonic.UnmarshalString(group.String, &g); err != nil {
				return nil, fmt.Errorf("%w: group data for tab %s: %v", ErrCorruptSnapshot, id, err)
			}
			tab.GroupData = &g
		}
		tabs = append(tabs, tab)
	}
	return tabs, rows.Err()
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
