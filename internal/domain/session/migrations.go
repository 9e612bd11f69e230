package session

import (
	"database/sql"
	"fmt"
)

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	Apply   func(tx *sql.Tx) error
}

// MigrationRunner applies pending migrations to the tab database.
type MigrationRunner struct {
	db         *sql.DB
	migrations []migration
}

// NewMigrationRunner creates a MigrationRunner with all registered migrations.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{
		db: db,
		migrations: []migration{
			{Version: 1, Name: "windows_tabs_thumbnails", Apply: migrateV001},
		},
	}
}

// Run creates the schema_migrations table and applies each migration that
// hasn't been recorded yet, in order.
func (r *MigrationRunner) Run() error {
	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range r.migrations {
		applied, err := r.isApplied(m.Version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}
		if err := r.apply(m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// Version returns the highest applied migration version, 0 for a fresh database.
func (r *MigrationRunner) Version() (int, error) {
	var version sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

func (r *MigrationRunner) isApplied(version int) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MigrationRunner) apply(m migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.Apply(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}

func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS windows (
			id            TEXT PRIMARY KEY,
			version       INTEGER NOT NULL,
			is_primary    BOOLEAN NOT NULL DEFAULT 0,
			active_tab_id TEXT,
			saved_at      INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tabs (
			window_id   TEXT NOT NULL REFERENCES windows(id) ON DELETE CASCADE,
			position    INTEGER NOT NULL,
			id          TEXT NOT NULL,
			title       TEXT NOT NULL DEFAULT '',
			site_url    TEXT NOT NULL DEFAULT '',
			favicon_url TEXT NOT NULL DEFAULT '',
			is_private  BOOLEAN NOT NULL DEFAULT 0,
			last_used   INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL DEFAULT 0,
			parent_id   TEXT,
			group_data  TEXT,
			PRIMARY KEY (window_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS thumbnails (
			tab_id     TEXT PRIMARY KEY,
			png        BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tabs_window_tab ON tabs(window_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_tabs_id ON tabs(id)`,
		`CREATE INDEX IF NOT EXISTS idx_windows_primary ON windows(is_primary)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
