package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppName names the data directory under the user's data home.
	AppName = "tabkeeper"

	// DatabaseFile is the SQLite database name inside the data directory.
	DatabaseFile = "tabs.db"
)

// DefaultDataDir returns $XDG_DATA_HOME/tabkeeper, falling back to
// ~/.local/share/tabkeeper and finally a relative ./tabkeeper-data.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", AppName)
	}
	return AppName + "-data"
}

// Expand resolves a leading ~ to the user's home directory.
func Expand(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// StorePath returns what a store backend opens: the directory itself for
// the file backend, the database file inside it for sqlite.
func StorePath(backend, dir string) string {
	if backend == "sqlite" {
		return filepath.Join(dir, DatabaseFile)
	}
	return dir
}
