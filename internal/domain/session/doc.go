// Package session provides durable storage for browser window snapshots.
//
// A WindowSnapshot records one window's ordered tabs, which tab is active
// and whether the window is primary. Saves replace the previous snapshot for
// the same window wholesale; readers never see a partially written one.
//
// Backends:
//   - FileStore: one JSON file per window (optionally gzip or zstd
//     compressed) plus one PNG per tab thumbnail
//   - SQLiteStore: windows, tabs and thumbnails tables behind versioned
//     migrations
//
// Read Tolerance:
//   - Unknown JSON fields are ignored
//   - A missing tab_group_data means the tab is ungrouped
//   - Unreadable snapshots are logged and skipped by FetchAllWindowsData
//
// Example Usage:
//
//	store, err := session.Open(session.BackendFile, dir, session.Options{Logger: log})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	windows, err := store.FetchAllWindowsData(ctx)
package session
