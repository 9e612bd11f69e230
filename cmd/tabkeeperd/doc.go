// Command tabkeeperd serves one window's tab registry over HTTP.
//
// The daemon restores persisted tabs on start, saves changes as they
// happen when auto-preserve is enabled, and writes a final snapshot on
// shutdown.
//
// Configuration:
//   - Defaults, overlaid by an optional YAML file (--config)
//   - Environment variables (TABKEEPER_ prefix)
//   - CLI flags (override everything)
//
// Usage:
//
//	# File store under the XDG data directory
//	./tabkeeperd
//
//	# SQLite store, development logging
//	./tabkeeperd --backend sqlite --dir ~/.tabkeeper --dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
