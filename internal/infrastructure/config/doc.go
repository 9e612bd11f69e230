// Package config provides 12-factor configuration management for tabkeeper.
//
// Configuration comes from three layers, later layers winning:
//  1. Built-in defaults (Default)
//  2. An optional YAML file (LoadFile)
//  3. Environment variables prefixed with TABKEEPER_
//
// Configuration Sections:
//   - Server: HTTP listen address, CORS origins, shutdown timeout
//   - Store: backend (file or sqlite), data directory, compression
//   - Registry: window id, save debounce, auto-preserve, restore on start
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting for the HTTP API
//
// Example Usage:
//
//	cfg, err := config.LoadFile("/etc/tabkeeper.yaml")
//	if err != nil {
//	    return err
//	}
//	store, err := session.Open(cfg.Store.Backend, cfg.StorePath(), opts)
//
// Environment Variables:
//   - TABKEEPER_SERVER_PORT, TABKEEPER_SERVER_HOST
//   - TABKEEPER_STORE_BACKEND, TABKEEPER_STORE_DIR, TABKEEPER_STORE_COMPRESSION
//   - TABKEEPER_REGISTRY_PRESERVE_DELAY, TABKEEPER_REGISTRY_AUTO_PRESERVE
//   - TABKEEPER_LOGGING_LEVEL, TABKEEPER_LOGGING_DEVELOPMENT
//   - TABKEEPER_RATE_LIMIT_REQUESTS_PER_SECOND, TABKEEPER_RATE_LIMIT_BURST
package config
