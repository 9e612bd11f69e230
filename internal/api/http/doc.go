// Package http provides the REST API for a window's tab registry.
//
// Handlers translate HTTP requests into tabs.Manager operations and map
// registry and storage errors to status codes: unknown tabs are 404, a
// mutation during a restore is 409, and storage failures are 500.
//
// Endpoints:
//   - GET /, /health: Liveness and registry statistics
//   - GET /api/tabs, /api/tabs/count, /api/tabs/:id: Read views
//   - POST /api/tabs, PATCH|DELETE /api/tabs/:id: Open, update, close
//   - POST /api/tabs/:id/select, /api/tabs/:id/move: Activation and order
//   - GET|PUT /api/tabs/:id/thumbnail: PNG thumbnails
//   - POST /api/session/preserve, /api/session/restore: Persistence
//   - GET /api/session/windows: Persisted window summaries
//   - GET /api/metrics: JSON metrics snapshot
//
// Example Usage:
//
//	handlers := http.NewHandlers(manager, store, metrics, logger)
//	handlers.Register(router)
package http
