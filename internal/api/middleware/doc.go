// Package middleware provides gin middleware for the tabkeeper API:
// CORS for the UI host, per-client rate limiting, and request ids with
// request logging.
package middleware
