// Package server wires configuration, storage, the tab registry, metrics and
// the HTTP API into a runnable daemon.
package server
