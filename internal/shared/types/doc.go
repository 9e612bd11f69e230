// Package types provides shared data structures for tabkeeper.
//
// Live Types:
//   - Tab: One open browsing tab, owned by the tab registry
//   - TabGroupData: Search-driven group membership, nil when ungrouped
//   - TabState: Tab lifecycle enum (created, active, inactive, closed)
//   - TabStats: Registry counters for health and verification
//
// Persisted Types:
//   - TabData: The durable form of a Tab
//   - WindowSnapshot: One window's ordered tabs and active tab id
//   - WindowSummary: Short description of a persisted window
//
// A Tab converts to TabData with ToData and back with ToTab; restored tabs
// start inactive until the registry selects one.
package types
