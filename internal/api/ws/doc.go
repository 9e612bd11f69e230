// Package ws streams tab registry changes to WebSocket clients.
//
// A Hub is registered as a tabs.Observer and fans every event out to the
// connected clients. Each client has a bounded send queue; a client that
// falls behind is disconnected instead of blocking the registry.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - hello: Connection accepted, carries the connection id
//   - added, removed, selected, moved, updated: Tab changes
//   - restored, saved: Window-wide persistence events
//   - pong: Reply to ping
//   - error: Malformed or unknown client message
//
// Example Usage:
//
//	hub := ws.NewHub(ws.Options{Logger: logger, Metrics: metrics})
//	manager.AddObserver(hub)
//	router.GET("/ws", hub.HandleConnection)
package ws
