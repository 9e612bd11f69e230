package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/tabs"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tabkeeper/internal/shared/id"
	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
)

const (
	writeWait         = 5 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	DefaultBufferSize = 64
)

// Message is sent to clients for every registry change
type Message struct {
	Type          string     `json:"type"`
	ConnID        string     `json:"conn_id,omitempty"`
	WindowID      *uuid.UUID `json:"window_id,omitempty"`
	Tab           *types.Tab `json:"tab,omitempty"`
	PreviousTabID *uuid.UUID `json:"previous_tab_id,omitempty"`
	TabCount      int        `json:"tab_count"`
	PrivateCount  int        `json:"private_count"`
	Error         string     `json:"error,omitempty"`
	Warnings      []string   `json:"warnings,omitempty"`
	Timestamp     int64      `json:"timestamp"`
}

// ClientMessage is a message received from a client
type ClientMessage struct {
	Type string `json:"type"`
}

// Options configures a Hub
type Options struct {
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	// BufferSize is the per-client queue length; a client that falls this
	// far behind is disconnected.
	BufferSize int
	// CheckOrigin overrides the upgrader's origin check. Nil allows all origins.
	CheckOrigin func(r *http.Request) bool
}

// Hub fans registry changes out to WebSocket clients
type Hub struct {
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	metrics    *monitoring.Metrics
	bufferSize int

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	id        id.ConnID
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

var _ tabs.Observer = (*Hub)(nil)

// NewHub creates a hub
func NewHub(opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger:     opts.Logger.Named("ws"),
		metrics:    opts.Metrics,
		bufferSize: opts.BufferSize,
		clients:    make(map[*client]struct{}),
	}
}

// TabsChanged broadcasts a registry event to every client
func (h *Hub) TabsChanged(ev tabs.Event) {
	windowID := ev.WindowID
	msg := Message{
		Type:          string(ev.Type),
		WindowID:      &windowID,
		Tab:           ev.Tab,
		PreviousTabID: ev.PreviousTabID,
		TabCount:      ev.TabCount,
		PrivateCount:  ev.PrivateCount,
		Timestamp:     time.Now().Unix(),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	for _, w := range ev.Warnings {
		msg.Warnings = append(msg.Warnings, w.Error())
	}
	h.broadcast(msg)
}

func (h *Hub) broadcast(msg Message) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
			h.recordMessage("out", msg.Type)
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.logger.Warn("Dropping slow client", zap.String("conn_id", cl.id.String()))
		h.unregister(cl)
	}
}

// HandleConnection upgrades the request and streams events until the client
// disconnects or the hub closes.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:   id.NewConnID(),
		conn: conn,
		send: make(chan []byte, h.bufferSize),
		done: make(chan struct{}),
	}
	if !h.register(cl) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go h.writePump(cl)
	h.sendTo(cl, Message{Type: "hello", ConnID: cl.id.String()})
	h.readPump(cl)
}

func (h *Hub) register(cl *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.logger.Debug("Client connected", zap.String("conn_id", cl.id.String()))
	return true
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()

	cl.close()
	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.logger.Debug("Client disconnected", zap.String("conn_id", cl.id.String()))
}

func (h *Hub) readPump(cl *client) {
	defer h.unregister(cl)

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.String("conn_id", cl.id.String()), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.recordMessage("in", "invalid")
			h.sendTo(cl, Message{Type: "error", Error: "invalid message"})
			continue
		}

		// Client-chosen types never become label values.
		switch msg.Type {
		case "ping":
			h.recordMessage("in", "ping")
			h.sendTo(cl, Message{Type: "pong"})
		default:
			h.recordMessage("in", "unknown")
			h.sendTo(cl, Message{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.unregister(cl)
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(cl)
				return
			}
		case <-cl.done:
			return
		}
	}
}

// sendTo queues a message for one client, dropping the client when its queue is full.
func (h *Hub) sendTo(cl *client, msg Message) {
	msg.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case cl.send <- data:
		h.recordMessage("out", msg.Type)
	default:
		h.unregister(cl)
	}
}

func (h *Hub) recordMessage(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new connections
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	for _, cl := range clients {
		h.unregister(cl)
	}
}
