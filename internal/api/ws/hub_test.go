package ws

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/tabs"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tabkeeper/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startHub(t *testing.T, opts Options) (*Hub, string) {
	t.Helper()
	hub := NewHub(opts)
	router := gin.New()
	router.GET("/ws", hub.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubWelcomesClient(t *testing.T) {
	hub, url := startHub(t, Options{})
	conn := dial(t, url)

	hello := readMessage(t, conn)
	assert.Equal(t, "hello", hello.Type)
	assert.True(t, strings.HasPrefix(hello.ConnID, "conn_"))
	assert.Nil(t, hello.WindowID)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubPingPong(t *testing.T) {
	_, url := startHub(t, Options{})
	conn := dial(t, url)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "subscribe"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "unknown message type", msg.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, "invalid message", readMessage(t, conn).Error)
}

func TestHubBoundsClientMessageLabels(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	_, url := startHub(t, Options{Metrics: metrics})
	conn := dial(t, url)
	readMessage(t, conn)

	for i := 0; i < 50; i++ {
		require.NoError(t, conn.WriteJSON(ClientMessage{Type: fmt.Sprintf("junk-%d", i)}))
		assert.Equal(t, "error", readMessage(t, conn).Type)
	}

	// out/hello, in/unknown and out/error
	assert.Equal(t, 3, promtest.CollectAndCount(metrics.WSMessages))
	assert.Equal(t, float64(50), promtest.ToFloat64(metrics.WSMessages.WithLabelValues("in", "unknown")))
}

func TestHubBroadcastsRegistryEvents(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	hub, url := startHub(t, Options{Metrics: metrics})
	first := dial(t, url)
	second := dial(t, url)
	readMessage(t, first)
	readMessage(t, second)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	manager := tabs.NewManager(testutil.NewMemoryStore(), tabs.Options{})
	defer manager.Close(context.Background())
	manager.AddObserver(hub)

	tab, err := manager.AddTab(tabs.AddTabOptions{URL: "https://example.com", IsPrivate: true})
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, "added", msg.Type)
		require.NotNil(t, msg.Tab)
		assert.Equal(t, tab.ID, msg.Tab.ID)
		require.NotNil(t, msg.WindowID)
		assert.Equal(t, manager.WindowID(), *msg.WindowID)
		assert.Equal(t, 1, msg.TabCount)
		assert.Equal(t, 1, msg.PrivateCount)
	}

	assert.EqualValues(t, 2, metrics.Snapshot().ActiveConnections)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(Options{BufferSize: 1})
	cl := &client{
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}
	require.True(t, hub.register(cl))

	hub.broadcast(Message{Type: "added"})
	assert.Equal(t, 1, hub.ClientCount())

	hub.broadcast(Message{Type: "added"})
	assert.Equal(t, 0, hub.ClientCount())
	select {
	case <-cl.done:
	default:
		t.Fatal("slow client was not closed")
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub, url := startHub(t, Options{})
	conn := dial(t, url)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		defer late.Close()
		require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, _, err = late.ReadMessage()
		assert.Error(t, err, "hub rejects connections after Close")
	}
}
