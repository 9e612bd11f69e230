package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/tabs"
)

const namespace = "tabkeeper"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Tab metrics
	TabsOpen  *prometheus.GaugeVec
	TabEvents *prometheus.CounterVec

	// Persistence metrics
	Saves           *prometheus.CounterVec
	SaveDuration    prometheus.Histogram
	Restores        prometheus.Counter
	RestoreDuration prometheus.Histogram
	RestoreRepairs  prometheus.Counter

	// Store metrics
	StoreCalls    *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	OpenTabs          int64   `json:"open_tabs"`
	PrivateTabs       int64   `json:"private_tabs"`
	SavesCompleted    int64   `json:"saves_completed"`
	SaveFailures      int64   `json:"save_failures"`
	Restores          int64   `json:"restores"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

var _ tabs.Observer = (*Metrics)(nil)

// NewMetrics creates a metrics collector registered against reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),

		// Tab metrics
		TabsOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tabs_open",
				Help:      "Number of open tabs by privacy mode",
			},
			[]string{"mode"},
		),
		TabEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tab_events_total",
				Help:      "Total number of tab registry changes",
			},
			[]string{"type"},
		),

		// Persistence metrics
		Saves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Total number of window snapshot saves",
			},
			[]string{"result"},
		),
		SaveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "save_duration_seconds",
				Help:      "Window snapshot save duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		Restores: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restores_total",
				Help:      "Total number of completed tab restores",
			},
		),
		RestoreDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "restore_duration_seconds",
				Help:      "Tab restore duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		RestoreRepairs: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restore_repairs_total",
				Help:      "Persisted state problems repaired during restore",
			},
		),

		// Store metrics
		StoreCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_calls_total",
				Help:      "Total number of store operations",
			},
			[]string{"op", "status"},
		),
		StoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_duration_seconds",
				Help:      "Store operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// TabsChanged records a tab registry event
func (m *Metrics) TabsChanged(ev tabs.Event) {
	m.TabEvents.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case tabs.EventSaved:
		m.SaveDuration.Observe(ev.Duration.Seconds())
		m.mu.Lock()
		if ev.Err != nil {
			m.snapshot.SaveFailures++
		} else {
			m.snapshot.SavesCompleted++
		}
		m.mu.Unlock()
		if ev.Err != nil {
			m.Saves.WithLabelValues("failure").Inc()
		} else {
			m.Saves.WithLabelValues("success").Inc()
		}
		// A save describes the snapshot, which may lag the live list.
		return
	case tabs.EventRestored:
		m.Restores.Inc()
		m.RestoreDuration.Observe(ev.Duration.Seconds())
		m.RestoreRepairs.Add(float64(len(ev.Warnings)))
		m.mu.Lock()
		m.snapshot.Restores++
		m.mu.Unlock()
	}

	m.setOpenTabs(ev.TabCount, ev.PrivateCount)
}

func (m *Metrics) setOpenTabs(total, private int) {
	m.TabsOpen.WithLabelValues("normal").Set(float64(total - private))
	m.TabsOpen.WithLabelValues("private").Set(float64(private))

	m.mu.Lock()
	m.snapshot.OpenTabs = int64(total)
	m.snapshot.PrivateTabs = int64(private)
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordStoreCall records a store operation
func (m *Metrics) RecordStoreCall(op, status string, duration time.Duration) {
	m.StoreCalls.WithLabelValues(op, status).Inc()
	m.StoreDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current values for the JSON metrics endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
