/*
Package monitoring provides Prometheus metrics for tabkeeper.

# Overview

Metrics are registered against an injected prometheus.Registerer so tests can
use a private registry. The Metrics type is also a tabs.Observer: attach it to
a Manager and it tracks open tabs, registry events, saves and restores.

# Features

- HTTP request metrics (count, latency) keyed by route template
- Open tab gauges by privacy mode
- Save and restore counters with duration histograms
- Store operation timing via InstrumentStore
- WebSocket connection metrics

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	store = monitoring.InstrumentStore(store, metrics)
	manager := tabs.NewManager(store, opts)
	manager.AddObserver(metrics)
	router.Use(monitoring.Middleware(metrics))

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
