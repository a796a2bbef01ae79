// Package metrics exposes operational Prometheus metrics for watch mode.
// Computed prices never appear here; the metrics cover pipeline health only.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the watch pipeline collectors.
type Metrics struct {
	HeadsReceived  prometheus.Counter
	PointsEmitted  prometheus.Counter
	ComputeErrors  prometheus.Counter
	FetchRetries   prometheus.Counter
	FetchLatency   prometheus.Histogram
	LastBlock      prometheus.Gauge
	SubscriptionUp prometheus.Gauge

	server *http.Server
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		HeadsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricescope_heads_received_total",
			Help: "Total number of new block heads observed",
		}),
		PointsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricescope_points_emitted_total",
			Help: "Total number of price points emitted",
		}),
		ComputeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricescope_compute_errors_total",
			Help: "Total number of blocks that failed to produce a price point",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricescope_fetch_retries_total",
			Help: "Total number of RPC fetch retries",
		}),
		FetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricescope_fetch_latency_seconds",
			Help:    "Time to fetch reserves and build one price point",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		LastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricescope_last_block",
			Help: "Last block number processed",
		}),
		SubscriptionUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricescope_head_subscription_up",
			Help: "Head source (1=websocket subscription, 0=polling)",
		}),
	}

	prometheus.MustRegister(
		m.HeadsReceived,
		m.PointsEmitted,
		m.ComputeErrors,
		m.FetchRetries,
		m.FetchLatency,
		m.LastBlock,
		m.SubscriptionUp,
	)

	return m
}

// StartServer serves the metrics endpoint plus a health probe.
func (m *Metrics) StartServer(logger *zap.Logger, port int, path string) {
	if m == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	m.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("metrics server listening", zap.Int("port", port), zap.String("path", path))
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the metrics server.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// RecordHead notes one observed head. Nil receivers are no-ops so the
// runner works with metrics disabled.
func (m *Metrics) RecordHead(block uint64) {
	if m == nil {
		return
	}
	m.HeadsReceived.Inc()
	m.LastBlock.Set(float64(block))
}

// RecordPoint notes one emitted price point and its build duration.
func (m *Metrics) RecordPoint(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PointsEmitted.Inc()
	m.FetchLatency.Observe(elapsed.Seconds())
}

// RecordComputeError notes a block that produced no point.
func (m *Metrics) RecordComputeError() {
	if m == nil {
		return
	}
	m.ComputeErrors.Inc()
}

// RecordFetchRetry notes one RPC retry.
func (m *Metrics) RecordFetchRetry() {
	if m == nil {
		return
	}
	m.FetchRetries.Inc()
}

// SetSubscribed reports whether heads come from a live subscription.
func (m *Metrics) SetSubscribed(subscribed bool) {
	if m == nil {
		return
	}
	if subscribed {
		m.SubscriptionUp.Set(1)
	} else {
		m.SubscriptionUp.Set(0)
	}
}
