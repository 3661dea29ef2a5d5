// Copyright (c) 2025 Neomantra Corp
//
// Recorder observability. The per-symbol event counters and the histograms
// are labelled by symbol and feed_mode so a live/delayed transition never
// aliases two regimes in the same series. The connection error and
// reconnect counters and the connected gauge carry no labels, and the
// current_seq gauge is labelled by symbol only. The HTTP surface that exposes the registry belongs to
// the service shell, not here.

package nexus_live

import (
	"github.com/prometheus/client_golang/prometheus"

	nexus "github.com/skywalkerx28/nexus-sub000"
)

// Metrics holds the recorder's prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	EventsReceived   *prometheus.CounterVec // symbol, feed_mode
	EventsWritten    *prometheus.CounterVec // symbol, feed_mode
	EventsRejected   *prometheus.CounterVec // symbol, feed_mode
	MalformedTicks   *prometheus.CounterVec // symbol, feed_mode
	ConnectionErrors prometheus.Counter
	Reconnects       prometheus.Counter
	Connected        prometheus.Gauge
	CurrentSeq       *prometheus.GaugeVec // symbol

	TickSeconds    *prometheus.HistogramVec // symbol, feed_mode
	FlushSeconds   *prometheus.HistogramVec // symbol, feed_mode
	LatencySeconds *prometheus.HistogramVec // symbol, feed_mode — event to receive
}

// NewMetrics builds the collector set on a fresh registry.
func NewMetrics() *Metrics {
	labels := []string{"symbol", "feed_mode"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "events_received_total",
			Help: "Raw ticks received from the feed.",
		}, labels),
		EventsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "events_written_total",
			Help: "Events accepted by the writer.",
		}, labels),
		EventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "events_rejected_total",
			Help: "Events rejected by validation.",
		}, labels),
		MalformedTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "malformed_ticks_total",
			Help: "Ticks skipped before normalization (missing or non-finite fields).",
		}, labels),
		ConnectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "connection_errors_total",
			Help: "Upstream connect or read failures.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "reconnects_total",
			Help: "Successful reconnects after a drop.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "connected",
			Help: "1 while the upstream session is established.",
		}),
		CurrentSeq: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "current_seq",
			Help: "Last assigned sequence number per symbol.",
		}, []string{"symbol"}),
		TickSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "tick_seconds",
			Help:    "Tick processing duration.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, labels),
		FlushSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "flush_seconds",
			Help:    "Writer flush duration.",
			Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10),
		}, labels),
		LatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nexus", Subsystem: "recorder", Name: "event_latency_seconds",
			Help:    "Event time to receive time network latency.",
			Buckets: prometheus.ExponentialBuckets(1e-4, 4, 12),
		}, labels),
	}
	m.registry.MustRegister(
		m.EventsReceived, m.EventsWritten, m.EventsRejected, m.MalformedTicks,
		m.ConnectionErrors, m.Reconnects, m.Connected, m.CurrentSeq,
		m.TickSeconds, m.FlushSeconds, m.LatencySeconds,
	)
	return m
}

// Registry exposes the private registry for the shell's metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// SymbolStats is one symbol's slice of a stats snapshot.
type SymbolStats struct {
	Received   uint64 `json:"received"`
	Written    uint64 `json:"written"`
	Rejected   uint64 `json:"rejected"`
	Malformed  uint64 `json:"malformed"`
	CurrentSeq uint64 `json:"current_seq"`
}

// Snapshot is the recorder's operator-facing state at one instant.
type Snapshot struct {
	Connected        bool                   `json:"connected"`
	FeedMode         nexus.FeedMode         `json:"feed_mode"`
	IngestSessionID  string                 `json:"ingest_session_id"`
	Reconnects       uint64                 `json:"reconnects"`
	ConnectionErrors uint64                 `json:"connection_errors"`
	Symbols          map[string]SymbolStats `json:"symbols"`
}
