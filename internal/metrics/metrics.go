// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksTotal counts scheduler.Tick invocations, labeled by outcome.
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beat_ticks_total",
		Help: "Total number of scheduler tick invocations",
	}, []string{"outcome"}) // outcome: ok, connection_error

	// TickDuration tracks how long a single Tick call takes.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beat_tick_duration_seconds",
		Help:    "Duration of a single scheduler tick",
		Buckets: prometheus.DefBuckets,
	})

	// PublishesTotal counts messages handed to the broker, labeled by queue
	// and outcome.
	PublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beat_publishes_total",
		Help: "Total number of task messages published",
	}, []string{"queue", "outcome"}) // outcome: ok, connection_error, other_error

	// ScheduledEntries reports the live entry count after each tick.
	ScheduledEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beat_scheduled_entries",
		Help: "Number of entries currently registered with the scheduler",
	})

	// ReconnectAttemptsTotal counts broker reconnect attempts, labeled by
	// outcome.
	ReconnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beat_broker_reconnect_attempts_total",
		Help: "Total number of broker reconnect attempts",
	}, []string{"outcome"}) // outcome: ok, connection_error, other_error

	// BackendSyncDuration tracks SchedulerBackend.Sync call latency.
	BackendSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beat_backend_sync_duration_seconds",
		Help:    "Duration of a SchedulerBackend.Sync call",
		Buckets: prometheus.DefBuckets,
	})

	// ResultBackendLatency tracks backend.Backend call latency, labeled by
	// backend kind and operation.
	ResultBackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "beat_result_backend_latency_seconds",
		Help:    "Latency of result backend operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "op"})
)
