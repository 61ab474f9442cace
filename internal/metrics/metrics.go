// Package metrics exposes the Prometheus instruments for the routing
// pipeline. promauto registers everything on the default registry; the /metrics
// endpoint serves it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled by the API service.",
		},
		[]string{"path", "method", "code"},
	)

	// JobsCreated counts jobs accepted by the API.
	JobsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_created_total",
			Help: "Total number of jobs created with at least one routing.",
		},
	)

	// RoutingsCreated counts routings written at job creation.
	RoutingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_routings_created_total",
			Help: "Total number of job routings created.",
		},
	)

	// SyncsTotal counts finished sync attempts by provider and resulting
	// routing status.
	SyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_syncs_total",
			Help: "Total number of routing sync attempts by outcome.",
		},
		[]string{"provider", "status"},
	)

	// SyncDuration observes end-to-end sync attempt latency.
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routing_sync_duration_seconds",
			Help:    "Duration of routing sync attempts.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// OutboxDispatched counts outbox events handed to the dispatch pool.
	OutboxDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_events_dispatched_total",
			Help: "Total number of outbox events dispatched to sync workers.",
		},
	)

	// OutboxPending gauges the pending outbox backlog as of the last poll.
	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_events_pending",
			Help: "Pending outbox events observed by the last dispatch cycle.",
		},
	)

	// SweeperRecovered counts routings the backup sweeper re-dispatched.
	SweeperRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_routings_recovered_total",
			Help: "Total number of stuck routings recovered by the backup sweeper.",
		},
	)

	// RateLimitDenials counts claims released because the provider window was
	// full.
	RateLimitDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rate_limit_denials_total",
			Help: "Total number of sync attempts denied by the local rate limiter.",
		},
		[]string{"provider"},
	)

	// BreakerRejections counts calls refused by an open circuit.
	BreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_circuit_open_rejections_total",
			Help: "Total number of sync calls rejected by an open circuit breaker.",
		},
		[]string{"provider"},
	)

	// PollerCompleted counts routings the status poller marked completed.
	PollerCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poller_routings_completed_total",
			Help: "Total number of routings completed by the provider status poller.",
		},
	)

	// OutboxCleanupDeleted counts completed outbox events removed by cleanup.
	OutboxCleanupDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_cleanup_deleted_total",
			Help: "Total number of completed outbox events deleted by retention cleanup.",
		},
	)
)
