package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canopy_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks active admin sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "canopy_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// CacheRequests counts page-cache lookups by source and outcome (hit|miss).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canopy_cache_requests_total",
			Help: "Total number of content cache lookups",
		},
		[]string{"outcome"},
	)

	// SyncRuns counts content synchronisation passes by direction and result.
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canopy_sync_runs_total",
			Help: "Total number of content sync runs",
		},
		[]string{"direction", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canopy_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
