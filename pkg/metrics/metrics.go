package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations and their outcome (allow|deny|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewarden_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// ResolutionCacheLookups counts permission cache hits and misses.
	ResolutionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewarden_resolution_cache_lookups_total",
			Help: "Permission resolution cache lookups by outcome (hit|miss|bypass)",
		},
		[]string{"outcome"},
	)

	// ResolutionDuration measures how long a full permission resolution takes.
	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatewarden_resolution_duration_seconds",
			Help:    "Duration of permission set resolution",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CacheVersion exposes the current invalidation counter.
	CacheVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatewarden_cache_version",
			Help: "Current permission cache version",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatewarden_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
