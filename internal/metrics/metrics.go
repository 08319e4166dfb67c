package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coastscore_upstream_calls_total",
			Help: "Total upstream scored-forecast fetches",
		},
		[]string{"source", "area", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coastscore_upstream_latency_seconds",
			Help:    "Upstream fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SnapshotsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coastscore_snapshots_ingested_total",
			Help: "Total scored snapshots stored",
		},
		[]string{"area", "status"},
	)

	HoursRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coastscore_hours_rejected_total",
			Help: "Hours dropped by validation",
		},
		[]string{"area"},
	)

	SnapshotAgeSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coastscore_snapshot_age_seconds",
			Help: "Age of the latest snapshot at last health check",
		},
		[]string{"area"},
	)

	ViewRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coastscore_view_requests_total",
			Help: "Derived view requests by view and HTTP status",
		},
		[]string{"view", "code"},
	)

	NarrativeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coastscore_narrative_calls_total",
			Help: "Narrative generation attempts by outcome",
		},
		[]string{"outcome"},
	)
)
