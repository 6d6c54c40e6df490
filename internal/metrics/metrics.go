package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyshelf_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyshelf_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	StoreMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyshelf_store_mutations_total",
			Help: "Collection store mutations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	StoreSaveFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storyshelf_store_save_failures_total",
			Help: "Failed full-document persists (in-memory state kept)",
		},
	)

	ProjectionResolvedAssets = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storyshelf_projection_resolved_assets",
			Help:    "Assets surviving resolution per projection",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
)
