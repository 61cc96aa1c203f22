// Package metrics registers the Prometheus instruments served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chess_analyzer_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chess_analyzer_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chess_analyzer_analysis_duration_seconds",
		Help:    "End to end engine analysis latency.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_analyzer_cache_hits_total",
		Help: "Analysis results served from the Redis cache.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chess_analyzer_cache_misses_total",
		Help: "Analysis requests that had to run the engine.",
	})

	EngineSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chess_analyzer_engine_sessions",
		Help: "Live UCI sessions across all pool buckets.",
	})
)
