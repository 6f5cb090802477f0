// Package metrics exposes the Prometheus collectors of the retrieval engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pagegraph"
)

var (
	// Graph metrics engine
	GraphMetricWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "metric_writes_total",
			Help:      "Total number of node metric writes",
		},
		[]string{"status"},
	)

	GraphMetricsDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "metrics_duration_seconds",
			Help:      "Duration of a full metrics computation and persistence run",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300},
		},
	)

	// Enricher
	EnrichmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "requests_total",
			Help:      "Total number of page enrichments",
		},
		[]string{"status"},
	)

	// Retrieval
	RetrievalPhaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "phase_total",
			Help:      "Total number of retrieval phase calls",
		},
		[]string{"phase", "status"},
	)

	RetrievalExitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "exit_total",
			Help:      "Phase after which progressive retrieval returned",
		},
		[]string{"phase"},
	)

	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)

	// Caches
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of cache lookups",
		},
		[]string{"cache", "result"},
	)

	// Orchestration
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "queries_total",
			Help:      "Total number of answered questions by path",
		},
		[]string{"path"},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "query_duration_seconds",
			Help:      "End to end question duration in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total number of language model calls",
		},
		[]string{"operation", "status"},
	)

	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "writes_total",
			Help:      "Total number of graph feedback writes",
		},
		[]string{"status"},
	)
)
