// Package metrics exposes Prometheus counters for pipeline runs and reflection loops.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Loop outcome label values
const (
	OutcomeSuccess   = "success"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
)

var (
	LoopAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_loop_attempts_total",
			Help: "Total number of generation attempts made by reflection loops",
		},
		[]string{"loop"},
	)

	LoopFaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_loop_faults_total",
			Help: "Total number of retryable faults observed by reflection loops",
		},
		[]string{"loop", "kind"},
	)

	LoopOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_loop_outcomes_total",
			Help: "Terminal outcomes of reflection loops",
		},
		[]string{"loop", "outcome"},
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_pipeline_runs_total",
			Help: "Total number of pipeline runs by result",
		},
		[]string{"result"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_pipeline_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		},
	)

	RetrievalMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_retrieval_misses_total",
			Help: "Identifiers returned by similarity search but absent from the context store",
		},
		[]string{"corpus"},
	)
)
