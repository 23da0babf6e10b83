// Package metrics holds the Prometheus collectors shared by the gateway, the
// pipeline and the job dispatcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bugwarden"

var (
	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "Model calls by request kind and outcome.",
	}, []string{"request", "outcome"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "Latency of single model calls.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
	}, []string{"request"})

	LLMCorrectiveReprompts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_corrective_reprompts_total",
		Help:      "Corrective re-prompts sent after an unparseable reply.",
	}, []string{"request"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of each pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 9),
	}, []string{"stage"})

	ChunksJudged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_judged_total",
		Help:      "Chunk judgments by outcome.",
	}, []string{"outcome"})

	FilterFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "filter_fallbacks_total",
		Help:      "Runs where no chunk passed the keyword filter.",
	})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Analysis jobs by final status.",
	}, []string{"status"})

	JobQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "job_queue_depth",
		Help:      "Analysis jobs waiting for a worker.",
	})
)
