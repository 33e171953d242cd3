// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "travel_recommender"

var (
	// PipelineRuns counts finished pipeline runs by final status.
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Finished recommendation pipeline runs by status.",
		},
		[]string{"status"},
	)

	// StageDuration observes the time spent in each pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Time spent per pipeline stage.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	// ExtractionFailures counts extraction failures by kind: backend, decode
	// or validation.
	ExtractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Preference extraction failures by kind.",
		},
		[]string{"kind"},
	)

	// RankedCandidates observes how many candidates each ranking returned.
	RankedCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranked_candidates",
			Help:      "Candidates returned by the ranking step.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// BreakerState is 0 when closed, 1 when half-open and 2 when open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "llm_circuit_breaker_state",
			Help:      "Language model circuit breaker state (0 closed, 1 half-open, 2 open).",
		},
		[]string{"name"},
	)

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by route and status code.",
		},
		[]string{"route", "code"},
	)
)
