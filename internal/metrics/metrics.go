// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the linkage pipeline:
// - Stage and phase timing
// - Similarity output volume
// - SVD cost and cache efficiency
// - Store operations and circuit breaker state
// - HTTP surface

var (
	// Pipeline Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkage_stage_duration_seconds",
			Help:    "Duration of pipeline stage executions in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		},
		[]string{"stage", "status"},
	)

	StageRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkage_stage_runs_total",
			Help: "Total number of pipeline stage executions by outcome",
		},
		[]string{"stage", "status"}, // status: "success", "empty", "skipped", "failed"
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkage_phase_duration_seconds",
			Help:    "Duration of pipeline phases in seconds",
			Buckets: []float64{0.1, 1, 10, 60, 300, 900, 1800, 3600},
		},
		[]string{"phase"}, // "preprocess", "process", "output"
	)

	PhaseAborts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkage_phase_aborts_total",
			Help: "Total number of phases aborted because the store was unavailable",
		},
		[]string{"phase"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkage_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed pipeline run",
		},
	)

	// Similarity Metrics
	TriplesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkage_triples_emitted_total",
			Help: "Total number of linkage triples emitted by category",
		},
		[]string{"category"},
	)

	PairsScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkage_pairs_scored_total",
			Help: "Total number of candidate pairs scored",
		},
	)

	// SVD Metrics
	SVDDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkage_svd_duration_seconds",
			Help:    "Duration of truncated SVD factorizations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SVDCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkage_svd_cache_total",
			Help: "SVD reduction cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkage_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkage_store_operations_total",
			Help: "Total number of store operations by outcome",
		},
		[]string{"operation", "status"},
	)

	StoreRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkage_store_rows_written_total",
			Help: "Total number of rows written to the store",
		},
		[]string{"table"},
	)

	StoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkage_store_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// HTTP Metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkage_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkage_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordStage records the outcome and duration of a stage execution.
func RecordStage(stage, status string, duration time.Duration) {
	StageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
	StageRuns.WithLabelValues(stage, status).Inc()
}

// RecordPhase records the duration of a pipeline phase.
func RecordPhase(phase string, duration time.Duration, aborted bool) {
	PhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
	if aborted {
		PhaseAborts.WithLabelValues(phase).Inc()
	}
}

// RecordTriples records emitted triples for a category.
func RecordTriples(category string, count int) {
	TriplesEmitted.WithLabelValues(category).Add(float64(count))
}

// RecordStoreOperation records a store operation metric.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperations.WithLabelValues(operation, status).Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
