// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

/*
Package metrics provides Prometheus metrics for the linkage pipeline.

All collectors are registered with the default registry through promauto and
are exposed by the HTTP service at /metrics:

	curl http://localhost:8686/metrics

# Available Metrics

Pipeline:
  - linkage_stage_duration_seconds{stage,status}
  - linkage_stage_runs_total{stage,status}
  - linkage_phase_duration_seconds{phase}
  - linkage_phase_aborts_total{phase}
  - linkage_last_run_timestamp_seconds

Similarity and SVD:
  - linkage_triples_emitted_total{category}
  - linkage_pairs_scored_total
  - linkage_svd_duration_seconds
  - linkage_svd_cache_total{result}

Store:
  - linkage_store_operation_duration_seconds{operation}
  - linkage_store_operations_total{operation,status}
  - linkage_store_rows_written_total{table}
  - linkage_store_breaker_state

HTTP:
  - linkage_http_requests_total{method,path,code}
  - linkage_http_request_duration_seconds{method,path}
*/
package metrics
