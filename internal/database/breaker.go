// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package database

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/metrics"
)

// newBreaker builds the store circuit breaker. It opens after
// cfg.BreakerFailures consecutive connection failures and probes again after
// cfg.BreakerTimeout. Statement errors (bad SQL, constraint violations) do
// not count as failures.
func newBreaker(cfg *config.StoreConfig) *gobreaker.CircuitBreaker[any] {
	metrics.StoreBreakerState.Set(stateToFloat(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return !isConnectionError(err)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logging.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state transition")
			metrics.StoreBreakerState.Set(stateToFloat(to))
		},
	})
}

// stateToFloat converts circuit breaker state to numeric value for metrics.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// run executes fn through the breaker and records the operation.
func (db *DB) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	_, err := db.breaker.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	metrics.RecordStoreOperation(op, time.Since(start), err)
	return classify(op, err)
}

// BreakerState reports the breaker state, for readiness checks.
func (db *DB) BreakerState() string {
	return db.breaker.State().String()
}
