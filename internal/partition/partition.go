// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package partition splits index ranges across a bounded worker pool.
//
// It replaces a distributed map/reduce substrate for the heavy parts of the
// pipeline (pairwise scoring, vector building): the row or pair space is
// cut into contiguous chunks, each chunk runs on its own goroutine, and
// results are merged by the caller. Merge order is not defined.
package partition

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Range is the half-open index interval [Lo, Hi).
type Range struct {
	Lo int
	Hi int
}

// Len returns the number of indexes in the range.
func (r Range) Len() int { return r.Hi - r.Lo }

// Workers returns n when positive, otherwise runtime.NumCPU().
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Ranges splits [0, n) into at most workers contiguous chunks of near-equal
// size. It returns nil for n <= 0.
func Ranges(n, workers int) []Range {
	if n <= 0 {
		return nil
	}
	workers = Workers(workers)
	if workers > n {
		workers = n
	}

	chunkSize := (n + workers - 1) / workers
	out := make([]Range, 0, workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		out = append(out, Range{Lo: start, Hi: end})
	}
	return out
}

// Run calls fn once per chunk of [0, n), at most workers at a time.
// The first error cancels the context passed to the remaining chunks and is
// returned.
func Run(ctx context.Context, n, workers int, fn func(ctx context.Context, r Range) error) error {
	ranges := Ranges(n, workers)
	if len(ranges) == 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers(workers))

	for _, r := range ranges {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, r)
		})
	}

	return g.Wait()
}

// Collect runs fn over the chunks of [0, n) and concatenates the results.
func Collect[T any](ctx context.Context, n, workers int, fn func(ctx context.Context, r Range) ([]T, error)) ([]T, error) {
	var (
		mu  sync.Mutex
		out []T
	)

	err := Run(ctx, n, workers, func(ctx context.Context, r Range) error {
		part, err := fn(ctx, r)
		if err != nil {
			return err
		}
		mu.Lock()
		out = append(out, part...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancelled reports whether ctx is done without blocking.
func Cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
