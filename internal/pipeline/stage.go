// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/models"
)

// Status is the outcome of one stage invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"   // input missing or produced nothing
	StatusSkipped Status = "skipped" // the stage had nothing to do with the given input
	StatusFailed  Status = "failed"
)

// Stage is one unit of pipeline work. Implementations hold configuration
// and collaborators only; every invocation starts from scratch.
type Stage interface {
	// Name identifies the stage in logs, metrics and run history.
	Name() string

	// Execute performs the whole unit of work.
	Execute(ctx context.Context) Result

	// ExecuteInput runs the stage on an in-process input instead of its
	// configured source. Stages that cannot chain return Skipped.
	ExecuteInput(ctx context.Context, input any) Result
}

// Result records one stage invocation.
type Result struct {
	Stage      string
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Items      int
	Err        error
}

// Elapsed returns the wall time of the invocation.
func (r Result) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Begin starts a result for stage at the current time.
//
//	res := pipeline.Begin(s.Name())
//	n, err := s.work(ctx)
//	return res.Done(n, err)
func Begin(stage string) Result {
	return Result{Stage: stage, StartedAt: time.Now()}
}

// Done finishes the result. Missing and empty input yield StatusEmpty with
// the cause kept in Err; any other error yields StatusFailed with Err
// wrapped in a StageExecutionError.
func (r Result) Done(items int, err error) Result {
	r.FinishedAt = time.Now()
	r.Items = items

	switch {
	case err == nil:
		r.Status = StatusSuccess
	case models.IsInputMissing(err) || models.IsEmptyInput(err):
		r.Status = StatusEmpty
		r.Err = err
	default:
		r.Status = StatusFailed
		r.Err = wrapStageError(r.Stage, err)
	}
	return r
}

// Skipped returns a finished result for a stage that did nothing.
func Skipped(stage string) Result {
	now := time.Now()
	return Result{Stage: stage, Status: StatusSkipped, StartedAt: now, FinishedAt: now}
}

func wrapStageError(stage string, err error) error {
	var stageErr *models.StageExecutionError
	if errors.As(err, &stageErr) {
		return err
	}
	return &models.StageExecutionError{Stage: stage, Err: err}
}

// Run executes s. A panic inside the stage is recovered, logged and
// returned as a failed result.
func Run(ctx context.Context, s Stage) Result {
	return guard(ctx, s.Name(), s.Execute)
}

// RunInput executes s on an in-process input with the same guarantees as Run.
func RunInput(ctx context.Context, s Stage, input any) Result {
	return guard(ctx, s.Name(), func(ctx context.Context) Result {
		return s.ExecuteInput(ctx, input)
	})
}

func guard(ctx context.Context, name string, fn func(ctx context.Context) Result) (res Result) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Str("stage", name).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Stage panicked")
			res = Result{
				Stage:      name,
				Status:     StatusFailed,
				StartedAt:  started,
				FinishedAt: time.Now(),
				Err:        &models.StageExecutionError{Stage: name, Err: fmt.Errorf("panic: %v", r)},
			}
		}
	}()

	res = fn(ctx)
	if res.Stage == "" {
		res.Stage = name
	}
	if res.StartedAt.IsZero() {
		res.StartedAt = started
	}
	if res.FinishedAt.IsZero() {
		res.FinishedAt = time.Now()
	}
	if res.Status == "" {
		res = Result{Stage: res.Stage, StartedAt: res.StartedAt}.Done(res.Items, res.Err)
	}
	return res
}
