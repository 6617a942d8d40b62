// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/metrics"
	"github.com/tomtom215/linkage/internal/models"
)

// Phase names a pipeline phase.
type Phase string

const (
	PhasePreprocess Phase = "preprocess"
	PhaseProcess    Phase = "process"
	PhaseOutput     Phase = "output"
)

// defaultStageGrace is how long a timed-out stage may take to return.
const defaultStageGrace = 5 * time.Second

// PhaseReport records one phase of one engine run.
type PhaseReport struct {
	Engine     string
	Phase      Phase
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
	// Aborted is set when the store became unavailable or the run was
	// cancelled before every stage ran.
	Aborted bool
}

// Elapsed returns the wall time of the phase.
func (p PhaseReport) Elapsed() time.Duration {
	return p.FinishedAt.Sub(p.StartedAt)
}

// Count returns the number of results with status s.
func (p PhaseReport) Count(s Status) int {
	n := 0
	for _, r := range p.Results {
		if r.Status == s {
			n++
		}
	}
	return n
}

// Recorder persists phase reports. Recording failures are logged and never
// fail the run.
type Recorder interface {
	Record(ctx context.Context, runID string, report PhaseReport) error
}

// Engine runs ordered stage lists for the preprocess and process phases.
// Stages run one after another; the store is the only channel between them.
type Engine struct {
	name       string
	preprocess []Stage
	process    []Stage
	timeout    time.Duration
	grace      time.Duration
	recorder   Recorder
	logger     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStageTimeout bounds every stage invocation. Zero disables the bound.
func WithStageTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithStageGrace sets how long a timed-out stage may take to return before
// the engine moves on without it.
func WithStageGrace(d time.Duration) Option {
	return func(e *Engine) { e.grace = d }
}

// WithRecorder sets the run history recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates an engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(name string, preprocess, process []Stage, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		name:       name,
		preprocess: preprocess,
		process:    process,
		grace:      defaultStageGrace,
		logger:     logger.With().Str("component", "pipeline").Str("engine", name).Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name.
func (e *Engine) Name() string { return e.name }

// Stages returns the stage names of a phase in execution order.
func (e *Engine) Stages(phase Phase) []string {
	var list []Stage
	switch phase {
	case PhasePreprocess:
		list = e.preprocess
	case PhaseProcess:
		list = e.process
	}
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name()
	}
	return names
}

// Preprocess runs the preprocess stages.
func (e *Engine) Preprocess(ctx context.Context) (PhaseReport, error) {
	return e.runPhase(ctx, PhasePreprocess, e.preprocess)
}

// Process runs the process stages.
func (e *Engine) Process(ctx context.Context) (PhaseReport, error) {
	return e.runPhase(ctx, PhaseProcess, e.process)
}

// Output is the terminal phase. It has no stages.
func (e *Engine) Output(ctx context.Context) (PhaseReport, error) {
	return e.runPhase(ctx, PhaseOutput, nil)
}

// Run executes Preprocess, Process and Output under one run id and returns
// the reports of every phase that started.
func (e *Engine) Run(ctx context.Context) ([]PhaseReport, error) {
	ctx = ensureRunID(ctx)

	phases := []func(context.Context) (PhaseReport, error){e.Preprocess, e.Process, e.Output}
	reports := make([]PhaseReport, 0, len(phases))
	for _, phase := range phases {
		report, err := phase(ctx)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func ensureRunID(ctx context.Context) context.Context {
	if logging.RunIDFromContext(ctx) != "" {
		return ctx
	}
	return logging.ContextWithRunID(ctx, logging.NewRunID())
}

func (e *Engine) runPhase(ctx context.Context, phase Phase, stages []Stage) (PhaseReport, error) {
	ctx = ensureRunID(ctx)
	ctx = logging.ContextWithLogger(ctx, e.logger)
	log := logging.CtxWith(ctx).Str("phase", string(phase)).Logger()

	report := PhaseReport{
		Engine:    e.name,
		Phase:     phase,
		StartedAt: time.Now(),
		Results:   make([]Result, 0, len(stages)),
	}
	log.Info().Int("stages", len(stages)).Msg("Phase starting")

	var phaseErr error
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			phaseErr = fmt.Errorf("%s phase cancelled before %s: %w", phase, s.Name(), err)
			break
		}

		res := e.runStage(ctx, s)
		report.Results = append(report.Results, res)
		e.logResult(log, res)
		metrics.RecordStage(res.Stage, string(res.Status), res.Elapsed())

		if models.IsStoreUnavailable(res.Err) {
			phaseErr = fmt.Errorf("%s phase aborted at %s: %w", phase, res.Stage, res.Err)
			break
		}
	}

	report.FinishedAt = time.Now()
	report.Aborted = phaseErr != nil
	metrics.RecordPhase(string(phase), report.Elapsed(), report.Aborted)

	event := log.Info()
	if phaseErr != nil {
		event = log.Error().Err(phaseErr)
	}
	event.
		Dur("took", report.Elapsed()).
		Int("failed", report.Count(StatusFailed)).
		Int("empty", report.Count(StatusEmpty)).
		Msg("Phase finished")

	e.record(ctx, report)
	return report, phaseErr
}

// runStage runs s under the stage timeout. After the deadline the stage gets
// the grace period to return; one still running after that is abandoned and
// the phase moves on. Either way the stage is reported as failed.
func (e *Engine) runStage(ctx context.Context, s Stage) Result {
	if e.timeout <= 0 {
		return Run(ctx, s)
	}

	stageCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- Run(stageCtx, s)
	}()

	select {
	case res := <-done:
		return res
	case <-stageCtx.Done():
	}

	err := stageCtx.Err()
	log := e.logger.With().Str("stage", s.Name()).Dur("timeout", e.timeout).Logger()
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Msg("Stage exceeded its timeout")
	}

	grace := time.NewTimer(e.grace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		log.Error().
			Dur("grace", e.grace).
			Msg("Stage still running after timeout grace period, abandoning it")
	}

	return Result{
		Stage:      s.Name(),
		Status:     StatusFailed,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Err:        &models.StageExecutionError{Stage: s.Name(), Err: err},
	}
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (e *Engine) logResult(log zerolog.Logger, res Result) {
	var event *zerolog.Event
	switch res.Status {
	case StatusFailed:
		event = log.Error().Err(res.Err)
	case StatusEmpty:
		event = log.Warn().Err(res.Err)
	default:
		event = log.Info()
	}
	event.
		Str("stage", res.Stage).
		Str("status", string(res.Status)).
		Int("items", res.Items).
		Dur("elapsed", res.Elapsed()).
		Msg("Stage finished")
}

func (e *Engine) record(ctx context.Context, report PhaseReport) {
	if e.recorder == nil {
		return
	}
	runID := logging.RunIDFromContext(ctx)
	if err := e.recorder.Record(context.WithoutCancel(ctx), runID, report); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("phase", string(report.Phase)).Msg("Failed to record phase report")
	}
}
