// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/metrics"
	"github.com/tomtom215/linkage/internal/pipeline"
)

// ErrRunInProgress is returned by TryRun while another run holds the lock.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Engine is the part of *pipeline.Engine the service drives.
type Engine interface {
	Name() string
	Run(ctx context.Context) ([]pipeline.PhaseReport, error)
}

// PipelineServiceConfig controls scheduling.
type PipelineServiceConfig struct {
	// RunOnStartup triggers one run as soon as the service starts.
	RunOnStartup bool

	// Interval between scheduled runs. Zero disables the schedule.
	Interval time.Duration
}

// PipelineService runs the engines in order, on startup and on a ticker.
// Runs never overlap: the scheduled run, TryRun callers and Run callers
// share one mutex.
type PipelineService struct {
	engines []Engine
	config  PipelineServiceConfig
	logger  zerolog.Logger

	mu sync.Mutex
}

// NewPipelineService creates the service. Engines run in the given order.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPipelineService(engines []Engine, cfg PipelineServiceConfig, logger zerolog.Logger) *PipelineService {
	return &PipelineService{
		engines: engines,
		config:  cfg,
		logger:  logger.With().Str("service", "pipeline").Logger(),
	}
}

// Serve implements suture.Service. Run failures are logged and never
// returned, so a bad input file does not trigger supervisor restarts.
func (s *PipelineService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Int("engines", len(s.engines)).
		Msg("Pipeline service starting")

	if s.config.RunOnStartup {
		s.scheduled(ctx)
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Pipeline service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.scheduled(ctx)
		}
	}
}

func (s *PipelineService) scheduled(ctx context.Context) {
	err := s.TryRun(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info().Msg("Skipping scheduled run, previous run still active")
	case err != nil && ctx.Err() == nil:
		s.logger.Error().Err(err).Msg("Scheduled pipeline run failed")
	}
}

// Run waits for any active run to finish and then runs every engine.
func (s *PipelineService) Run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runLocked(ctx)
}

// TryRun runs every engine unless a run is already active, in which case it
// returns ErrRunInProgress immediately.
func (s *PipelineService) TryRun(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrRunInProgress
	}
	defer s.mu.Unlock()
	return s.runLocked(ctx)
}

// runLocked runs the engines in order under one run id. An engine failure
// is logged and the next engine still runs; the first error is returned.
func (s *PipelineService) runLocked(ctx context.Context) error {
	runID := logging.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := s.logger.With().Str("run_id", runID).Logger()

	start := time.Now()
	log.Info().Msg("Pipeline run starting")

	var firstErr error
	for _, e := range s.engines {
		if ctx.Err() != nil {
			break
		}
		if _, err := e.Run(ctx); err != nil {
			log.Error().Err(err).Str("engine", e.Name()).Msg("Engine run failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("engine %s: %w", e.Name(), err)
			}
		}
	}
	if firstErr == nil {
		firstErr = ctx.Err()
	}

	metrics.LastRunTimestamp.SetToCurrentTime()

	log.Info().
		Dur("took", time.Since(start)).
		Bool("ok", firstErr == nil).
		Msg("Pipeline run finished")
	return firstErr
}

// Running reports whether a run currently holds the lock.
func (s *PipelineService) Running() bool {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}

// String implements fmt.Stringer for suture's event log.
func (s *PipelineService) String() string {
	return "pipeline-service"
}
