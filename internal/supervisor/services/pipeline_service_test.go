// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/pipeline"
)

type fakeEngine struct {
	name  string
	err   error
	block chan struct{}

	mu     sync.Mutex
	runs   int
	runIDs []string
	order  *[]string
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Run(ctx context.Context) ([]pipeline.PhaseReport, error) {
	f.mu.Lock()
	f.runs++
	f.runIDs = append(f.runIDs, logging.RunIDFromContext(ctx))
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, f.err
}

func (f *fakeEngine) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func TestPipelineService_RunOrderAndRunID(t *testing.T) {
	var order []string
	recommend := &fakeEngine{name: "recommend", order: &order}
	weblog := &fakeEngine{name: "weblog", order: &order}
	svc := NewPipelineService([]Engine{recommend, weblog}, PipelineServiceConfig{}, zerolog.Nop())

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(order) != 2 || order[0] != "recommend" || order[1] != "weblog" {
		t.Errorf("engine order = %v, want [recommend weblog]", order)
	}
	if recommend.runIDs[0] == "" || recommend.runIDs[0] != weblog.runIDs[0] {
		t.Errorf("run ids = %q, %q; want one shared id", recommend.runIDs[0], weblog.runIDs[0])
	}
}

func TestPipelineService_EngineFailureContinues(t *testing.T) {
	boom := errors.New("store unavailable")
	recommend := &fakeEngine{name: "recommend", err: boom}
	weblog := &fakeEngine{name: "weblog"}
	svc := NewPipelineService([]Engine{recommend, weblog}, PipelineServiceConfig{}, zerolog.Nop())

	err := svc.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
	if weblog.count() != 1 {
		t.Error("weblog should still run after recommend fails")
	}
}

func TestPipelineService_TryRunRejectsOverlap(t *testing.T) {
	block := make(chan struct{})
	eng := &fakeEngine{name: "recommend", block: block}
	svc := NewPipelineService([]Engine{eng}, PipelineServiceConfig{}, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for eng.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !svc.Running() {
		t.Fatal("Running() = false during a run")
	}
	if err := svc.TryRun(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("TryRun() error = %v, want ErrRunInProgress", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if svc.Running() {
		t.Error("Running() = true after the run finished")
	}
	if eng.count() != 1 {
		t.Errorf("engine ran %d times, want 1", eng.count())
	}
}

func TestPipelineService_ServeSchedule(t *testing.T) {
	eng := &fakeEngine{name: "recommend"}
	svc := NewPipelineService([]Engine{eng}, PipelineServiceConfig{
		RunOnStartup: true,
		Interval:     20 * time.Millisecond,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want deadline exceeded", err)
	}
	if eng.count() < 2 {
		t.Errorf("engine ran %d times, want startup run plus scheduled runs", eng.count())
	}
}

func TestPipelineService_ServeNoSchedule(t *testing.T) {
	eng := &fakeEngine{name: "recommend"}
	svc := NewPipelineService([]Engine{eng}, PipelineServiceConfig{}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_ = svc.Serve(ctx)
	if eng.count() != 0 {
		t.Errorf("engine ran %d times without startup run or schedule, want 0", eng.count())
	}
	if svc.String() != "pipeline-service" {
		t.Errorf("String() = %q", svc.String())
	}
}
