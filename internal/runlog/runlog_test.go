// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package runlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/pipeline"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(config.RunLogConfig{Path: path, Retention: time.Hour})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func report(engine string, phase pipeline.Phase, started time.Time, results ...pipeline.Result) pipeline.PhaseReport {
	return pipeline.PhaseReport{
		Engine:     engine,
		Phase:      phase,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Results:    results,
	}
}

func TestNewPhaseRecord(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewPhaseRecord("run-1", report("recommend", pipeline.PhaseProcess, started,
		pipeline.Result{Stage: "ok", Status: pipeline.StatusSuccess, StartedAt: started, FinishedAt: started.Add(1500 * time.Millisecond), Items: 4},
		pipeline.Result{Stage: "bad", Status: pipeline.StatusFailed, Err: &models.StageExecutionError{Stage: "bad", Err: errors.New("boom")}},
	))

	if rec.RunID != "run-1" || rec.Engine != "recommend" || rec.Phase != "process" {
		t.Errorf("record header = %+v", rec)
	}
	if len(rec.Stages) != 2 {
		t.Fatalf("Stages = %d, want 2", len(rec.Stages))
	}
	if rec.Stages[0].ElapsedMS != 1500 || rec.Stages[0].Items != 4 || rec.Stages[0].Error != "" {
		t.Errorf("stage 0 = %+v", rec.Stages[0])
	}
	if rec.Stages[1].Error == "" {
		t.Error("failed stage should carry its error text")
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	older := []pipeline.PhaseReport{
		report("recommend", pipeline.PhasePreprocess, base),
		report("recommend", pipeline.PhaseProcess, base.Add(2*time.Second),
			pipeline.Result{Stage: "abstract_similarity", Status: pipeline.StatusFailed, Err: errors.New("x")}),
	}
	for _, r := range older {
		if err := s.Record(ctx, "run-a", r); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := s.Record(ctx, "run-b", report("weblog", pipeline.PhaseProcess, base.Add(time.Minute))); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	runs, err := s.Recent(0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Recent() = %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-b" || runs[1].ID != "run-a" {
		t.Errorf("Recent() order = %s, %s; want run-b, run-a", runs[0].ID, runs[1].ID)
	}

	a := runs[1]
	if len(a.Phases) != 2 || a.Phases[0].Phase != "preprocess" {
		t.Errorf("run-a phases = %+v", a.Phases)
	}
	if a.Failed != 1 {
		t.Errorf("run-a Failed = %d, want 1", a.Failed)
	}
	if !a.StartedAt.Equal(base.UTC()) {
		t.Errorf("run-a StartedAt = %v, want %v", a.StartedAt, base.UTC())
	}

	limited, err := s.Recent(1)
	if err != nil {
		t.Fatalf("Recent(1) error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "run-b" {
		t.Errorf("Recent(1) = %+v", limited)
	}
}

func TestStore_RecordOverwritesSamePhase(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()
	now := time.Now()

	_ = s.Record(ctx, "run-a", report("recommend", pipeline.PhaseProcess, now))
	_ = s.Record(ctx, "run-a", report("recommend", pipeline.PhaseProcess, now,
		pipeline.Result{Stage: "session_cf", Status: pipeline.StatusSuccess}))

	run, ok, err := s.Get("run-a")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if len(run.Phases) != 1 || len(run.Phases[0].Stages) != 1 {
		t.Errorf("Get() phases = %+v, want one phase with one stage", run.Phases)
	}

	if _, ok, _ := s.Get("missing"); ok {
		t.Error("Get(missing) should report not found")
	}
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(config.RunLogConfig{Path: dir, Retention: time.Hour})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Record(context.Background(), "run-a", report("weblog", pipeline.PhaseProcess, time.Now())); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := openTestStore(t, dir)
	runs, err := reopened.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-a" {
		t.Errorf("Recent() after reopen = %+v", runs)
	}
}

func TestStore_Closed(t *testing.T) {
	s, err := Open(config.RunLogConfig{Retention: time.Hour})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = s.Close()

	if err := s.Record(context.Background(), "r", report("recommend", pipeline.PhaseOutput, time.Now())); !errors.Is(err, ErrClosed) {
		t.Errorf("Record() after Close error = %v, want ErrClosed", err)
	}
	if _, err := s.Recent(1); !errors.Is(err, ErrClosed) {
		t.Errorf("Recent() after Close error = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStore_EngineRecorder(t *testing.T) {
	s := openTestStore(t, "")
	engine := pipeline.NewEngine("recommend", nil, nil, zerolog.Nop(), pipeline.WithRecorder(s))

	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	runs, err := s.Recent(0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(runs) != 1 || len(runs[0].Phases) != 3 {
		t.Fatalf("Recent() = %+v, want one run with three phases", runs)
	}
}
