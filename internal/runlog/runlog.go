// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package runlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/pipeline"
)

const keyPrefix = "run/"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("run log is closed")

// StageRecord is the stored form of a pipeline.Result.
type StageRecord struct {
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	Items      int       `json:"items"`
	Error      string    `json:"error,omitempty"`
}

// PhaseRecord is the stored form of a pipeline.PhaseReport.
type PhaseRecord struct {
	RunID      string        `json:"run_id"`
	Engine     string        `json:"engine"`
	Phase      string        `json:"phase"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Aborted    bool          `json:"aborted"`
	Stages     []StageRecord `json:"stages"`
}

// Run groups the phase records that share a run id.
type Run struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Failed     int           `json:"failed"`
	Aborted    bool          `json:"aborted"`
	Phases     []PhaseRecord `json:"phases"`
}

// NewPhaseRecord converts a report for storage. Errors become strings.
//
//nolint:gocritic // report passed by value mirrors the Recorder signature
func NewPhaseRecord(runID string, report pipeline.PhaseReport) PhaseRecord {
	rec := PhaseRecord{
		RunID:      runID,
		Engine:     report.Engine,
		Phase:      string(report.Phase),
		StartedAt:  report.StartedAt.UTC(),
		FinishedAt: report.FinishedAt.UTC(),
		Aborted:    report.Aborted,
		Stages:     make([]StageRecord, len(report.Results)),
	}
	for i, r := range report.Results {
		s := StageRecord{
			Stage:      r.Stage,
			Status:     string(r.Status),
			StartedAt:  r.StartedAt.UTC(),
			FinishedAt: r.FinishedAt.UTC(),
			ElapsedMS:  r.Elapsed().Milliseconds(),
			Items:      r.Items,
		}
		if r.Err != nil {
			s.Error = r.Err.Error()
		}
		rec.Stages[i] = s
	}
	return rec
}

// Store is a badger-backed run history.
type Store struct {
	db        *badger.DB
	retention time.Duration
}

// Open opens the run log at cfg.Path, or in memory when the path is empty.
//
//nolint:gocritic // config passed by value is intentional, the store keeps only what it needs
func Open(cfg config.RunLogConfig) (*Store, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create run log directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Dur("retention", cfg.Retention).
		Msg("Run log opened")

	return &Store{db: db, retention: cfg.Retention}, nil
}

func recordKey(runID, engine, phase string) []byte {
	return []byte(keyPrefix + runID + "/" + engine + "/" + phase)
}

// Record stores one phase report. It implements pipeline.Recorder.
//
//nolint:gocritic // report passed by value is part of the Recorder interface
func (s *Store) Record(ctx context.Context, runID string, report pipeline.PhaseReport) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	if runID == "" {
		runID = logging.NewRunID()
	}

	data, err := json.Marshal(NewPhaseRecord(runID, report))
	if err != nil {
		return fmt.Errorf("marshal phase record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(recordKey(runID, report.Engine, string(report.Phase)), data)
		if s.retention > 0 {
			entry = entry.WithTTL(s.retention)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("store phase record: %w", err)
	}

	logging.CtxWith(ctx).Str("run_id", runID).Logger().Debug().
		Str("engine", report.Engine).
		Str("phase", string(report.Phase)).
		Msg("Phase report recorded")
	return nil
}

// Get returns every phase record of one run, or false when the run is
// unknown or expired.
func (s *Store) Get(runID string) (Run, bool, error) {
	runs, err := s.collect([]byte(keyPrefix + runID + "/"))
	if err != nil {
		return Run{}, false, err
	}
	if len(runs) == 0 {
		return Run{}, false, nil
	}
	return runs[0], true, nil
}

// Recent returns up to limit runs, newest first. A limit of zero or less
// returns every stored run.
func (s *Store) Recent(limit int) ([]Run, error) {
	runs, err := s.collect([]byte(keyPrefix))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *Store) collect(prefix []byte) ([]Run, error) {
	if s.db.IsClosed() {
		return nil, ErrClosed
	}

	byID := make(map[string]*Run)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec PhaseRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("Skipping unreadable run record")
				continue
			}
			run, ok := byID[rec.RunID]
			if !ok {
				run = &Run{ID: rec.RunID, StartedAt: rec.StartedAt, FinishedAt: rec.FinishedAt}
				byID[rec.RunID] = run
			}
			run.add(rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}

	runs := make([]Run, 0, len(byID))
	for _, r := range byID {
		sort.Slice(r.Phases, func(i, j int) bool {
			return r.Phases[i].StartedAt.Before(r.Phases[j].StartedAt)
		})
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	return runs, nil
}

func (r *Run) add(rec PhaseRecord) {
	r.Phases = append(r.Phases, rec)
	if rec.StartedAt.Before(r.StartedAt) {
		r.StartedAt = rec.StartedAt
	}
	if rec.FinishedAt.After(r.FinishedAt) {
		r.FinishedAt = rec.FinishedAt
	}
	r.Aborted = r.Aborted || rec.Aborted
	for _, st := range rec.Stages {
		if st.Status == string(pipeline.StatusFailed) {
			r.Failed++
		}
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}
