// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package stages

import (
	"context"
	"fmt"

	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/matrix"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/pipeline"
	"github.com/tomtom215/linkage/internal/similarity"
	"github.com/tomtom215/linkage/internal/svd"
)

// ClickStreamAnalyzer derives query-to-query linkages from the clickstream
// matrix through a cached SVD, then imports the raw click counts for
// ranking. A missing clickstream file leaves the category empty and the
// stored click counts untouched.
type ClickStreamAnalyzer struct {
	path    string
	svd     config.SVDConfig
	score   config.ScoreConfig
	workers int
	store   Store
}

// NewClickStreamAnalyzer creates the stage.
func NewClickStreamAnalyzer(cfg *config.Config, store Store) *ClickStreamAnalyzer {
	return &ClickStreamAnalyzer{
		path:    cfg.Input.ClickstreamPath,
		svd:     cfg.SVD,
		score:   cfg.Similarity.Clickstream,
		workers: cfg.Pipeline.Workers,
		store:   store,
	}
}

func (s *ClickStreamAnalyzer) Name() string { return "clickstream_analyzer" }

// Execute loads the configured clickstream file.
func (s *ClickStreamAnalyzer) Execute(ctx context.Context) pipeline.Result {
	res := pipeline.Begin(s.Name())
	n, err := s.fromFile(ctx)
	return finish(ctx, s.store, res, n, err)
}

// ExecuteInput analyzes a *matrix.SparseMatrix directly. The SVD file cache
// is bypassed because the matrix has no source file to fingerprint against.
func (s *ClickStreamAnalyzer) ExecuteInput(ctx context.Context, input any) pipeline.Result {
	m, ok := input.(*matrix.SparseMatrix)
	if !ok || m == nil {
		return pipeline.Skipped(s.Name())
	}

	res := pipeline.Begin(s.Name())
	n, err := s.analyze(ctx, m, nil)
	return finish(ctx, s.store, res, n, err)
}

func (s *ClickStreamAnalyzer) fromFile(ctx context.Context) (int, error) {
	if err := s.store.DeleteLinkages(ctx, models.CategoryClickstream); err != nil {
		return 0, fmt.Errorf("clear clickstream linkages: %w", err)
	}

	f, err := matrix.OpenInput(s.path)
	if err != nil {
		return 0, err
	}
	m, err := matrix.LoadClickstreamMatrix(f, s.path)
	_ = f.Close() //nolint:errcheck // read-only file
	if err != nil {
		return 0, err
	}

	fingerprint, err := svd.FingerprintFile(s.path)
	if err != nil {
		return 0, err
	}
	return s.analyze(ctx, m, &svd.Header{Source: s.path, Fingerprint: fingerprint})
}

// analyze scores m and imports its click counts. A non-nil header enables
// the reduction cache at svd.output_path.
func (s *ClickStreamAnalyzer) analyze(ctx context.Context, m *matrix.SparseMatrix, header *svd.Header) (int, error) {
	if header == nil {
		if err := s.store.DeleteLinkages(ctx, models.CategoryClickstream); err != nil {
			return 0, fmt.Errorf("clear clickstream linkages: %w", err)
		}
	}

	k := clampRank(ctx, s.Name(), s.svd.Rank, m)
	compute := func() (*svd.Reduction, error) { return svd.Reduce(m, k) }

	var red *svd.Reduction
	var err error
	if header != nil && s.svd.OutputPath != "" {
		cache := svd.Cache{Path: s.svd.OutputPath, Logger: logging.CtxWith(ctx).Str("stage", s.Name()).Logger()}
		want := *header
		want.Rank = k
		red, _, err = cache.GetOrCompute(want, compute)
	} else {
		red, err = compute()
	}
	if err != nil {
		return 0, err
	}

	scorer := similarity.NewScorer(similarity.Config{
		Threshold: s.score.Threshold,
		TopK:      s.score.TopK,
		Workers:   s.workers,
	})
	triples, err := scorer.Score(ctx, reducedVectors(red), nil)
	if err != nil {
		return 0, err
	}
	if err := writeLinkages(ctx, s.store, models.CategoryClickstream, triples); err != nil {
		return 0, err
	}

	if err := s.store.ReplaceClickstream(ctx, matrix.ClickRecords(m)); err != nil {
		return 0, fmt.Errorf("import click counts: %w", err)
	}
	return len(triples), nil
}
