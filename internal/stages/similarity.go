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

// scoring describes one linkage producer: where its vectors come from,
// how they are reduced and scored, and which category it writes.
type scoring struct {
	kind     models.VectorKind
	category models.Category
	policy   matrix.Policy

	threshold float64
	topK      int
	// rank > 0 reduces the vectors with a rank-k SVD before scoring.
	rank int
	// sharedOnly restricts candidates to rows sharing a non-zero column.
	sharedOnly bool
	workers    int
}

// SimilarityStage turns stored vectors of one kind into linkage triples of
// one category. The three recommend-engine producers differ only in their
// scoring settings.
type SimilarityStage struct {
	name    string
	scoring scoring
	store   Store
}

// NewAbstractBasedSimilarity scores TF-IDF vectors, reduced by SVD when
// similarity.content.svd_rank is positive, into the content category.
//
//nolint:gocritic // config passed by value so the stage keeps its own copy
func NewAbstractBasedSimilarity(cfg config.ContentSimilarityConfig, workers int, store Store) *SimilarityStage {
	return &SimilarityStage{
		name: "abstract_similarity",
		scoring: scoring{
			kind:      models.VectorTFIDF,
			category:  models.CategoryContent,
			policy:    matrix.Overwrite,
			threshold: cfg.Threshold,
			topK:      cfg.TopK,
			rank:      cfg.SVDRank,
			workers:   workers,
		},
		store: store,
	}
}

// NewFeatureBasedSimilarity scores normalized feature vectors into the
// feature category.
func NewFeatureBasedSimilarity(cfg config.ScoreConfig, workers int, store Store) *SimilarityStage {
	return &SimilarityStage{
		name: "feature_similarity",
		scoring: scoring{
			kind:      models.VectorFeature,
			category:  models.CategoryFeature,
			policy:    matrix.Overwrite,
			threshold: cfg.Threshold,
			topK:      cfg.TopK,
			workers:   workers,
		},
		store: store,
	}
}

// NewSessionBasedCF scores item-by-session co-occurrence vectors into the
// session category.
//
//nolint:gocritic // config passed by value so the stage keeps its own copy
func NewSessionBasedCF(cfg config.SessionSimilarityConfig, workers int, store Store) *SimilarityStage {
	rank := 0
	if cfg.UseSVD {
		rank = cfg.SVDRank
	}
	return &SimilarityStage{
		name: "session_cf",
		scoring: scoring{
			kind:       models.VectorSession,
			category:   models.CategorySession,
			policy:     matrix.Accumulate,
			threshold:  cfg.Threshold,
			topK:       cfg.TopK,
			rank:       rank,
			sharedOnly: cfg.SharedOnly,
			workers:    workers,
		},
		store: store,
	}
}

func (s *SimilarityStage) Name() string { return s.name }

// Category returns the linkage category the stage writes.
func (s *SimilarityStage) Category() models.Category { return s.scoring.category }

func (s *SimilarityStage) Execute(ctx context.Context) pipeline.Result {
	res := pipeline.Begin(s.Name())
	n, err := s.run(ctx)
	return finish(ctx, s.store, res, n, err)
}

func (s *SimilarityStage) ExecuteInput(context.Context, any) pipeline.Result {
	return pipeline.Skipped(s.Name())
}

func (s *SimilarityStage) run(ctx context.Context) (int, error) {
	if err := s.store.DeleteLinkages(ctx, s.scoring.category); err != nil {
		return 0, fmt.Errorf("clear %s linkages: %w", s.scoring.category, err)
	}

	entries, err := s.store.LoadVectors(ctx, s.scoring.kind)
	if err != nil {
		return 0, fmt.Errorf("load %s vectors: %w", s.scoring.kind, err)
	}
	m, err := matrix.FromEntries(string(s.scoring.kind)+" vectors", s.scoring.policy, entries)
	if err != nil {
		return 0, err
	}

	triples, err := s.scoring.score(ctx, s.name, m)
	if err != nil {
		return 0, err
	}
	if err := writeLinkages(ctx, s.store, s.scoring.category, triples); err != nil {
		return 0, err
	}
	return len(triples), nil
}

// score reduces m when a rank is set and scores its rows.
func (sc scoring) score(ctx context.Context, stage string, m *matrix.SparseMatrix) ([]models.LinkageTriple, error) {
	vectors := similarity.FromMatrix(m)

	if sc.rank > 0 {
		k := clampRank(ctx, stage, sc.rank, m)
		red, err := svd.Reduce(m, k)
		if err != nil {
			return nil, err
		}
		vectors = reducedVectors(red)
	}

	var neighborhood similarity.Neighborhood
	if sc.sharedOnly {
		neighborhood = similarity.SharedColumns(m, vectors)
	}

	scorer := similarity.NewScorer(similarity.Config{
		Threshold: sc.threshold,
		TopK:      sc.topK,
		Workers:   sc.workers,
	})
	return scorer.Score(ctx, vectors, neighborhood)
}

// clampRank bounds the configured rank by the matrix shape, warning when
// the configured value was too large.
func clampRank(ctx context.Context, stage string, rank int, m *matrix.SparseMatrix) int {
	k := svd.ClampRank(rank, m.NumRows(), m.NumCols())
	if k != rank {
		logging.Ctx(ctx).Warn().
			Str("stage", stage).
			Int("configured", rank).
			Int("rank", k).
			Int("rows", m.NumRows()).
			Int("cols", m.NumCols()).
			Msg("SVD rank exceeds matrix dimensions, clamping")
	}
	return k
}

func reducedVectors(r *svd.Reduction) []similarity.Vector {
	out := make([]similarity.Vector, len(r.Vectors))
	for i, v := range r.Vectors {
		out[i] = similarity.Vector{ID: v.ID, Values: v.Values}
	}
	return out
}
