// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package similarity scores entity pairs and emits linkage triples.
//
// A Scorer takes a set of dense vectors (SVD-reduced rows or raw feature
// rows), computes cosine similarity for every candidate pair, prunes by
// threshold and top-K, and returns at most one triple per unordered pair.
// Scoring is partitioned over row ranges and merged by pair key.
package similarity

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/linkage/internal/matrix"
	"github.com/tomtom215/linkage/internal/metrics"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/partition"
)

// DefaultPrecision is the number of decimal places weights are rounded to.
const DefaultPrecision = 6

// Vector is a dense vector associated with an entity id.
type Vector struct {
	ID     string
	Values []float64
}

// Neighborhood returns, for the vector at index i, the indexes j > i that may
// be paired with it. A nil Neighborhood pairs every vector with every other.
type Neighborhood func(i int) []int

// Config controls pruning and parallelism.
type Config struct {
	// Threshold is the exclusive lower bound on emitted scores.
	// Default: 0 (emit every positive score)
	Threshold float64

	// TopK keeps only the K best neighbors per entity. A pair survives when it
	// is in the top K of either endpoint. Zero disables top-K pruning.
	// Default: 0
	TopK int

	// Precision is the number of decimal places weights are rounded to before
	// thresholding. Zero selects DefaultPrecision; negative disables rounding.
	// Default: 6
	Precision int

	// Workers bounds the worker pool. Zero uses runtime.NumCPU().
	Workers int
}

// Scorer computes pairwise cosine similarity with pruning.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer.
//
//nolint:gocritic // config passed by value is intentional, the scorer keeps its own copy
func NewScorer(cfg Config) *Scorer {
	if cfg.Precision == 0 {
		cfg.Precision = DefaultPrecision
	}
	return &Scorer{config: cfg}
}

type scoredPair struct {
	i, j  int
	score float64
}

// Score returns a triple for every candidate pair scoring above the
// threshold, after top-K pruning. Output order is unspecified.
func (s *Scorer) Score(ctx context.Context, vectors []Vector, neighborhood Neighborhood) ([]models.LinkageTriple, error) {
	n := len(vectors)
	if n < 2 {
		return nil, nil
	}

	dim := len(vectors[0].Values)
	for _, v := range vectors {
		if len(v.Values) != dim {
			return nil, fmt.Errorf("vector %s has %d dimensions, want %d", v.ID, len(v.Values), dim)
		}
	}

	pairs, err := partition.Collect(ctx, n, s.config.Workers, func(ctx context.Context, r partition.Range) ([]scoredPair, error) {
		var out []scoredPair
		scored := 0
		for i := r.Lo; i < r.Hi; i++ {
			if partition.Cancelled(ctx) {
				return nil, ctx.Err()
			}
			for _, j := range s.candidates(i, n, neighborhood) {
				if vectors[i].ID == vectors[j].ID {
					continue
				}
				scored++
				score := Round(Cosine(vectors[i].Values, vectors[j].Values), s.config.Precision)
				if score > s.config.Threshold {
					out = append(out, scoredPair{i: i, j: j, score: score})
				}
			}
		}
		metrics.PairsScored.Add(float64(scored))
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	if s.config.TopK > 0 {
		pairs = topK(pairs, n, s.config.TopK)
	}

	return toTriples(vectors, pairs), nil
}

func (s *Scorer) candidates(i, n int, neighborhood Neighborhood) []int {
	if neighborhood != nil {
		return neighborhood(i)
	}
	out := make([]int, 0, n-i-1)
	for j := i + 1; j < n; j++ {
		out = append(out, j)
	}
	return out
}

// topK keeps the pairs that rank in the top k of at least one endpoint.
// Ties are broken by the partner index so the result is deterministic.
func topK(pairs []scoredPair, n, k int) []scoredPair {
	perEntity := make([][]int, n)
	for idx, p := range pairs {
		perEntity[p.i] = append(perEntity[p.i], idx)
		perEntity[p.j] = append(perEntity[p.j], idx)
	}

	keep := make([]bool, len(pairs))
	for e, list := range perEntity {
		partner := func(idx int) int {
			if pairs[idx].i == e {
				return pairs[idx].j
			}
			return pairs[idx].i
		}
		sort.Slice(list, func(a, b int) bool {
			pa, pb := pairs[list[a]], pairs[list[b]]
			if pa.score != pb.score {
				return pa.score > pb.score
			}
			return partner(list[a]) < partner(list[b])
		})
		if len(list) > k {
			list = list[:k]
		}
		for _, idx := range list {
			keep[idx] = true
		}
	}

	out := pairs[:0]
	for idx, p := range pairs {
		if keep[idx] {
			out = append(out, p)
		}
	}
	return out
}

// toTriples converts pairs to triples, keeping the highest score when
// duplicate entity ids map two pairs onto the same key.
func toTriples(vectors []Vector, pairs []scoredPair) []models.LinkageTriple {
	byKey := make(map[models.PairKey]int, len(pairs))
	out := make([]models.LinkageTriple, 0, len(pairs))

	for _, p := range pairs {
		t := models.NewLinkageTriple(vectors[p.i].ID, vectors[p.j].ID, p.score)
		if idx, ok := byKey[t.Key()]; ok {
			if t.Weight > out[idx].Weight {
				out[idx].Weight = t.Weight
			}
			continue
		}
		byKey[t.Key()] = len(out)
		out = append(out, t)
	}
	return out
}

// SharedColumns restricts candidates to pairs of rows that have a non-zero
// value in at least one common column of m. vectors must be in the same
// order as ids passed to the scorer; ids missing from m get no candidates.
func SharedColumns(m *matrix.SparseMatrix, vectors []Vector) Neighborhood {
	index := make(map[string]int, len(vectors))
	for i, v := range vectors {
		index[v.ID] = i
	}

	return func(i int) []int {
		row := m.Row(vectors[i].ID)
		if len(row) == 0 {
			return nil
		}

		seen := make(map[int]struct{})
		for col := range row {
			for _, other := range m.RowsWithColumn(col) {
				j, ok := index[other]
				if !ok || j <= i {
					continue
				}
				seen[j] = struct{}{}
			}
		}

		out := make([]int, 0, len(seen))
		for j := range seen {
			out = append(out, j)
		}
		sort.Ints(out)
		return out
	}
}

// FromMatrix returns every row of m as a dense vector in column order.
func FromMatrix(m *matrix.SparseMatrix) []Vector {
	out := make([]Vector, m.NumRows())
	for i, id := range m.Rows() {
		out[i] = Vector{ID: id, Values: m.DenseRow(id)}
	}
	return out
}
