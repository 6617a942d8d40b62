// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package svd reduces sparse matrices to rank-k latent vectors.
//
// Reduce factorizes A = U S Vᵀ with gonum's thin SVD and projects every row
// onto the top k left singular vectors scaled by the singular values
// (row i -> U_k[i,:] * S_k), the usual latent semantic reduction.
//
// Singular values come back in descending order. Ties keep gonum's
// ordering. Each singular vector pair is sign-normalized so that the
// largest-magnitude entry of u_j is positive (first index wins on equal
// magnitude), which makes the reduced vectors deterministic for a fixed
// gonum version regardless of the sign LAPACK picks.
package svd

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/linkage/internal/matrix"
	"github.com/tomtom215/linkage/internal/metrics"
)

var (
	// ErrInvalidRank is returned when k is outside [1, min(rows, cols)].
	ErrInvalidRank = errors.New("svd: invalid rank")

	// ErrFactorization is returned when gonum fails to converge.
	ErrFactorization = errors.New("svd: factorization failed")

	// ErrNoBasis is returned by Reconstruct on a reduction loaded from a
	// cache file, which only stores the reduced rows.
	ErrNoBasis = errors.New("svd: right singular vectors not available")
)

// ReducedVector is the rank-k latent representation of one row entity.
type ReducedVector struct {
	ID     string
	Values []float64
}

// Reduction is the result of one truncated decomposition.
// All vectors share the same rank and basis.
type Reduction struct {
	Rank     int
	Singular []float64
	Vectors  []ReducedVector

	// Present only for freshly computed reductions.
	cols []string
	vk   *mat.Dense
}

// ClampRank bounds k to [1, min(rows, cols)].
func ClampRank(k, rows, cols int) int {
	limit := rows
	if cols < limit {
		limit = cols
	}
	if k > limit {
		k = limit
	}
	if k < 1 {
		k = 1
	}
	return k
}

// Reduce computes the rank-k truncated SVD of m.
func Reduce(m *matrix.SparseMatrix, k int) (*Reduction, error) {
	rows, cols := m.NumRows(), m.NumCols()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: empty %dx%d matrix", ErrInvalidRank, rows, cols)
	}
	if k < 1 || k > rows || k > cols {
		return nil, fmt.Errorf("%w: k=%d for %dx%d matrix", ErrInvalidRank, k, rows, cols)
	}

	start := time.Now()
	defer func() {
		metrics.SVDDuration.Observe(time.Since(start).Seconds())
	}()

	var svd mat.SVD
	if !svd.Factorize(m.Dense(), mat.SVDThin) {
		return nil, ErrFactorization
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	uk := mat.DenseCopyOf(u.Slice(0, rows, 0, k))
	vk := mat.DenseCopyOf(v.Slice(0, cols, 0, k))
	normalizeSigns(uk, vk)

	sk := make([]float64, k)
	copy(sk, values[:k])

	vectors := make([]ReducedVector, rows)
	for i, id := range m.Rows() {
		vec := make([]float64, k)
		for j := 0; j < k; j++ {
			vec[j] = uk.At(i, j) * sk[j]
		}
		vectors[i] = ReducedVector{ID: id, Values: vec}
	}

	return &Reduction{
		Rank:     k,
		Singular: sk,
		Vectors:  vectors,
		cols:     append([]string(nil), m.Cols()...),
		vk:       vk,
	}, nil
}

// normalizeSigns flips each (u_j, v_j) pair so that the largest-magnitude
// entry of u_j is positive.
func normalizeSigns(uk, vk *mat.Dense) {
	rows, k := uk.Dims()
	vRows, _ := vk.Dims()

	for j := 0; j < k; j++ {
		pivot := 0
		best := -1.0
		for i := 0; i < rows; i++ {
			if a := math.Abs(uk.At(i, j)); a > best {
				best = a
				pivot = i
			}
		}
		if uk.At(pivot, j) >= 0 {
			continue
		}
		for i := 0; i < rows; i++ {
			uk.Set(i, j, -uk.At(i, j))
		}
		for i := 0; i < vRows; i++ {
			vk.Set(i, j, -vk.At(i, j))
		}
	}
}

// Columns returns the column ids of the decomposed matrix, or nil for a
// reduction loaded from cache.
func (r *Reduction) Columns() []string {
	return r.cols
}

// Vector returns the reduced vector for id.
func (r *Reduction) Vector(id string) ([]float64, bool) {
	for _, v := range r.Vectors {
		if v.ID == id {
			return v.Values, true
		}
	}
	return nil, false
}

// Reconstruct returns U_k S_k V_kᵀ, rows and columns in the original order.
func (r *Reduction) Reconstruct() (*mat.Dense, error) {
	if r.vk == nil {
		return nil, ErrNoBasis
	}

	us := mat.NewDense(len(r.Vectors), r.Rank, nil)
	for i, v := range r.Vectors {
		us.SetRow(i, v.Values)
	}

	var out mat.Dense
	out.Mul(us, r.vk.T())
	return &out, nil
}
