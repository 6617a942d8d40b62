// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package similarity

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of two dense vectors.
//
// The result is 0 when either vector has zero magnitude or when the lengths
// differ, and is clamped to [-1, 1]. Element-wise identical non-zero
// vectors score exactly 1.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	return finish(dot, normA, normB)
}

// CosineSparse returns the cosine similarity of two sparse vectors keyed by
// dimension id, with the same zero and clamping rules as Cosine.
func CosineSparse(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Sums run in sorted key order so identical maps produce bit-identical
	// dot product and norms.
	keysA := sortedKeys(a)

	var dot, normA float64
	for _, k := range keysA {
		v := a[k]
		normA += v * v
		if w, ok := b[k]; ok {
			dot += v * w
		}
	}

	var normB float64
	for _, k := range sortedKeys(b) {
		normB += b[k] * b[k]
	}

	return finish(dot, normA, normB)
}

func sortedKeys(v map[string]float64) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// finish divides by sqrt(normA*normB) so that identical inputs, whose dot
// product equals both squared norms bit for bit, land on exactly 1.
func finish(dot, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	if dot == normA && dot == normB {
		return 1
	}

	sim := dot / math.Sqrt(normA*normB)
	switch {
	case math.IsNaN(sim):
		return 0
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}

// Round rounds x to the given number of decimal places. A negative
// precision leaves x unchanged.
func Round(x float64, precision int) float64 {
	if precision < 0 {
		return x
	}
	p := math.Pow(10, float64(precision))
	return math.Round(x*p) / p
}
