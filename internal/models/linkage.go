// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package models

import (
	"encoding/json"
	"time"
)

// Category identifies the producer of a set of linkage triples.
// Each category is an independent namespace in the store.
type Category string

const (
	// CategoryContent holds triples from abstract (TF-IDF + SVD) similarity.
	CategoryContent Category = "content"
	// CategoryFeature holds triples from normalized feature similarity.
	CategoryFeature Category = "feature"
	// CategorySession holds triples from session-based collaborative filtering.
	CategorySession Category = "session"
	// CategoryClickstream holds triples from the clickstream SVD analyzer.
	CategoryClickstream Category = "clickstream"
)

// Categories lists every linkage category in pipeline order.
var Categories = []Category{
	CategoryContent,
	CategoryFeature,
	CategorySession,
	CategoryClickstream,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// VectorKind names a persisted family of sparse vectors.
type VectorKind string

const (
	// VectorTFIDF holds per-dataset TF-IDF term weights.
	VectorTFIDF VectorKind = "tfidf"
	// VectorSession holds per-item session co-occurrence counts.
	VectorSession VectorKind = "session"
	// VectorFeature holds per-dataset normalized feature values.
	VectorFeature VectorKind = "feature"
)

// LinkageTriple is a weighted undirected edge between two concepts.
//
// The unordered pair (ConceptA, ConceptB) is the identity of a triple.
// Triples built with NewLinkageTriple always have ConceptA < ConceptB,
// so a symmetric producer emits at most one triple per pair.
type LinkageTriple struct {
	ConceptA string  `json:"concept_A"`
	ConceptB string  `json:"concept_B"`
	Weight   float64 `json:"weight"`
}

// PairKey is the canonical, order-independent key of a concept pair.
type PairKey struct {
	A string
	B string
}

// NewPairKey returns the canonical key for the unordered pair (a, b).
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// NewLinkageTriple builds a triple with the pair in canonical order.
func NewLinkageTriple(a, b string, weight float64) LinkageTriple {
	k := NewPairKey(a, b)
	return LinkageTriple{ConceptA: k.A, ConceptB: k.B, Weight: weight}
}

// Key returns the canonical pair key of the triple.
func (t LinkageTriple) Key() PairKey {
	return NewPairKey(t.ConceptA, t.ConceptB)
}

// MetadataDocument is one raw metadata file imported into the store.
type MetadataDocument struct {
	ID         string          `json:"id"`
	SourceFile string          `json:"source_file"`
	Body       json.RawMessage `json:"body"`
	ImportedAt time.Time       `json:"imported_at"`
}

// VectorEntry is a single non-zero cell of a persisted sparse vector.
type VectorEntry struct {
	Entity    string  `json:"entity"`
	Dimension string  `json:"dimension"`
	Value     float64 `json:"value"`
}

// ClickRecord is the raw click count of a dataset for a search query.
type ClickRecord struct {
	Query   string  `json:"query"`
	Dataset string  `json:"dataset"`
	Clicks  float64 `json:"clicks"`
}
