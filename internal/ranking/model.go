// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package ranking

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"
)

var (
	// ErrDimensionMismatch is returned when a feature vector does not match
	// the model's weight count.
	ErrDimensionMismatch = errors.New("ranking: feature dimension mismatch")

	// ErrModelNotLoaded is returned by a zero LinearModel.
	ErrModelNotLoaded = errors.New("ranking: model has no weights")
)

// Classifier scores a feature vector. Larger values mean "more relevant".
type Classifier interface {
	Classify(features []float64) (float64, error)
}

// LinearModel is a trained linear classifier, w·x + b.
type LinearModel struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// DefaultModel ranks by query clicks first and overall popularity second.
// It is used when no trained model is configured.
func DefaultModel() *LinearModel {
	return &LinearModel{Weights: []float64{1, 0.25}}
}

// LoadLinearModel reads a JSON model file:
//
//	{"weights": [0.83, 0.12], "intercept": -0.05}
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from validated configuration
	if err != nil {
		return nil, fmt.Errorf("read ranking model: %w", err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode ranking model %s: %w", path, err)
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("ranking model %s: %w", path, ErrModelNotLoaded)
	}
	for i, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("ranking model %s: weight %d is not finite", path, i)
		}
	}
	return &m, nil
}

// Classify returns the decision value w·x + b.
func (m *LinearModel) Classify(features []float64) (float64, error) {
	if len(m.Weights) == 0 {
		return 0, ErrModelNotLoaded
	}
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(features), len(m.Weights))
	}

	sum := m.Intercept
	for i, w := range m.Weights {
		sum += w * features[i]
	}
	return sum, nil
}

// Predict returns the class of features: +1 when the decision value is
// positive, -1 otherwise.
func (m *LinearModel) Predict(features []float64) (float64, error) {
	v, err := m.Classify(features)
	if err != nil {
		return 0, err
	}
	if v > 0 {
		return 1, nil
	}
	return -1, nil
}
