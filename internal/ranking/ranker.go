// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ClickSource provides the click evidence a ranking is built from.
// *database.DB implements it.
type ClickSource interface {
	// ClickCounts returns dataset -> clicks for one query.
	ClickCounts(ctx context.Context, query string) (map[string]float64, error)
	// DatasetPopularity returns dataset -> clicks over all queries.
	DatasetPopularity(ctx context.Context, datasets []string) (map[string]float64, error)
}

// Ranked is one dataset in a ranking.
type Ranked struct {
	Dataset    string  `json:"dataset"`
	Clicks     float64 `json:"clicks"`
	Popularity float64 `json:"popularity"`
	Score      float64 `json:"score"`
}

// Ranker orders candidate datasets for a query.
type Ranker struct {
	classifier Classifier
	clicks     ClickSource
}

// NewRanker creates a ranker. A nil classifier selects DefaultModel.
func NewRanker(classifier Classifier, clicks ClickSource) *Ranker {
	if classifier == nil {
		classifier = DefaultModel()
	}
	return &Ranker{classifier: classifier, clicks: clicks}
}

// Features returns the feature vector of one dataset:
// [log1p(clicks for the query), log1p(total clicks)].
func Features(clicks, popularity float64) []float64 {
	return []float64{math.Log1p(clicks), math.Log1p(popularity)}
}

// Rank scores every dataset and returns them best first. Blank and
// repeated dataset ids are dropped; equal scores keep their input order.
func (r *Ranker) Rank(ctx context.Context, query string, datasets []string) ([]Ranked, error) {
	ids := uniqueIDs(datasets)
	if len(ids) == 0 {
		return []Ranked{}, nil
	}

	clicks, err := r.clicks.ClickCounts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("click counts: %w", err)
	}
	popularity, err := r.clicks.DatasetPopularity(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("dataset popularity: %w", err)
	}

	out := make([]Ranked, len(ids))
	for i, id := range ids {
		c, p := clicks[id], popularity[id]
		score, err := r.classifier.Classify(Features(c, p))
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", id, err)
		}
		out[i] = Ranked{Dataset: id, Clicks: c, Popularity: p, Score: score}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	return out, nil
}

func uniqueIDs(datasets []string) []string {
	seen := make(map[string]struct{}, len(datasets))
	out := make([]string, 0, len(datasets))
	for _, d := range datasets {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
