// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package ranking orders search results with a linear classifier over
// clickstream evidence.
//
// A dataset's features are its clicks for the query and its total clicks,
// both log1p-scaled. Datasets are sorted by decision value, which for a
// linear model is the same order the pairwise test
// Classify(a) - Classify(b) > 0 produces.
package ranking
