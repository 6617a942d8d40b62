// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package stages implements the pipeline stages and assembles them into the
// recommend and weblog engines.
//
// Preprocess stages turn raw input into stored vectors:
//   - import_metadata: *.json files -> metadata documents
//   - metadata_tfidf: text fields -> tfidf vectors
//   - session_cooccurrence: session log -> session vectors
//   - normalize_features: feature fields -> feature vectors
//
// Process stages turn vectors into linkage triples, each clearing its own
// category first:
//   - abstract_similarity: tfidf -> SVD -> content
//   - feature_similarity: feature -> feature
//   - session_cf: session -> optional SVD -> session
//   - clickstream_analyzer (weblog engine): clickstream matrix -> cached SVD -> clickstream
//
// Every stage refreshes the store when it ends, whatever the outcome.
package stages
