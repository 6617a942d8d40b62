// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package database is the DuckDB-backed linkage store shared by every
// pipeline stage.
//
// # Tables
//
// Each table name carries the configured index name as a prefix
// (store.index_name), so "mudrod" yields mudrod_linkages and so on:
//   - <index>_metadata_documents: one row per imported metadata file
//   - <index>_feature_vectors: sparse vectors keyed by kind (tfidf, session, feature)
//   - <index>_linkages: (category, concept_a, concept_b) -> weight
//   - <index>_clickstream: raw query -> dataset click counts
//
// # Writes
//
// Multi-row writes go through query.BatchInsert in store.batch_size chunks
// inside one transaction. Linkage writes use INSERT OR REPLACE on the
// canonical pair, so re-running a stage never duplicates a pair. Refresh
// issues CHECKPOINT and rebuilds the in-memory autocomplete trie.
//
// # Availability
//
// Every operation runs through a gobreaker circuit breaker. Connection-class
// failures count toward opening it; statement errors do not. When the
// breaker is open, or the connection is gone, operations return
// *models.StoreUnavailableError, which aborts the running pipeline phase.
//
// # Thread Safety
//
// DB is safe for concurrent use. The pipeline itself serializes runs, so
// concurrent writers to the same category do not occur in practice.
package database
