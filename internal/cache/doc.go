// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package cache holds in-memory indexes derived from the store.
//
// Trie is the autocomplete index. The store rebuilds it from linkage
// concepts and metadata ids on every refresh, weighting each concept by its
// total linkage weight so well-connected concepts are suggested first.
package cache
