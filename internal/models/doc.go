// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

/*
Package models defines the data structures shared across the linkage pipeline.

It is the leaf package of the module: every other internal package may import
it, and it imports nothing from the module.

Key Components:

  - LinkageTriple: weighted undirected edge between two concepts, keyed by the
    unordered pair
  - Category: namespace a producer writes its triples under (content, feature,
    session, clickstream)
  - MetadataDocument: one imported raw metadata file
  - VectorEntry: one (entity, dimension, value) cell of a persisted feature
    vector
  - ClickRecord: raw query/dataset click count used for ranking

Error Taxonomy:

  - InputMissingError: raw input file or directory is absent
  - EmptyInputError: input exists but yields no usable rows
  - StageExecutionError: unexpected failure inside a stage
  - StoreUnavailableError: the store cannot be reached; fatal for a run

The first three degrade a single stage. StoreUnavailableError aborts the
remaining stages of a phase.
*/
package models
