// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

/*
Package query builds parameterized SQL fragments for the DuckDB store.

WhereBuilder composes optional filters joined with AND. BatchInsert builds
multi-row INSERT statements so that linkage and vector writes issue one
statement per batch instead of one per row. Values are always bound through
placeholders; only table and column names, which come from code, are
interpolated.
*/
package query
