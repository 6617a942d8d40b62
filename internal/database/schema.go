// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

type tableNames struct {
	metadata    string
	vectors     string
	linkages    string
	clickstream string
}

func newTableNames(index string) tableNames {
	return tableNames{
		metadata:    index + "_metadata_documents",
		vectors:     index + "_feature_vectors",
		linkages:    index + "_linkages",
		clickstream: index + "_clickstream",
	}
}

// createSchema creates the store tables when they do not exist.
//
// Bodies are stored as VARCHAR rather than JSON because extension loading is
// disabled. The vector and clickstream tables are replaced wholesale on every
// import, so they carry no primary key.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR PRIMARY KEY,
			source_file VARCHAR NOT NULL,
			body VARCHAR NOT NULL,
			imported_at TIMESTAMP NOT NULL
		)`, db.tables.metadata),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			kind VARCHAR NOT NULL,
			entity VARCHAR NOT NULL,
			dim VARCHAR NOT NULL,
			value DOUBLE NOT NULL
		)`, db.tables.vectors),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_kind ON %s(kind)`, db.tables.vectors, db.tables.vectors),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			category VARCHAR NOT NULL,
			concept_a VARCHAR NOT NULL,
			concept_b VARCHAR NOT NULL,
			weight DOUBLE NOT NULL,
			PRIMARY KEY (category, concept_a, concept_b)
		)`, db.tables.linkages),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			term VARCHAR NOT NULL,
			dataset VARCHAR NOT NULL,
			clicks DOUBLE NOT NULL
		)`, db.tables.clickstream),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_term ON %s(term)`, db.tables.clickstream, db.tables.clickstream),
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
