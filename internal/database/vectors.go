// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package database

import (
	"context"
	"database/sql"

	"github.com/tomtom215/linkage/internal/database/query"
	"github.com/tomtom215/linkage/internal/models"
)

// ReplaceVectors atomically swaps every vector of kind for entries.
func (db *DB) ReplaceVectors(ctx context.Context, kind models.VectorKind, entries []models.VectorEntry) error {
	return db.run(ctx, "replace_vectors", func(ctx context.Context) error {
		return db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+db.tables.vectors+" WHERE kind = ?", string(kind)); err != nil {
				return err
			}
			bi := query.NewBatchInsert("INSERT INTO "+db.tables.vectors, "kind", "entity", "dim", "value")
			return db.writeRows(ctx, tx, "feature_vectors", bi, len(entries), func(i int) []interface{} {
				e := entries[i]
				return []interface{}{string(kind), e.Entity, e.Dimension, e.Value}
			})
		})
	})
}

// LoadVectors returns every vector entry of kind ordered by entity and
// dimension. An empty result is not an error.
func (db *DB) LoadVectors(ctx context.Context, kind models.VectorKind) ([]models.VectorEntry, error) {
	var entries []models.VectorEntry
	err := db.run(ctx, "load_vectors", func(ctx context.Context) error {
		rows, err := db.conn.QueryContext(ctx,
			"SELECT entity, dim, value FROM "+db.tables.vectors+" WHERE kind = ? ORDER BY entity, dim",
			string(kind))
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		entries = entries[:0]
		for rows.Next() {
			var e models.VectorEntry
			if err := rows.Scan(&e.Entity, &e.Dimension, &e.Value); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	return entries, err
}
