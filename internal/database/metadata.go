// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package database

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/linkage/internal/database/query"
	"github.com/tomtom215/linkage/internal/models"
)

// DeleteMetadata removes every imported metadata document.
func (db *DB) DeleteMetadata(ctx context.Context) error {
	return db.run(ctx, "delete_metadata", func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, "DELETE FROM "+db.tables.metadata)
		return err
	})
}

// InsertMetadata writes docs in batches. Bodies must be valid JSON and are
// stored compacted. A repeated id keeps the last document.
func (db *DB) InsertMetadata(ctx context.Context, docs []models.MetadataDocument) error {
	if len(docs) == 0 {
		return nil
	}

	rows, err := prepareMetadata(docs)
	if err != nil {
		return err
	}

	return db.run(ctx, "insert_metadata", func(ctx context.Context) error {
		return db.inTx(ctx, func(tx *sql.Tx) error {
			bi := query.NewBatchInsert("INSERT OR REPLACE INTO "+db.tables.metadata,
				"id", "source_file", "body", "imported_at")
			return db.writeRows(ctx, tx, "metadata_documents", bi, len(rows), func(i int) []interface{} {
				return rows[i]
			})
		})
	})
}

func prepareMetadata(docs []models.MetadataDocument) ([][]interface{}, error) {
	index := make(map[string]int, len(docs))
	rows := make([][]interface{}, 0, len(docs))

	for _, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("metadata document from %s has no id", doc.SourceFile)
		}
		if !json.Valid(doc.Body) {
			return nil, fmt.Errorf("metadata document %s: body is not valid JSON", doc.ID)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, doc.Body); err != nil {
			return nil, fmt.Errorf("metadata document %s: %w", doc.ID, err)
		}

		importedAt := doc.ImportedAt
		if importedAt.IsZero() {
			importedAt = time.Now()
		}
		row := []interface{}{doc.ID, doc.SourceFile, buf.String(), importedAt.UTC()}

		if i, ok := index[doc.ID]; ok {
			rows[i] = row
			continue
		}
		index[doc.ID] = len(rows)
		rows = append(rows, row)
	}
	return rows, nil
}

// ListMetadata returns every metadata document ordered by id.
func (db *DB) ListMetadata(ctx context.Context) ([]models.MetadataDocument, error) {
	var docs []models.MetadataDocument
	err := db.run(ctx, "list_metadata", func(ctx context.Context) error {
		rows, err := db.conn.QueryContext(ctx,
			"SELECT id, source_file, body, imported_at FROM "+db.tables.metadata+" ORDER BY id")
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		docs = docs[:0]
		for rows.Next() {
			var doc models.MetadataDocument
			var body string
			if err := rows.Scan(&doc.ID, &doc.SourceFile, &body, &doc.ImportedAt); err != nil {
				return err
			}
			doc.Body = []byte(body)
			docs = append(docs, doc)
		}
		return rows.Err()
	})
	return docs, err
}

// CountMetadata returns the number of metadata documents.
func (db *DB) CountMetadata(ctx context.Context) (int, error) {
	return db.count(ctx, "count_metadata", "SELECT COUNT(*) FROM "+db.tables.metadata)
}

func (db *DB) count(ctx context.Context, op, stmt string, args ...interface{}) (int, error) {
	var n int
	err := db.run(ctx, op, func(ctx context.Context) error {
		return db.conn.QueryRowContext(ctx, stmt, args...).Scan(&n)
	})
	return n, err
}
