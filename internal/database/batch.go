// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package database

import (
	"context"
	"database/sql"

	"github.com/tomtom215/linkage/internal/database/query"
	"github.com/tomtom215/linkage/internal/metrics"
)

// writeRows adds n rows to bi and flushes every cfg.BatchSize rows inside
// tx. table is the logical table name used for metrics.
func (db *DB) writeRows(ctx context.Context, tx *sql.Tx, table string, bi *query.BatchInsert, n int, row func(i int) []interface{}) error {
	flush := func() error {
		stmt, args := bi.Build()
		if stmt == "" {
			return nil
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
		bi.Reset()
		return nil
	}

	for i := 0; i < n; i++ {
		bi.Add(row(i)...)
		if bi.Len() >= db.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	metrics.StoreRowsWritten.WithLabelValues(table).Add(float64(n))
	return nil
}

// inTx runs fn inside a transaction, committing on success.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		rollbackQuietly(tx)
		return err
	}
	return tx.Commit()
}
