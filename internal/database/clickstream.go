// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tomtom215/linkage/internal/database/query"
	"github.com/tomtom215/linkage/internal/models"
)

// ReplaceClickstream swaps the stored click counts for records. Records with
// no clicks are skipped.
func (db *DB) ReplaceClickstream(ctx context.Context, records []models.ClickRecord) error {
	kept := make([]models.ClickRecord, 0, len(records))
	for _, r := range records {
		if r.Clicks != 0 && r.Query != "" && r.Dataset != "" {
			kept = append(kept, r)
		}
	}

	return db.run(ctx, "replace_clickstream", func(ctx context.Context) error {
		return db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+db.tables.clickstream); err != nil {
				return err
			}
			bi := query.NewBatchInsert("INSERT INTO "+db.tables.clickstream, "term", "dataset", "clicks")
			return db.writeRows(ctx, tx, "clickstream", bi, len(kept), func(i int) []interface{} {
				r := kept[i]
				return []interface{}{normalizeTerm(r.Query), normalizeTerm(r.Dataset), r.Clicks}
			})
		})
	})
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ClickCounts returns dataset -> clicks for one search query.
func (db *DB) ClickCounts(ctx context.Context, term string) (map[string]float64, error) {
	return db.sumClicks(ctx, "click_counts",
		query.NewWhereBuilder().AddEqual("term", normalizeTerm(term)), normalizeTerm(term) == "")
}

// DatasetPopularity returns dataset -> total clicks over every query for the
// given datasets.
func (db *DB) DatasetPopularity(ctx context.Context, datasets []string) (map[string]float64, error) {
	ids := make([]string, 0, len(datasets))
	for _, d := range datasets {
		if d = normalizeTerm(d); d != "" {
			ids = append(ids, d)
		}
	}
	return db.sumClicks(ctx, "dataset_popularity",
		query.NewWhereBuilder().AddIn("dataset", ids), len(ids) == 0)
}

func (db *DB) sumClicks(ctx context.Context, op string, wb *query.WhereBuilder, empty bool) (map[string]float64, error) {
	out := make(map[string]float64)
	if empty {
		return out, nil
	}

	where, args := wb.Build()
	stmt := "SELECT dataset, SUM(clicks) FROM " + db.tables.clickstream + " WHERE " + where + " GROUP BY dataset"

	err := db.run(ctx, op, func(ctx context.Context) error {
		rows, err := db.conn.QueryContext(ctx, stmt, args...)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		for rows.Next() {
			var dataset string
			var clicks float64
			if err := rows.Scan(&dataset, &clicks); err != nil {
				return err
			}
			out[dataset] = clicks
		}
		return rows.Err()
	})
	return out, err
}
