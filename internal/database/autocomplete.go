// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package database

import (
	"context"

	"github.com/tomtom215/linkage/internal/cache"
	"github.com/tomtom215/linkage/internal/logging"
)

// rebuildAutocomplete reloads the suggestion trie. Linkage concepts are
// weighted by the sum of their linkage weights; dataset ids and search
// queries carry no weight and rank by how often they occur.
func (db *DB) rebuildAutocomplete(ctx context.Context) error {
	stmt := `SELECT concept, SUM(weight) FROM (
			SELECT concept_a AS concept, weight FROM ` + db.tables.linkages + `
			UNION ALL
			SELECT concept_b AS concept, weight FROM ` + db.tables.linkages + `
		) GROUP BY concept
		UNION ALL
		SELECT id, CAST(0 AS DOUBLE) FROM ` + db.tables.metadata + `
		UNION ALL
		SELECT DISTINCT term, CAST(0 AS DOUBLE) FROM ` + db.tables.clickstream

	var entries []cache.Entry
	err := db.run(ctx, "rebuild_autocomplete", func(ctx context.Context) error {
		rows, err := db.conn.QueryContext(ctx, stmt)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		entries = entries[:0]
		for rows.Next() {
			var e cache.Entry
			if err := rows.Scan(&e.Value, &e.Weight); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return err
	}

	db.concepts.Replace(entries)
	logging.Debug().Int("concepts", db.concepts.Size()).Msg("Autocomplete index rebuilt")
	return nil
}

// Autocomplete returns up to limit known terms starting with prefix, best
// first. It reads the index built by the last Refresh.
func (db *DB) Autocomplete(prefix string, limit int) []cache.Suggestion {
	return db.concepts.Autocomplete(prefix, limit)
}

// AutocompleteSize returns the number of distinct terms in the index.
func (db *DB) AutocompleteSize() int {
	return db.concepts.Size()
}
