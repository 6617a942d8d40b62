// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/linkage/internal/database/query"
	"github.com/tomtom215/linkage/internal/models"
)

// DeleteLinkages removes every triple of category.
func (db *DB) DeleteLinkages(ctx context.Context, category models.Category) error {
	return db.run(ctx, "delete_linkages", func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, "DELETE FROM "+db.tables.linkages+" WHERE category = ?", string(category))
		return err
	})
}

// UpsertLinkages writes triples under category. Pairs are stored in
// canonical order, self-pairs are dropped, and a pair repeated in triples
// keeps its last weight.
func (db *DB) UpsertLinkages(ctx context.Context, category models.Category, triples []models.LinkageTriple) error {
	if !category.Valid() {
		return fmt.Errorf("unknown linkage category %q", category)
	}

	unique := dedupeTriples(triples)
	if len(unique) == 0 {
		return nil
	}

	return db.run(ctx, "upsert_linkages", func(ctx context.Context) error {
		return db.inTx(ctx, func(tx *sql.Tx) error {
			bi := query.NewBatchInsert("INSERT OR REPLACE INTO "+db.tables.linkages,
				"category", "concept_a", "concept_b", "weight")
			return db.writeRows(ctx, tx, "linkages", bi, len(unique), func(i int) []interface{} {
				t := unique[i]
				return []interface{}{string(category), t.ConceptA, t.ConceptB, t.Weight}
			})
		})
	})
}

func dedupeTriples(triples []models.LinkageTriple) []models.LinkageTriple {
	index := make(map[models.PairKey]int, len(triples))
	out := make([]models.LinkageTriple, 0, len(triples))

	for _, t := range triples {
		t = models.NewLinkageTriple(t.ConceptA, t.ConceptB, t.Weight)
		if t.ConceptA == t.ConceptB {
			continue
		}
		if i, ok := index[t.Key()]; ok {
			out[i] = t
			continue
		}
		index[t.Key()] = len(out)
		out = append(out, t)
	}
	return out
}

// LinkageFilter selects linkage triples.
type LinkageFilter struct {
	Category models.Category
	// Concept restricts to triples touching this concept on either side.
	Concept string
	// Limit caps the result. Zero returns everything.
	Limit int
}

// ListLinkages returns the triples matching filter, strongest first.
func (db *DB) ListLinkages(ctx context.Context, filter LinkageFilter) ([]models.LinkageTriple, error) {
	where, args := query.NewWhereBuilder().
		AddEqual("category", string(filter.Category)).
		AddAnyOf([]string{"concept_a", "concept_b"}, filter.Concept).
		Build()

	stmt := "SELECT concept_a, concept_b, weight FROM " + db.tables.linkages +
		" WHERE " + where + " ORDER BY weight DESC, concept_a, concept_b"
	if filter.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var triples []models.LinkageTriple
	err := db.run(ctx, "list_linkages", func(ctx context.Context) error {
		rows, err := db.conn.QueryContext(ctx, stmt, args...)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		triples = triples[:0]
		for rows.Next() {
			var t models.LinkageTriple
			if err := rows.Scan(&t.ConceptA, &t.ConceptB, &t.Weight); err != nil {
				return err
			}
			triples = append(triples, t)
		}
		return rows.Err()
	})
	return triples, err
}

// CountLinkages returns the number of triples in category.
func (db *DB) CountLinkages(ctx context.Context, category models.Category) (int, error) {
	return db.count(ctx, "count_linkages",
		"SELECT COUNT(*) FROM "+db.tables.linkages+" WHERE category = ?", string(category))
}
