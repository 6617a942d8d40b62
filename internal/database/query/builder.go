// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package query provides SQL building utilities for the database package.
package query

import (
	"strings"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
//	wb := query.NewWhereBuilder()
//	wb.AddEqual("category", "session")
//	wb.AddAnyOf([]string{"concept_a", "concept_b"}, "sst")
//	whereClause, args := wb.Build()
//	// category = ? AND (concept_a = ? OR concept_b = ?)
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause adds a raw WHERE clause with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddEqual adds "column = ?". Empty string values are skipped so optional
// filters can be passed straight through.
func (wb *WhereBuilder) AddEqual(column string, value interface{}) *WhereBuilder {
	if s, ok := value.(string); ok && s == "" {
		return wb
	}
	return wb.AddClause(column+" = ?", value)
}

// AddAnyOf adds "(c1 = ? OR c2 = ? ...)" binding value to every column.
// An empty value is skipped.
func (wb *WhereBuilder) AddAnyOf(columns []string, value string) *WhereBuilder {
	if value == "" || len(columns) == 0 {
		return wb
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c + " = ?"
		wb.args = append(wb.args, value)
	}
	wb.clauses = append(wb.clauses, "("+strings.Join(parts, " OR ")+")")
	return wb
}

// AddIn adds "column IN (?, ?, ...)". An empty list is skipped.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	for _, v := range values {
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, column+" IN ("+Placeholders(len(values))+")")
	return wb
}

// Build joins the clauses with AND. Returns ("1=1", nil) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// Placeholders returns n comma-separated "?" placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// BatchInsert accumulates rows for a multi-row INSERT statement.
//
//	bi := query.NewBatchInsert("INSERT OR REPLACE INTO linkages", "category", "concept_a", "concept_b", "weight")
//	bi.Add("session", "a", "b", 0.9)
//	stmt, args := bi.Build()
//	// INSERT OR REPLACE INTO linkages (category, concept_a, concept_b, weight) VALUES (?, ?, ?, ?)
type BatchInsert struct {
	prefix  string
	columns []string
	rows    int
	args    []interface{}
}

// NewBatchInsert creates a builder. prefix is the statement head up to the
// table name, such as "INSERT INTO t" or "INSERT OR REPLACE INTO t".
func NewBatchInsert(prefix string, columns ...string) *BatchInsert {
	return &BatchInsert{prefix: prefix, columns: columns}
}

// Add appends one row. It panics if the value count does not match the
// column count, which is a programming error.
func (bi *BatchInsert) Add(values ...interface{}) {
	if len(values) != len(bi.columns) {
		panic("query: BatchInsert row has wrong number of values")
	}
	bi.args = append(bi.args, values...)
	bi.rows++
}

// Len returns the number of pending rows.
func (bi *BatchInsert) Len() int {
	return bi.rows
}

// Reset drops pending rows so the builder can be reused for the next batch.
func (bi *BatchInsert) Reset() {
	bi.rows = 0
	bi.args = bi.args[:0]
}

// Build returns the statement and its arguments. It returns "" when no rows
// are pending.
func (bi *BatchInsert) Build() (string, []interface{}) {
	if bi.rows == 0 {
		return "", nil
	}
	row := "(" + Placeholders(len(bi.columns)) + ")"

	var sb strings.Builder
	sb.WriteString(bi.prefix)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(bi.columns, ", "))
	sb.WriteString(") VALUES ")
	for i := 0; i < bi.rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(row)
	}
	return sb.String(), bi.args
}
