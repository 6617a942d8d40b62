// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package matrix builds sparse entity-by-column matrices from raw records.
//
// A SparseMatrix is keyed by normalized string identifiers on both axes and
// is immutable once built. Builders apply an explicit duplicate policy:
// co-occurrence data accumulates, feature data overwrites.
package matrix

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/linkage/internal/models"
)

// Policy decides how repeated (row, column) observations combine.
type Policy int

const (
	// Accumulate sums repeated observations (co-occurrence counts).
	Accumulate Policy = iota
	// Overwrite keeps the most recently observed value (feature values).
	Overwrite
)

// String returns the policy name for logging.
func (p Policy) String() string {
	switch p {
	case Accumulate:
		return "accumulate"
	case Overwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

// SparseMatrix maps row ids to sparse column weights.
// Row and column id slices are sorted, so index positions are stable for a
// given set of ids.
type SparseMatrix struct {
	rows   []string
	cols   []string
	rowIdx map[string]int
	colIdx map[string]int
	data   map[string]map[string]float64

	// colRows indexes which rows have a non-zero entry in each column.
	colRows map[string][]string
}

// Rows returns the sorted row ids. The slice must not be modified.
func (m *SparseMatrix) Rows() []string { return m.rows }

// Cols returns the sorted column ids. The slice must not be modified.
func (m *SparseMatrix) Cols() []string { return m.cols }

// NumRows returns the number of rows.
func (m *SparseMatrix) NumRows() int { return len(m.rows) }

// NumCols returns the number of columns.
func (m *SparseMatrix) NumCols() int { return len(m.cols) }

// NonZero returns the number of stored entries.
func (m *SparseMatrix) NonZero() int {
	n := 0
	for _, row := range m.data {
		n += len(row)
	}
	return n
}

// At returns the value at (row, col), or 0 when absent.
func (m *SparseMatrix) At(row, col string) float64 {
	return m.data[row][col]
}

// Row returns the sparse row for id. The map must not be modified.
func (m *SparseMatrix) Row(id string) map[string]float64 {
	return m.data[id]
}

// RowIndex returns the position of a row id.
func (m *SparseMatrix) RowIndex(id string) (int, bool) {
	i, ok := m.rowIdx[id]
	return i, ok
}

// ColIndex returns the position of a column id.
func (m *SparseMatrix) ColIndex(id string) (int, bool) {
	i, ok := m.colIdx[id]
	return i, ok
}

// RowsWithColumn returns the sorted ids of rows with a non-zero value in col.
func (m *SparseMatrix) RowsWithColumn(col string) []string {
	return m.colRows[col]
}

// DenseRow returns row id as a dense vector in column order.
func (m *SparseMatrix) DenseRow(id string) []float64 {
	out := make([]float64, len(m.cols))
	for col, v := range m.data[id] {
		out[m.colIdx[col]] = v
	}
	return out
}

// Dense returns the matrix as a gonum dense matrix with rows and columns in
// sorted id order.
func (m *SparseMatrix) Dense() *mat.Dense {
	d := mat.NewDense(len(m.rows), len(m.cols), nil)
	for r, id := range m.rows {
		for col, v := range m.data[id] {
			d.Set(r, m.colIdx[col], v)
		}
	}
	return d
}

// Transpose returns a new matrix with rows and columns swapped.
func (m *SparseMatrix) Transpose() *SparseMatrix {
	data := make(map[string]map[string]float64, len(m.cols))
	for row, cols := range m.data {
		for col, v := range cols {
			if data[col] == nil {
				data[col] = make(map[string]float64)
			}
			data[col][row] = v
		}
	}
	return newSparseMatrix(data)
}

// Entries flattens the matrix into vector entries, ordered by row then column.
func (m *SparseMatrix) Entries() []models.VectorEntry {
	out := make([]models.VectorEntry, 0, m.NonZero())
	for _, row := range m.rows {
		cols := make([]string, 0, len(m.data[row]))
		for col := range m.data[row] {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			out = append(out, models.VectorEntry{Entity: row, Dimension: col, Value: m.data[row][col]})
		}
	}
	return out
}

// newSparseMatrix indexes data, which must already be pruned of zero entries.
func newSparseMatrix(data map[string]map[string]float64) *SparseMatrix {
	m := &SparseMatrix{
		rows:    make([]string, 0, len(data)),
		rowIdx:  make(map[string]int, len(data)),
		colIdx:  make(map[string]int),
		data:    data,
		colRows: make(map[string][]string),
	}

	for row, cols := range data {
		m.rows = append(m.rows, row)
		for col := range cols {
			if _, seen := m.colIdx[col]; !seen {
				m.colIdx[col] = 0
				m.cols = append(m.cols, col)
			}
			m.colRows[col] = append(m.colRows[col], row)
		}
	}

	sort.Strings(m.rows)
	sort.Strings(m.cols)
	for i, row := range m.rows {
		m.rowIdx[row] = i
	}
	for i, col := range m.cols {
		m.colIdx[col] = i
	}
	for _, rows := range m.colRows {
		sort.Strings(rows)
	}

	return m
}

// Builder accumulates raw observations into a SparseMatrix.
// A Builder is not safe for concurrent use.
type Builder struct {
	policy Policy
	source string
	data   map[string]map[string]float64
	seen   int
}

// NewBuilder creates a builder with the given duplicate policy.
func NewBuilder(policy Policy) *Builder {
	return &Builder{
		policy: policy,
		data:   make(map[string]map[string]float64),
	}
}

// WithSource names the input for EmptyInputError messages.
func (b *Builder) WithSource(source string) *Builder {
	b.source = source
	return b
}

// NormalizeID trims and lower-cases an identifier.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Add records one observation. Observations with an empty row or column id,
// or a NaN/Inf value, are ignored.
func (b *Builder) Add(row, col string, value float64) {
	row = NormalizeID(row)
	col = NormalizeID(col)
	if row == "" || col == "" || math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	b.seen++

	cols := b.data[row]
	if cols == nil {
		cols = make(map[string]float64)
		b.data[row] = cols
	}

	switch b.policy {
	case Overwrite:
		cols[col] = value
	default:
		cols[col] += value
	}
}

// AddEntries records every entry as an observation.
func (b *Builder) AddEntries(entries []models.VectorEntry) {
	for _, e := range entries {
		b.Add(e.Entity, e.Dimension, e.Value)
	}
}

// Observations returns the number of accepted observations.
func (b *Builder) Observations() int {
	return b.seen
}

// Build prunes zero entries, zero rows and zero columns, and returns the
// matrix. It returns *models.EmptyInputError when nothing usable remains.
func (b *Builder) Build() (*SparseMatrix, error) {
	if b.seen == 0 {
		return nil, &models.EmptyInputError{Source: b.source}
	}

	// Column totals decide which columns survive.
	colTotals := make(map[string]float64)
	for _, cols := range b.data {
		for col, v := range cols {
			colTotals[col] += math.Abs(v)
		}
	}

	pruned := make(map[string]map[string]float64, len(b.data))
	for row, cols := range b.data {
		kept := make(map[string]float64, len(cols))
		for col, v := range cols {
			if v == 0 || colTotals[col] == 0 {
				continue
			}
			kept[col] = v
		}
		if len(kept) > 0 {
			pruned[row] = kept
		}
	}

	if len(pruned) == 0 {
		return nil, &models.EmptyInputError{Source: b.source}
	}

	return newSparseMatrix(pruned), nil
}

// FromEntries builds a matrix from persisted vector entries.
func FromEntries(source string, policy Policy, entries []models.VectorEntry) (*SparseMatrix, error) {
	b := NewBuilder(policy).WithSource(source)
	b.AddEntries(entries)
	return b.Build()
}
