// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package matrix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tomtom215/linkage/internal/models"
)

// OpenInput opens path for reading, mapping a missing file to
// *models.InputMissingError.
func OpenInput(path string) (*os.File, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from validated configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.InputMissingError{Path: path}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// LoadSessionLog reads a session log and returns an item-by-session
// co-occurrence matrix.
//
// Each record is "session_id,item_id" with an optional third count column
// (default 1). A first line whose count column is not numeric, or whose
// first cell is "session_id", is treated as a header. There are no comment
// lines: a session id may start with '#'. Repeated (item, session)
// observations accumulate.
func LoadSessionLog(r io.Reader, source string) (*SparseMatrix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	b := NewBuilder(Accumulate).WithSource(source)
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read session log %s: %w", source, err)
		}
		line++

		if len(record) < 2 {
			continue
		}
		if line == 1 && isSessionHeader(record) {
			continue
		}

		count := 1.0
		if len(record) >= 3 && strings.TrimSpace(record[2]) != "" {
			count, err = strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("session log %s line %d: invalid count %q", source, line, record[2])
			}
		}

		// Rows are items, columns are sessions.
		b.Add(record[1], record[0], count)
	}

	return b.Build()
}

func isSessionHeader(record []string) bool {
	if strings.EqualFold(strings.TrimSpace(record[0]), "session_id") {
		return true
	}
	if len(record) >= 3 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64); err != nil {
			return true
		}
	}
	return false
}

// LoadClickstreamMatrix reads a dense clickstream matrix.
//
// The first line holds column ids (its first cell is ignored). Every other
// line is "row_id,v1,v2,...". Cells beyond the header width are rejected;
// empty cells are zero. Repeated rows accumulate.
func LoadClickstreamMatrix(r io.Reader, source string) (*SparseMatrix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.EmptyInputError{Source: source}
	}
	if err != nil {
		return nil, fmt.Errorf("read clickstream header %s: %w", source, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("clickstream %s: header needs at least one column id", source)
	}
	cols := header[1:]

	b := NewBuilder(Accumulate).WithSource(source)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read clickstream %s: %w", source, err)
		}
		line++

		if len(record)-1 > len(cols) {
			return nil, fmt.Errorf("clickstream %s line %d: %d values for %d columns",
				source, line, len(record)-1, len(cols))
		}
		for i, cell := range record[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("clickstream %s line %d: invalid value %q", source, line, cell)
			}
			b.Add(record[0], cols[i], v)
		}
	}

	return b.Build()
}

// ClickRecords flattens a query-by-dataset matrix into click records.
func ClickRecords(m *SparseMatrix) []models.ClickRecord {
	entries := m.Entries()
	out := make([]models.ClickRecord, len(entries))
	for i, e := range entries {
		out[i] = models.ClickRecord{Query: e.Entity, Dataset: e.Dimension, Clicks: e.Value}
	}
	return out
}
