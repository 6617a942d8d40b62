// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package export writes stored linkage triples to Parquet files, one file
// per category, for loading into notebooks or warehouse tables.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/linkage/internal/database"
	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/models"
)

// LinkageLister reads linkage triples.
type LinkageLister interface {
	ListLinkages(ctx context.Context, filter database.LinkageFilter) ([]models.LinkageTriple, error)
}

// Row is the Parquet schema of one exported triple.
type Row struct {
	Category   string    `parquet:"category"`
	ConceptA   string    `parquet:"concept_a"`
	ConceptB   string    `parquet:"concept_b"`
	Weight     float64   `parquet:"weight"`
	ExportedAt time.Time `parquet:"exported_at"`
}

// File describes one written export file.
type File struct {
	Category models.Category `json:"category"`
	Path     string          `json:"path"`
	Rows     int             `json:"rows"`
}

// Exporter writes linkage exports into a directory.
type Exporter struct {
	store  LinkageLister
	dir    string
	prefix string
}

// New creates an exporter writing <prefix>_<category>.parquet files to dir.
func New(store LinkageLister, dir, prefix string) *Exporter {
	if prefix == "" {
		prefix = "linkages"
	}
	return &Exporter{store: store, dir: dir, prefix: prefix}
}

// Path returns the file an export of category is written to.
func (e *Exporter) Path(category models.Category) string {
	return filepath.Join(e.dir, fmt.Sprintf("%s_%s.parquet", e.prefix, category))
}

// Export writes one file per category. An empty list exports every
// category. Categories with no triples still get a file with zero rows.
func (e *Exporter) Export(ctx context.Context, categories ...models.Category) ([]File, error) {
	if len(categories) == 0 {
		categories = models.Categories
	}
	for _, c := range categories {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown linkage category %q", c)
		}
	}
	if err := os.MkdirAll(e.dir, 0o750); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	exportedAt := time.Now().UTC()
	files := make([]File, len(categories))

	g, ctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			f, err := e.exportCategory(ctx, category, exportedAt)
			if err != nil {
				return fmt.Errorf("export %s: %w", category, err)
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (e *Exporter) exportCategory(ctx context.Context, category models.Category, exportedAt time.Time) (File, error) {
	triples, err := e.store.ListLinkages(ctx, database.LinkageFilter{Category: category})
	if err != nil {
		return File{}, err
	}

	rows := make([]Row, len(triples))
	for i, t := range triples {
		rows[i] = Row{
			Category:   string(category),
			ConceptA:   t.ConceptA,
			ConceptB:   t.ConceptB,
			Weight:     t.Weight,
			ExportedAt: exportedAt,
		}
	}

	path := e.Path(category)
	// Write beside the target and rename so readers never see a partial file.
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return File{}, fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return File{}, fmt.Errorf("rename export: %w", err)
	}

	logging.Info().
		Str("category", string(category)).
		Str("path", path).
		Int("rows", len(rows)).
		Msg("Linkages exported")

	return File{Category: category, Path: path, Rows: len(rows)}, nil
}
