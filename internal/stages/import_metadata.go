// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package stages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/matrix"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/pipeline"
)

// ImportMetadata loads every *.json file under the raw metadata directory
// into the store, one document per file. Previously imported documents are
// deleted first, so importing the same directory twice leaves the same set.
//
// Document ids go through matrix.NormalizeID, the same key every vector and
// linkage uses. When two files normalize to one id, the first file in name
// order wins and the rest are skipped. ImportedAt is the file's mtime so an
// unchanged directory re-imports to identical documents.
type ImportMetadata struct {
	input config.InputConfig
	store Store
}

// NewImportMetadata creates the stage.
//
//nolint:gocritic // config passed by value so the stage keeps its own copy
func NewImportMetadata(input config.InputConfig, store Store) *ImportMetadata {
	return &ImportMetadata{input: input, store: store}
}

func (s *ImportMetadata) Name() string { return "import_metadata" }

func (s *ImportMetadata) Execute(ctx context.Context) pipeline.Result {
	res := pipeline.Begin(s.Name())
	n, err := s.run(ctx)
	return finish(ctx, s.store, res, n, err)
}

func (s *ImportMetadata) ExecuteInput(context.Context, any) pipeline.Result {
	return pipeline.Skipped(s.Name())
}

func (s *ImportMetadata) run(ctx context.Context) (int, error) {
	if err := s.store.DeleteMetadata(ctx); err != nil {
		return 0, fmt.Errorf("clear metadata: %w", err)
	}

	dir := s.input.RawMetadataPath
	files, err := metadataFiles(dir)
	if err != nil {
		return 0, err
	}

	log := logging.Ctx(ctx).With().Str("stage", s.Name()).Logger()
	docs := make([]models.MetadataDocument, 0, len(files))
	owner := make(map[string]string, len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		doc, err := s.readDocument(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Skipping malformed metadata file")
			continue
		}
		if first, dup := owner[doc.ID]; dup {
			log.Warn().
				Str("id", doc.ID).
				Str("file", doc.SourceFile).
				Str("kept", first).
				Msg("Skipping metadata file with duplicate id")
			continue
		}
		owner[doc.ID] = doc.SourceFile
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return 0, &models.EmptyInputError{Source: dir}
	}
	if err := s.store.InsertMetadata(ctx, docs); err != nil {
		return 0, fmt.Errorf("insert metadata: %w", err)
	}
	return len(docs), nil
}

// metadataFiles lists the *.json files of dir in name order.
func metadataFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.InputMissingError{Path: dir}
		}
		return nil, fmt.Errorf("read metadata directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (s *ImportMetadata) readDocument(path string) (models.MetadataDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.MetadataDocument{}, err
	}
	body, err := os.ReadFile(path) //nolint:gosec // path is a listing of the configured directory
	if err != nil {
		return models.MetadataDocument{}, err
	}
	f, err := decodeFields(body)
	if err != nil {
		return models.MetadataDocument{}, fmt.Errorf("decode: %w", err)
	}

	id := ""
	if ids := f.values(s.input.MetadataIDField); len(ids) > 0 {
		id = ids[0]
	}
	id = matrix.NormalizeID(id)
	if id == "" {
		id = matrix.NormalizeID(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	if id == "" {
		return models.MetadataDocument{}, fmt.Errorf("no usable id")
	}

	return models.MetadataDocument{
		ID:         id,
		SourceFile: filepath.Base(path),
		Body:       body,
		ImportedAt: info.ModTime().UTC().Truncate(time.Microsecond),
	}, nil
}
