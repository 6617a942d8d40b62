// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/matrix"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/pipeline"
	"github.com/tomtom215/linkage/internal/tfidf"
)

// replaceVectors stores entries under kind. Empty entries still clear the
// kind so a later stage never reads vectors from an earlier run.
func replaceVectors(ctx context.Context, store Store, kind models.VectorKind, entries []models.VectorEntry) error {
	if err := store.ReplaceVectors(ctx, kind, entries); err != nil {
		return fmt.Errorf("write %s vectors: %w", kind, err)
	}
	return nil
}

// loadDocuments reads the imported metadata and decodes every body.
// Undecodable bodies are logged and skipped.
func loadDocuments(ctx context.Context, store Store, stage string) ([]models.MetadataDocument, []fields, error) {
	docs, err := store.ListMetadata(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list metadata: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil, &models.EmptyInputError{Source: "metadata documents"}
	}

	kept := docs[:0]
	decoded := make([]fields, 0, len(docs))
	for _, doc := range docs {
		f, err := decodeFields(doc.Body)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("stage", stage).Str("id", doc.ID).Msg("Skipping undecodable metadata document")
			continue
		}
		kept = append(kept, doc)
		decoded = append(decoded, f)
	}
	return kept, decoded, nil
}

// MetadataTFIDFGenerator weights the configured text fields of every
// metadata document with TF-IDF and stores the vectors.
type MetadataTFIDFGenerator struct {
	input config.InputConfig
	store Store
}

// NewMetadataTFIDFGenerator creates the stage.
//
//nolint:gocritic // config passed by value so the stage keeps its own copy
func NewMetadataTFIDFGenerator(input config.InputConfig, store Store) *MetadataTFIDFGenerator {
	return &MetadataTFIDFGenerator{input: input, store: store}
}

func (s *MetadataTFIDFGenerator) Name() string { return "metadata_tfidf" }

func (s *MetadataTFIDFGenerator) Execute(ctx context.Context) pipeline.Result {
	res := pipeline.Begin(s.Name())
	n, err := s.run(ctx)
	return finish(ctx, s.store, res, n, err)
}

func (s *MetadataTFIDFGenerator) ExecuteInput(context.Context, any) pipeline.Result {
	return pipeline.Skipped(s.Name())
}

func (s *MetadataTFIDFGenerator) run(ctx context.Context) (int, error) {
	docs, decoded, err := loadDocuments(ctx, s.store, s.Name())
	if err != nil {
		return 0, err
	}

	corpus := make([]tfidf.Document, len(docs))
	for i, doc := range docs {
		corpus[i] = tfidf.Document{ID: doc.ID, Text: decoded[i].text(s.input.MetadataTextFields)}
	}

	var entries []models.VectorEntry
	tfidf.NewCorpus(corpus).Each(func(id string, vector map[string]float64) {
		terms := make([]string, 0, len(vector))
		for term := range vector {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		for _, term := range terms {
			entries = append(entries, models.VectorEntry{Entity: matrix.NormalizeID(id), Dimension: term, Value: vector[term]})
		}
	})

	if err := replaceVectors(ctx, s.store, models.VectorTFIDF, entries); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, &models.EmptyInputError{Source: "metadata text fields " + strings.Join(s.input.MetadataTextFields, ",")}
	}
	return len(entries), nil
}

// SessionCooccurrence reads the session log and stores item-by-session
// co-occurrence counts.
type SessionCooccurrence struct {
	input config.InputConfig
	store Store
}

// NewSessionCooccurrence creates the stage.
//
//nolint:gocritic // config passed by value so the stage keeps its own copy
func NewSessionCooccurrence(input config.InputConfig, store Store) *SessionCooccurrence {
	return &SessionCooccurrence{input: input, store: store}
}

func (s *SessionCooccurrence) Name() string { return "session_cooccurrence" }

func (s *SessionCooccurrence) Execute(ctx context.Context) pipeline.Result {
	res := pipeline.Begin(s.Name())
	n, err := s.run(ctx)
	return finish(ctx, s.store, res, n, err)
}

func (s *SessionCooccurrence) ExecuteInput(context.Context, any) pipeline.Result {
	return pipeline.Skipped(s.Name())
}

func (s *SessionCooccurrence) run(ctx context.Context) (int, error) {
	m, loadErr := s.load()
	var entries []models.VectorEntry
	if loadErr == nil {
		entries = m.Entries()
	} else if !models.IsInputMissing(loadErr) && !models.IsEmptyInput(loadErr) {
		return 0, loadErr
	}

	if err := replaceVectors(ctx, s.store, models.VectorSession, entries); err != nil {
		return 0, err
	}
	if loadErr != nil {
		return 0, loadErr
	}
	return len(entries), nil
}

func (s *SessionCooccurrence) load() (*matrix.SparseMatrix, error) {
	f, err := matrix.OpenInput(s.input.SessionLogPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file
	return matrix.LoadSessionLog(f, s.input.SessionLogPath)
}

// NormalizeFeatures turns the configured feature fields into comparable
// vectors. Categorical values become one-hot dimensions "field=value";
// numeric values are min-max scaled to [0, 1] across datasets.
type NormalizeFeatures struct {
	input config.InputConfig
	store Store
}

// NewNormalizeFeatures creates the stage.
//
//nolint:gocritic // config passed by value so the stage keeps its own copy
func NewNormalizeFeatures(input config.InputConfig, store Store) *NormalizeFeatures {
	return &NormalizeFeatures{input: input, store: store}
}

func (s *NormalizeFeatures) Name() string { return "normalize_features" }

func (s *NormalizeFeatures) Execute(ctx context.Context) pipeline.Result {
	res := pipeline.Begin(s.Name())
	n, err := s.run(ctx)
	return finish(ctx, s.store, res, n, err)
}

func (s *NormalizeFeatures) ExecuteInput(context.Context, any) pipeline.Result {
	return pipeline.Skipped(s.Name())
}

func (s *NormalizeFeatures) run(ctx context.Context) (int, error) {
	docs, decoded, err := loadDocuments(ctx, s.store, s.Name())
	if err != nil {
		if models.IsEmptyInput(err) {
			if rerr := replaceVectors(ctx, s.store, models.VectorFeature, nil); rerr != nil {
				return 0, rerr
			}
		}
		return 0, err
	}

	m, err := s.normalize(docs, decoded)
	var entries []models.VectorEntry
	if err == nil {
		entries = m.Entries()
	} else if !models.IsEmptyInput(err) {
		return 0, err
	}

	if rerr := replaceVectors(ctx, s.store, models.VectorFeature, entries); rerr != nil {
		return 0, rerr
	}
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *NormalizeFeatures) normalize(docs []models.MetadataDocument, decoded []fields) (*matrix.SparseMatrix, error) {
	b := matrix.NewBuilder(matrix.Overwrite).WithSource("metadata feature fields")

	for _, field := range s.input.MetadataFeatureFields {
		numeric := make(map[string]float64)
		lo, hi := 0.0, 0.0

		for i, doc := range docs {
			if n, ok := decoded[i].number(field); ok {
				if len(numeric) == 0 || n < lo {
					lo = n
				}
				if len(numeric) == 0 || n > hi {
					hi = n
				}
				numeric[doc.ID] = n
				continue
			}
			for _, v := range decoded[i].values(field) {
				b.Add(doc.ID, field+"="+strings.ToLower(v), 1)
			}
		}

		// A constant column scales to 0 everywhere and is pruned by Build.
		for id, n := range numeric {
			scaled := 0.0
			if hi > lo {
				scaled = (n - lo) / (hi - lo)
			}
			b.Add(id, field, scaled)
		}
	}

	return b.Build()
}
