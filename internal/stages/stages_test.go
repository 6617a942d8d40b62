// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package stages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/matrix"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/pipeline"
)

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	metadata  map[string]models.MetadataDocument
	vectors   map[models.VectorKind][]models.VectorEntry
	linkages  map[models.Category]map[models.PairKey]float64
	clicks    []models.ClickRecord
	refreshes int

	// failLinkages makes every linkage write fail as if the store were down.
	failLinkages bool
}

func newMemStore() *memStore {
	return &memStore{
		metadata: make(map[string]models.MetadataDocument),
		vectors:  make(map[models.VectorKind][]models.VectorEntry),
		linkages: make(map[models.Category]map[models.PairKey]float64),
	}
}

func (s *memStore) DeleteMetadata(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = make(map[string]models.MetadataDocument)
	return nil
}

func (s *memStore) InsertMetadata(_ context.Context, docs []models.MetadataDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.metadata[d.ID] = d
	}
	return nil
}

func (s *memStore) ListMetadata(context.Context) ([]models.MetadataDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MetadataDocument, 0, len(s.metadata))
	for _, d := range s.metadata {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ReplaceVectors(_ context.Context, kind models.VectorKind, entries []models.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[kind] = append([]models.VectorEntry(nil), entries...)
	return nil
}

func (s *memStore) LoadVectors(_ context.Context, kind models.VectorKind) ([]models.VectorEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.VectorEntry(nil), s.vectors[kind]...), nil
}

func (s *memStore) DeleteLinkages(_ context.Context, category models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLinkages {
		return &models.StoreUnavailableError{Op: "delete_linkages", Err: errors.New("database is closed")}
	}
	delete(s.linkages, category)
	return nil
}

func (s *memStore) UpsertLinkages(_ context.Context, category models.Category, triples []models.LinkageTriple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLinkages {
		return &models.StoreUnavailableError{Op: "upsert_linkages", Err: errors.New("database is closed")}
	}
	m := s.linkages[category]
	if m == nil {
		m = make(map[models.PairKey]float64)
		s.linkages[category] = m
	}
	for _, t := range triples {
		m[t.Key()] = t.Weight
	}
	return nil
}

func (s *memStore) ReplaceClickstream(_ context.Context, records []models.ClickRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append([]models.ClickRecord(nil), records...)
	return nil
}

func (s *memStore) Refresh(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	return nil
}

func (s *memStore) linkage(category models.Category, a, b string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.linkages[category][models.NewPairKey(a, b)]
	return w, ok
}

func (s *memStore) count(category models.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.linkages[category])
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Input: config.InputConfig{
			RawMetadataPath:       filepath.Join(dir, "metadata"),
			SessionLogPath:        filepath.Join(dir, "sessions.csv"),
			ClickstreamPath:       filepath.Join(dir, "clickstream.csv"),
			MetadataIDField:       "short_name",
			MetadataTextFields:    []string{"abstract", "title"},
			MetadataFeatureFields: []string{"platform", "processing_level", "resolution"},
		},
		SVD: config.SVDConfig{Rank: 2, OutputPath: filepath.Join(dir, "clickstream_svd.csv")},
		Similarity: config.SimilarityConfig{
			Content: config.ContentSimilarityConfig{TopK: 10, SVDRank: 2},
			Feature: config.ScoreConfig{TopK: 10},
			Session: config.SessionSimilarityConfig{TopK: 10, SharedOnly: true},
		},
		Pipeline: config.PipelineConfig{StageTimeout: time.Minute, Workers: 2},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func writeMetadata(t *testing.T, cfg *config.Config) {
	t.Helper()
	dir := cfg.Input.RawMetadataPath
	writeFile(t, filepath.Join(dir, "ascat.json"), `{"short_name": "ASCAT_L2", "title": "ASCAT ocean wind vectors",
		"abstract": "Ocean surface wind speed and direction from scatterometer", "platform": "MetOp-A",
		"processing_level": "2", "resolution": 12.5}`)
	writeFile(t, filepath.Join(dir, "quikscat.json"), `{"short_name": "QSCAT_L2", "title": "QuikSCAT ocean wind",
		"abstract": "Ocean surface wind vectors from scatterometer", "platform": "QuikSCAT",
		"processing_level": "2", "resolution": 25}`)
	writeFile(t, filepath.Join(dir, "modis.json"), `{"title": "MODIS sea surface temperature",
		"abstract": "Sea surface temperature from radiometer", "platform": ["Terra", "Aqua"],
		"processing_level": "3", "resolution": 4}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not metadata")
}

func TestImportMetadata_ThreeFiles(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeMetadata(t, cfg)
	store := newMemStore()

	e := NewRecommendEngine(cfg, store, zerolog.Nop())
	report, err := e.Preprocess(context.Background())
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}

	docs, _ := store.ListMetadata(context.Background())
	if len(docs) != 3 {
		t.Fatalf("got %d metadata documents, want 3", len(docs))
	}
	wantSources := map[string]string{
		"ascat_l2": "ascat.json",
		"qscat_l2": "quikscat.json",
		"modis":    "modis.json",
	}
	for _, d := range docs {
		if wantSources[d.ID] != d.SourceFile {
			t.Errorf("document %s from %s, want %s", d.ID, d.SourceFile, wantSources[d.ID])
		}
	}

	if report.Results[0].Status != pipeline.StatusSuccess || report.Results[0].Items != 3 {
		t.Errorf("import result = %+v", report.Results[0])
	}
	// No session log was written.
	if report.Results[2].Status != pipeline.StatusEmpty {
		t.Errorf("session_cooccurrence status = %s, want empty", report.Results[2].Status)
	}
	if len(store.vectors[models.VectorTFIDF]) == 0 || len(store.vectors[models.VectorFeature]) == 0 {
		t.Error("tfidf and feature vectors should be stored")
	}
	if store.refreshes != 4 {
		t.Errorf("refreshes = %d, want one per stage", store.refreshes)
	}
}

func TestImportMetadata_Idempotent(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeMetadata(t, cfg)
	writeFile(t, filepath.Join(cfg.Input.RawMetadataPath, "broken.json"), `{"short_name": `)
	store := newMemStore()
	stage := NewImportMetadata(cfg.Input, store)

	var first []models.MetadataDocument
	for round := 0; round < 2; round++ {
		res := pipeline.Run(context.Background(), stage)
		if res.Status != pipeline.StatusSuccess || res.Items != 3 {
			t.Fatalf("round %d result = %+v", round, res)
		}
		docs, _ := store.ListMetadata(context.Background())
		if round == 0 {
			first = docs
			continue
		}
		if len(docs) != len(first) {
			t.Fatalf("re-import changed document count: %d -> %d", len(first), len(docs))
		}
		for i := range docs {
			a, b := first[i], docs[i]
			if a.ID != b.ID || a.SourceFile != b.SourceFile || string(a.Body) != string(b.Body) || !a.ImportedAt.Equal(b.ImportedAt) {
				t.Errorf("document %d changed on re-import: %+v -> %+v", i, a, b)
			}
		}
	}
}

func TestImportMetadata_CaseCollidingIDs(t *testing.T) {
	cfg := testConfig(t.TempDir())
	dir := cfg.Input.RawMetadataPath
	writeFile(t, filepath.Join(dir, "a.json"), `{"short_name": "ABC", "title": "first"}`)
	writeFile(t, filepath.Join(dir, "b.json"), `{"short_name": " abc ", "title": "second"}`)
	writeFile(t, filepath.Join(dir, "c.json"), `{"short_name": "Xyz", "title": "third"}`)
	store := newMemStore()

	res := pipeline.Run(context.Background(), NewImportMetadata(cfg.Input, store))
	if res.Status != pipeline.StatusSuccess || res.Items != 2 {
		t.Fatalf("result = %+v, want 2 documents", res)
	}
	docs, _ := store.ListMetadata(context.Background())
	if len(docs) != 2 || docs[0].ID != "abc" || docs[0].SourceFile != "a.json" || docs[1].ID != "xyz" {
		t.Errorf("documents = %+v, want abc from a.json and xyz", docs)
	}
}

func TestImportMetadata_ImportedAtFromFile(t *testing.T) {
	cfg := testConfig(t.TempDir())
	path := filepath.Join(cfg.Input.RawMetadataPath, "a.json")
	writeFile(t, path, `{"short_name": "A"}`)
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	store := newMemStore()

	pipeline.Run(context.Background(), NewImportMetadata(cfg.Input, store))
	docs, _ := store.ListMetadata(context.Background())
	if len(docs) != 1 || !docs[0].ImportedAt.Equal(mtime) {
		t.Errorf("documents = %+v, want ImportedAt %v", docs, mtime)
	}
}

func TestImportMetadata_MissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	store := newMemStore()
	store.metadata["stale"] = models.MetadataDocument{ID: "stale"}

	res := pipeline.Run(context.Background(), NewImportMetadata(cfg.Input, store))
	if res.Status != pipeline.StatusEmpty || !models.IsInputMissing(res.Err) {
		t.Errorf("missing dir result = %+v, want empty with InputMissingError", res)
	}
	if len(store.metadata) != 0 {
		t.Error("stale documents should be deleted even when the directory is missing")
	}

	if err := os.MkdirAll(cfg.Input.RawMetadataPath, 0o750); err != nil {
		t.Fatal(err)
	}
	res = pipeline.Run(context.Background(), NewImportMetadata(cfg.Input, store))
	if res.Status != pipeline.StatusEmpty || !models.IsEmptyInput(res.Err) {
		t.Errorf("empty dir result = %+v, want empty with EmptyInputError", res)
	}
}

func TestNormalizeFeatures(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeMetadata(t, cfg)
	store := newMemStore()
	ctx := context.Background()

	pipeline.Run(ctx, NewImportMetadata(cfg.Input, store))
	res := pipeline.Run(ctx, NewNormalizeFeatures(cfg.Input, store))
	if res.Status != pipeline.StatusSuccess {
		t.Fatalf("result = %+v", res)
	}

	got := make(map[string]float64)
	for _, e := range store.vectors[models.VectorFeature] {
		got[e.Entity+"|"+e.Dimension] = e.Value
	}

	// Numeric fields scale to [0, 1]; the minimum scales to 0 and is pruned.
	checks := map[string]float64{
		"ascat_l2|platform=metop-a": 1,
		"modis|platform=terra":      1,
		"modis|platform=aqua":       1,
		"qscat_l2|resolution":       1,
		"ascat_l2|resolution":       (12.5 - 4) / 21.0,
		"ascat_l2|processing_level": 0,
	}
	for key, want := range checks {
		v, ok := got[key]
		if want == 0 {
			if ok {
				t.Errorf("%s = %v, want pruned", key, v)
			}
			continue
		}
		if !ok || v != want {
			t.Errorf("%s = %v (present %v), want %v", key, v, ok, want)
		}
	}
	if _, ok := got["modis|resolution"]; ok {
		t.Error("minimum numeric value scales to 0 and should be pruned")
	}
}

func TestRecommendEngine_ProcessWritesCategories(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeMetadata(t, cfg)
	writeFile(t, cfg.Input.SessionLogPath, "session_id,item_id\nu1,ascat_l2\nu1,qscat_l2\nu2,ascat_l2\nu2,qscat_l2\nu3,modis\n")
	store := newMemStore()

	e := NewRecommendEngine(cfg, store, zerolog.Nop())
	reports, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, report := range reports {
		if n := report.Count(pipeline.StatusFailed); n != 0 {
			t.Errorf("%s phase had %d failed stages: %+v", report.Phase, n, report.Results)
		}
	}

	if w, ok := store.linkage(models.CategoryContent, "ascat_l2", "qscat_l2"); !ok || w <= 0 {
		t.Errorf("content ascat-qscat = %v, %v; want positive linkage", w, ok)
	}
	if store.count(models.CategoryFeature) == 0 {
		t.Error("feature category should have linkages")
	}

	// ascat and qscat appear in exactly the same sessions.
	if w, ok := store.linkage(models.CategorySession, "ascat_l2", "qscat_l2"); !ok || w != 1.0 {
		t.Errorf("session ascat-qscat = %v, %v; want exactly 1.0", w, ok)
	}
	if _, ok := store.linkage(models.CategorySession, "ascat_l2", "modis"); ok {
		t.Error("items sharing no session must not be linked when shared_only is set")
	}
}

func TestRecommendEngine_LinkagesUseStoredIDs(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeMetadata(t, cfg)
	store := newMemStore()

	if _, err := NewRecommendEngine(cfg, store, zerolog.Nop()).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	docs, _ := store.ListMetadata(context.Background())
	ids := make(map[string]bool, len(docs))
	for _, d := range docs {
		ids[d.ID] = true
	}

	for _, category := range []models.Category{models.CategoryContent, models.CategoryFeature} {
		if store.count(category) == 0 {
			t.Errorf("%s category is empty", category)
		}
		store.mu.Lock()
		for key := range store.linkages[category] {
			for _, concept := range []string{key.A, key.B} {
				if !ids[concept] {
					t.Errorf("%s linkage concept %q is not a stored metadata id (ids %v)", category, concept, ids)
				}
			}
		}
		store.mu.Unlock()
	}
}

func TestSessionBasedCF_SVD(t *testing.T) {
	store := newMemStore()
	b := matrix.NewBuilder(matrix.Accumulate)
	b.Add("i1", "s1", 1)
	b.Add("i2", "s1", 1)
	b.Add("i1", "s2", 2)
	b.Add("i2", "s2", 2)
	b.Add("i3", "s2", 1)
	b.Add("i3", "s3", 4)
	m, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	store.vectors[models.VectorSession] = m.Entries()

	stage := NewSessionBasedCF(config.SessionSimilarityConfig{UseSVD: true, SVDRank: 50, SharedOnly: true}, 2, store)
	res := pipeline.Run(context.Background(), stage)
	if res.Status != pipeline.StatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	if w, ok := store.linkage(models.CategorySession, "i1", "i2"); !ok || w < 0.999999 {
		t.Errorf("identical rows after clamped SVD = %v, %v; want 1.0", w, ok)
	}
}

func TestSimilarityStage_NoVectors(t *testing.T) {
	store := newMemStore()
	store.linkages[models.CategoryFeature] = map[models.PairKey]float64{models.NewPairKey("a", "b"): 0.5}

	res := pipeline.Run(context.Background(), NewFeatureBasedSimilarity(config.ScoreConfig{}, 1, store))
	if res.Status != pipeline.StatusEmpty || !models.IsEmptyInput(res.Err) {
		t.Errorf("result = %+v, want empty", res)
	}
	if store.count(models.CategoryFeature) != 0 {
		t.Error("stale feature linkages should be cleared")
	}
}

func TestSimilarityStage_StoreUnavailable(t *testing.T) {
	store := newMemStore()
	store.failLinkages = true

	res := pipeline.Run(context.Background(), NewFeatureBasedSimilarity(config.ScoreConfig{}, 1, store))
	if res.Status != pipeline.StatusFailed || !models.IsStoreUnavailable(res.Err) {
		t.Errorf("result = %+v, want failed with StoreUnavailableError", res)
	}
	if store.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1 even after failure", store.refreshes)
	}
}

func TestClickStreamAnalyzer_MissingFile(t *testing.T) {
	cfg := testConfig(t.TempDir())
	store := newMemStore()
	store.linkages[models.CategoryClickstream] = map[models.PairKey]float64{models.NewPairKey("a", "b"): 0.5}

	e := NewWeblogEngine(cfg, store, zerolog.Nop())
	report, err := e.Process(context.Background())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if report.Results[0].Status != pipeline.StatusEmpty {
		t.Errorf("status = %s, want empty", report.Results[0].Status)
	}
	if store.count(models.CategoryClickstream) != 0 {
		t.Error("clickstream category should be empty")
	}
	if store.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", store.refreshes)
	}
}

const clickstreamCSV = `query,ascat_l2,qscat_l2,modis
ocean wind,5,4,0
sea wind,5,4,0
sst,0,0,7
`

func TestClickStreamAnalyzer_File(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeFile(t, cfg.Input.ClickstreamPath, clickstreamCSV)

	for round := 0; round < 2; round++ {
		store := newMemStore()
		res := pipeline.Run(context.Background(), NewClickStreamAnalyzer(cfg, store))
		if res.Status != pipeline.StatusSuccess {
			t.Fatalf("round %d result = %+v", round, res)
		}
		if w, ok := store.linkage(models.CategoryClickstream, "ocean wind", "sea wind"); !ok || w < 0.999999 {
			t.Errorf("round %d: ocean wind ~ sea wind = %v, %v; want 1.0", round, w, ok)
		}
		if _, ok := store.linkage(models.CategoryClickstream, "ocean wind", "sst"); ok {
			t.Errorf("round %d: orthogonal queries should not be linked", round)
		}
		if len(store.clicks) != 5 {
			t.Errorf("round %d: imported %d click records, want 5", round, len(store.clicks))
		}
	}

	if _, err := os.Stat(cfg.SVD.OutputPath); err != nil {
		t.Errorf("svd output not written: %v", err)
	}
}

func TestClickStreamAnalyzer_ExecuteInput(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.SVD.OutputPath = ""
	store := newMemStore()
	stage := NewClickStreamAnalyzer(cfg, store)

	if res := pipeline.RunInput(context.Background(), stage, "not a matrix"); res.Status != pipeline.StatusSkipped {
		t.Errorf("non-matrix input status = %s, want skipped", res.Status)
	}

	b := matrix.NewBuilder(matrix.Accumulate)
	b.Add("q1", "d1", 2)
	b.Add("q2", "d1", 1)
	b.Add("q3", "d2", 1)
	m, _ := b.Build()

	res := pipeline.RunInput(context.Background(), stage, m)
	if res.Status != pipeline.StatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	if w, ok := store.linkage(models.CategoryClickstream, "q1", "q2"); !ok || w < 0.999999 {
		t.Errorf("q1 ~ q2 = %v, %v", w, ok)
	}
}

func TestNewEngines(t *testing.T) {
	cfg := testConfig(t.TempDir())
	tests := []struct {
		which string
		want  []string
	}{
		{"recommend", []string{RecommendEngine}},
		{"weblog", []string{WeblogEngine}},
		{"all", []string{RecommendEngine, WeblogEngine}},
	}
	for _, tt := range tests {
		t.Run(tt.which, func(t *testing.T) {
			engines, err := NewEngines(tt.which, cfg, newMemStore(), zerolog.Nop())
			if err != nil {
				t.Fatal(err)
			}
			if len(engines) != len(tt.want) {
				t.Fatalf("got %d engines", len(engines))
			}
			for i, e := range engines {
				if e.Name() != tt.want[i] {
					t.Errorf("engine %d = %s, want %s", i, e.Name(), tt.want[i])
				}
			}
		})
	}

	var unknown *UnknownEngineError
	if _, err := NewEngines("bogus", cfg, newMemStore(), zerolog.Nop()); !errors.As(err, &unknown) {
		t.Errorf("NewEngines(bogus) error = %v", err)
	}
}
