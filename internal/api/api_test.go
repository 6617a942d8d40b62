// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package api

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/linkage/internal/cache"
	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/database"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/ranking"
	"github.com/tomtom215/linkage/internal/runlog"
	"github.com/tomtom215/linkage/internal/supervisor/services"
)

type fakeStore struct {
	pingErr    error
	listErr    error
	trie       *cache.Trie
	triples    []models.LinkageTriple
	lastFilter database.LinkageFilter
}

func newFakeStore() *fakeStore {
	trie := cache.NewTrie(0)
	trie.Replace([]cache.Entry{
		{Value: "ocean wind", Weight: 3},
		{Value: "ocean temperature", Weight: 5},
		{Value: "ice", Weight: 1},
	})
	return &fakeStore{
		trie: trie,
		triples: []models.LinkageTriple{
			models.NewLinkageTriple("ocean", "wind", 0.9),
			models.NewLinkageTriple("ice", "ocean", 0.4),
		},
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }
func (f *fakeStore) BreakerState() string       { return "closed" }
func (f *fakeStore) AutocompleteSize() int      { return f.trie.Size() }

func (f *fakeStore) Autocomplete(prefix string, limit int) []cache.Suggestion {
	return f.trie.Autocomplete(prefix, limit)
}

func (f *fakeStore) ListLinkages(_ context.Context, filter database.LinkageFilter) ([]models.LinkageTriple, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.triples, nil
}

type fakeHistory struct{ runs []runlog.Run }

func (f *fakeHistory) Recent(limit int) ([]runlog.Run, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

type fakeRanker struct{}

func (fakeRanker) Rank(_ context.Context, _ string, datasets []string) ([]ranking.Ranked, error) {
	out := make([]ranking.Ranked, len(datasets))
	for i, d := range datasets {
		out[i] = ranking.Ranked{Dataset: d, Score: float64(len(datasets) - i)}
	}
	return out, nil
}

type fakeTrigger struct {
	mu      sync.Mutex
	running bool
	calls   int
	done    chan struct{}
}

func (f *fakeTrigger) TryRun(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.done != nil {
		close(f.done)
	}
	if f.running {
		return services.ErrRunInProgress
	}
	return nil
}

func (f *fakeTrigger) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func newTestServer(t *testing.T, store *fakeStore, opts ...HandlerOption) http.Handler {
	t.Helper()
	mw := NewChiMiddleware(MiddlewareConfigFromServer(&config.ServerConfig{
		RateLimitRequests: 0,
		RateLimitWindow:   time.Minute,
	}))
	return NewRouter(NewHandler(store, opts...), mw, zerolog.Nop()).SetupChi()
}

func doRequest(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) models.APIResponse {
	t.Helper()
	var resp struct {
		Status   string           `json:"status"`
		Data     json.RawMessage  `json:"data"`
		Metadata models.Metadata  `json:"metadata"`
		Error    *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	if data != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return models.APIResponse{Status: resp.Status, Metadata: resp.Metadata, Error: resp.Error}
}

func TestAutocompleteQuery(t *testing.T) {
	srv := newTestServer(t, newFakeStore())

	tests := []struct {
		name string
		term string
		want []string
	}{
		{"prefix ranked by weight", "oce", []string{"ocean temperature", "ocean wind"}},
		{"case insensitive", "OCEAN%20W", []string{"ocean wind"}},
		{"no match", "zzz", []string{}},
		{"blank term", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(srv, http.MethodGet, "/autocomplete/query?term="+tt.term)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			var items []models.AutocompleteItem
			if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
				t.Fatalf("body %q is not an array: %v", w.Body.String(), err)
			}
			if len(items) != len(tt.want) {
				t.Fatalf("items = %+v, want %v", items, tt.want)
			}
			for i, want := range tt.want {
				if items[i].Label != want || items[i].Value != want {
					t.Errorf("item %d = %+v, want label and value %q", i, items[i], want)
				}
			}
		})
	}
}

func TestAutocompleteStatus(t *testing.T) {
	w := doRequest(newTestServer(t, newFakeStore()), http.MethodGet, "/autocomplete/status")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "running") {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestLinkages(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store)

	w := doRequest(srv, http.MethodGet, "/api/v1/linkages/Content?concept=Ocean&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var got []models.LinkageResponse
	resp := decodeEnvelope(t, w, &got)
	if resp.Status != "success" || resp.Metadata.Count != 2 {
		t.Errorf("envelope = %+v", resp)
	}
	if len(got) != 2 || got[0].Category != "content" || got[0].ConceptA != "ocean" {
		t.Errorf("data = %+v", got)
	}
	want := database.LinkageFilter{Category: models.CategoryContent, Concept: "ocean", Limit: 5}
	if store.lastFilter != want {
		t.Errorf("filter = %+v, want %+v", store.lastFilter, want)
	}
}

func TestLinkages_Gzip(t *testing.T) {
	srv := newTestServer(t, newFakeStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/linkages/content", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", w.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !strings.Contains(string(body), `"status":"success"`) {
		t.Errorf("decompressed body = %s", body)
	}
}

func TestLinkages_Validation(t *testing.T) {
	srv := newTestServer(t, newFakeStore())

	for _, target := range []string{
		"/api/v1/linkages/bogus",
		"/api/v1/linkages/content?limit=5000",
	} {
		w := doRequest(srv, http.MethodGet, target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, w.Code)
			continue
		}
		if resp := decodeEnvelope(t, w, nil); resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("%s error = %+v", target, resp.Error)
		}
	}
}

func TestLinkages_StoreErrors(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store)

	store.listErr = &models.StoreUnavailableError{Op: "list_linkages", Err: errors.New("closed")}
	if w := doRequest(srv, http.MethodGet, "/api/v1/linkages/session"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unavailable store status = %d, want 503", w.Code)
	}

	store.listErr = errors.New("syntax error")
	if w := doRequest(srv, http.MethodGet, "/api/v1/linkages/session"); w.Code != http.StatusInternalServerError {
		t.Errorf("query failure status = %d, want 500", w.Code)
	}
}

func TestRank(t *testing.T) {
	unconfigured := newTestServer(t, newFakeStore())
	if w := doRequest(unconfigured, http.MethodGet, "/api/v1/rank?query=sst&datasets=a"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d, want 503", w.Code)
	}

	srv := newTestServer(t, newFakeStore(), WithRanker(fakeRanker{}))
	w := doRequest(srv, http.MethodGet, "/api/v1/rank?query=sst&datasets=a,%20b,,c")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var got []ranking.Ranked
	decodeEnvelope(t, w, &got)
	if len(got) != 3 || got[1].Dataset != "b" {
		t.Errorf("ranked = %+v", got)
	}

	if w := doRequest(srv, http.MethodGet, "/api/v1/rank?datasets=a"); w.Code != http.StatusBadRequest {
		t.Errorf("missing query status = %d, want 400", w.Code)
	}
}

func TestRuns(t *testing.T) {
	history := &fakeHistory{runs: []runlog.Run{{ID: "r2"}, {ID: "r1"}}}
	srv := newTestServer(t, newFakeStore(), WithRunHistory(history))

	w := doRequest(srv, http.MethodGet, "/api/v1/runs?limit=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got []runlog.Run
	decodeEnvelope(t, w, &got)
	if len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("runs = %+v", got)
	}

	if w := doRequest(srv, http.MethodGet, "/api/v1/runs?limit=0"); w.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", w.Code)
	}
}

func TestTriggerRun(t *testing.T) {
	trigger := &fakeTrigger{done: make(chan struct{})}
	srv := newTestServer(t, newFakeStore(), WithPipelineTrigger(trigger))

	w := doRequest(srv, http.MethodPost, "/api/v1/runs")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	select {
	case <-trigger.done:
	case <-time.After(2 * time.Second):
		t.Fatal("TryRun was not called")
	}

	trigger.mu.Lock()
	trigger.running = true
	trigger.mu.Unlock()
	if w := doRequest(srv, http.MethodPost, "/api/v1/runs"); w.Code != http.StatusConflict {
		t.Errorf("status while running = %d, want 409", w.Code)
	}
}

func TestHealth(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store)

	if w := doRequest(srv, http.MethodGet, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("live status = %d", w.Code)
	}

	w := doRequest(srv, http.MethodGet, "/health/ready")
	if w.Code != http.StatusOK {
		t.Errorf("ready status = %d", w.Code)
	}
	var data map[string]interface{}
	decodeEnvelope(t, w, &data)
	if data["breaker_state"] != "closed" || data["concepts_indexed"] != float64(3) {
		t.Errorf("ready data = %v", data)
	}

	store.pingErr = errors.New("database is closed")
	w = doRequest(srv, http.MethodGet, "/health/ready")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status with failing ping = %d, want 503", w.Code)
	}
	if resp := decodeEnvelope(t, w, nil); resp.Status != "not_ready" {
		t.Errorf("status = %q, want not_ready", resp.Status)
	}
}

func TestRouter_MetricsAndNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeStore())

	doRequest(srv, http.MethodGet, "/health/live")
	w := doRequest(srv, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "linkage_http_requests_total") {
		t.Errorf("metrics status = %d, missing request counter", w.Code)
	}

	if w := doRequest(srv, http.MethodGet, "/nope"); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", w.Code)
	}
	if w := doRequest(srv, http.MethodDelete, "/api/v1/runs"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/v1/runs status = %d, want 405", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	srv := NewRouter(NewHandler(newFakeStore()), mw, zerolog.Nop()).SetupChi()

	var last int
	for i := 0; i < 3; i++ {
		last = doRequest(srv, http.MethodGet, "/autocomplete/status").Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
	if w := doRequest(srv, http.MethodGet, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("health should not be rate limited, got %d", w.Code)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
