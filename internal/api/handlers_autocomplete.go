// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/linkage/internal/cache"
	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/models"
)

// AutocompleteQuery answers GET /autocomplete/query?term=. The response is
// a bare array of at most ten {label, value} items, strongest concept
// first. A blank term yields an empty array.
func (h *Handler) AutocompleteQuery(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))

	items := make([]models.AutocompleteItem, 0, cache.DefaultSuggestions)
	if term != "" {
		for _, s := range h.store.Autocomplete(term, cache.DefaultSuggestions) {
			items = append(items, models.AutocompleteItem{Label: s.Value, Value: s.Value})
		}
	}

	logging.Ctx(r.Context()).Debug().
		Str("term", sanitizeLogValue(term)).
		Int("suggestions", len(items)).
		Msg("Autocomplete query")

	writeJSON(w, http.StatusOK, items)
}

// AutocompleteStatus answers GET /autocomplete/status with a short HTML
// page for uptime checks.
func (h *Handler) AutocompleteStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<h1>Linkage autocomplete: running correctly...</h1>"))
}
