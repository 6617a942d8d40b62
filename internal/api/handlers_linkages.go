// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/linkage/internal/database"
	"github.com/tomtom215/linkage/internal/models"
)

// LinkagesRequest is the validated form of GET /api/v1/linkages/{category}.
type LinkagesRequest struct {
	Category string `json:"category" validate:"required,category"`
	Concept  string `json:"concept" validate:"max=256"`
	Limit    int    `json:"limit" validate:"min=1,max=1000"`
}

// Linkages lists the triples of one category, strongest first, optionally
// restricted to those touching concept.
func (h *Handler) Linkages(w http.ResponseWriter, r *http.Request) {
	req := LinkagesRequest{
		Category: strings.ToLower(chi.URLParam(r, "category")),
		Concept:  strings.ToLower(strings.TrimSpace(r.URL.Query().Get("concept"))),
		Limit:    getIntParam(r, "limit", 100),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	start := time.Now()
	triples, err := h.store.ListLinkages(r.Context(), database.LinkageFilter{
		Category: models.Category(req.Category),
		Concept:  req.Concept,
		Limit:    req.Limit,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	out := make([]models.LinkageResponse, len(triples))
	for i, t := range triples {
		out[i] = models.LinkageResponse{
			Category: req.Category,
			ConceptA: t.ConceptA,
			ConceptB: t.ConceptB,
			Weight:   t.Weight,
		}
	}
	respondJSON(w, http.StatusOK, out, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Count:       len(out),
	})
}
