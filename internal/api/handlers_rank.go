// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/linkage/internal/models"
)

// RankRequest is the validated form of GET /api/v1/rank.
type RankRequest struct {
	Query    string   `json:"query" validate:"required,max=256"`
	Datasets []string `json:"datasets" validate:"required,min=1,max=500,dive,max=256"`
}

// Rank orders the given datasets for a search query using click counts and
// dataset popularity.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	if h.ranker == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "Ranking is not configured", nil)
		return
	}

	req := RankRequest{
		Query:    strings.TrimSpace(r.URL.Query().Get("query")),
		Datasets: parseCommaSeparated(r.URL.Query().Get("datasets")),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	start := time.Now()
	ranked, err := h.ranker.Rank(r.Context(), req.Query, req.Datasets)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ranked, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Count:       len(ranked),
	})
}
