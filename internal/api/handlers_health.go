// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/linkage/internal/models"
)

const readinessTimeout = 2 * time.Second

// HealthLive reports that the process is up, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, models.Metadata{})
}

// HealthReady answers 200 only when the store responds to a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	pingErr := h.store.Ping(ctx)
	ready := pingErr == nil

	data := map[string]interface{}{
		"store_connected":  ready,
		"breaker_state":    h.store.BreakerState(),
		"concepts_indexed": h.store.AutocompleteSize(),
		"uptime":           time.Since(h.startTime).Seconds(),
	}
	if h.trigger != nil {
		data["run_in_progress"] = h.trigger.Running()
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "not_ready",
			Data:     data,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		})
		return
	}
	respondJSON(w, http.StatusOK, data, models.Metadata{})
}
