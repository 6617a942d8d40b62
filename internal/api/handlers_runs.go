// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/supervisor/services"
)

// RunsRequest is the validated form of GET /api/v1/runs.
type RunsRequest struct {
	Limit int `json:"limit" validate:"min=1,max=200"`
}

// Runs lists recorded pipeline runs, newest first.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "Run history is not configured", nil)
		return
	}

	req := RunsRequest{Limit: getIntParam(r, "limit", 20)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	runs, err := h.history.Recent(req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to read run history", err)
		return
	}
	respondJSON(w, http.StatusOK, runs, models.Metadata{Count: len(runs)})
}

// TriggerRun starts a pipeline run in the background and answers 202, or
// 409 while a run is already active.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "Pipeline trigger is not configured", nil)
		return
	}
	if h.trigger.Running() {
		respondError(w, http.StatusConflict, "RUN_IN_PROGRESS", "A pipeline run is already in progress", nil)
		return
	}

	// The run outlives the request.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		err := h.trigger.TryRun(ctx)
		switch {
		case errors.Is(err, services.ErrRunInProgress):
			logging.Ctx(ctx).Info().Msg("Triggered run skipped, another run started first")
		case err != nil:
			logging.Ctx(ctx).Error().Err(err).Msg("Triggered pipeline run failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{"started": true}, models.Metadata{})
}
