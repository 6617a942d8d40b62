// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package api

import (
	"context"
	"time"

	"github.com/tomtom215/linkage/internal/cache"
	"github.com/tomtom215/linkage/internal/database"
	"github.com/tomtom215/linkage/internal/models"
	"github.com/tomtom215/linkage/internal/ranking"
	"github.com/tomtom215/linkage/internal/runlog"
)

// Store is the read side of *database.DB the handlers use.
type Store interface {
	Ping(ctx context.Context) error
	BreakerState() string
	Autocomplete(prefix string, limit int) []cache.Suggestion
	AutocompleteSize() int
	ListLinkages(ctx context.Context, filter database.LinkageFilter) ([]models.LinkageTriple, error)
}

// RunHistory lists recorded pipeline runs.
type RunHistory interface {
	Recent(limit int) ([]runlog.Run, error)
}

// Ranker orders candidate datasets for a query.
type Ranker interface {
	Rank(ctx context.Context, query string, datasets []string) ([]ranking.Ranked, error)
}

// PipelineTrigger starts a run unless one is already active.
type PipelineTrigger interface {
	TryRun(ctx context.Context) error
	Running() bool
}

// Handler holds the HTTP handler dependencies.
type Handler struct {
	store     Store
	history   RunHistory
	ranker    Ranker
	trigger   PipelineTrigger
	startTime time.Time
}

// HandlerOption sets an optional dependency.
type HandlerOption func(*Handler)

// WithRunHistory enables GET /api/v1/runs.
func WithRunHistory(h RunHistory) HandlerOption {
	return func(hd *Handler) { hd.history = h }
}

// WithRanker enables /api/v1/rank.
func WithRanker(r Ranker) HandlerOption {
	return func(hd *Handler) { hd.ranker = r }
}

// WithPipelineTrigger enables POST /api/v1/runs.
func WithPipelineTrigger(t PipelineTrigger) HandlerOption {
	return func(hd *Handler) { hd.trigger = t }
}

// NewHandler creates a handler over store.
func NewHandler(store Store, opts ...HandlerOption) *Handler {
	h := &Handler{store: store, startTime: time.Now()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
