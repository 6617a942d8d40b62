// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package main

import (
	"fmt"

	"github.com/tomtom215/linkage/internal/database"
	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/pipeline"
	"github.com/tomtom215/linkage/internal/runlog"
	"github.com/tomtom215/linkage/internal/stages"
)

// deps holds the opened store and run log. close releases both.
type deps struct {
	db      *database.DB
	history *runlog.Store
}

func (a *app) open() (*deps, error) {
	db, err := database.New(a.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	history, err := runlog.Open(a.cfg.RunLog)
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("Error closing store")
		}
		return nil, err
	}
	return &deps{db: db, history: history}, nil
}

func (d *deps) close() {
	if err := d.history.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing run log")
	}
	if err := d.db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing store")
	}
}

// engines builds the named engines with the run log as recorder.
func (a *app) engines(which string, d *deps) ([]*pipeline.Engine, error) {
	return stages.NewEngines(which, a.cfg, d.db, logging.Logger(), pipeline.WithRecorder(d.history))
}
