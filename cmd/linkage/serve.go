// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/linkage/internal/api"
	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/ranking"
	"github.com/tomtom215/linkage/internal/supervisor"
	"github.com/tomtom215/linkage/internal/supervisor/services"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Serve the HTTP API and run the pipeline on a schedule",
		GroupID: "serving",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	cfg := a.cfg
	logger := logging.Logger()

	d, err := a.open()
	if err != nil {
		return err
	}
	defer d.close()

	// Serve whatever the store already holds before the first run finishes.
	if err := d.db.Refresh(parent); err != nil {
		logging.Warn().Err(err).Msg("Initial autocomplete rebuild failed")
	}

	engines, err := a.engines("all", d)
	if err != nil {
		return err
	}
	pipelineSvc := services.NewPipelineService(asServiceEngines(engines), services.PipelineServiceConfig{
		RunOnStartup: cfg.Pipeline.RunOnStartup,
		Interval:     cfg.Pipeline.ScheduleInterval,
	}, logger)

	ranker, err := a.ranker(d)
	if err != nil {
		return err
	}

	router := api.NewRouter(
		api.NewHandler(d.db,
			api.WithRunHistory(d.history),
			api.WithPipelineTrigger(pipelineSvc),
			api.WithRanker(ranker),
		),
		api.NewChiMiddleware(api.MiddlewareConfigFromServer(&cfg.Server)),
		logger,
	)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(logger), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddPipelineService(pipelineSvc)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))

	ctx, stop := signalContext(parent)
	defer stop()

	logging.Info().
		Str("addr", cfg.Server.Addr).
		Bool("run_on_startup", cfg.Pipeline.RunOnStartup).
		Dur("schedule_interval", cfg.Pipeline.ScheduleInterval).
		Msg("Starting linkage server")

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("services", len(report)).Msg("Some services did not stop before the shutdown timeout")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Linkage server stopped")
	return nil
}

// ranker uses the configured model, or the built-in linear model when no
// model path is set.
func (a *app) ranker(d *deps) (*ranking.Ranker, error) {
	path := a.cfg.Ranking.ModelPath
	if path == "" {
		return ranking.NewRanker(nil, d.db), nil
	}
	model, err := ranking.LoadLinearModel(path)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("model", path).Msg("Loaded ranking model")
	return ranking.NewRanker(model, d.db), nil
}
