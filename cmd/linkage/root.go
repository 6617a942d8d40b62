// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomtom215/linkage/internal/config"
	"github.com/tomtom215/linkage/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
	stdout     io.Writer
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	a := &app{stdout: stdout}

	cmd := &cobra.Command{
		Use:           "linkage",
		Short:         "Metadata similarity pipeline",
		Long:          "linkage imports dataset metadata, session logs and clickstreams, scores concept similarity and stores linkage triples.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")

	cmd.AddGroup(
		&cobra.Group{ID: "pipeline", Title: "Pipeline:"},
		&cobra.Group{ID: "serving", Title: "Serving and results:"},
	)
	cmd.AddCommand(
		newPhaseCmd(a, phasePreprocess),
		newPhaseCmd(a, phaseProcess),
		newPhaseCmd(a, phaseOutput),
		newRunCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
		newExportCmd(a),
	)
	return cmd
}

// loadConfig loads and validates configuration, then configures logging
// from it. Logging goes to stderr so command output stays clean.
func (a *app) loadConfig() error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Debug().
		Str("store", cfg.Store.Path).
		Str("index", cfg.Store.IndexName).
		Msg("Configuration loaded")
	return nil
}
