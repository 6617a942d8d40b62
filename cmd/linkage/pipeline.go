// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/linkage/internal/logging"
	"github.com/tomtom215/linkage/internal/pipeline"
	"github.com/tomtom215/linkage/internal/supervisor/services"
)

type phaseSpec struct {
	phase pipeline.Phase
	short string
	run   func(*pipeline.Engine, context.Context) (pipeline.PhaseReport, error)
}

var (
	phasePreprocess = phaseSpec{pipeline.PhasePreprocess, "Import inputs and build vectors", (*pipeline.Engine).Preprocess}
	phaseProcess    = phaseSpec{pipeline.PhaseProcess, "Score similarity and write linkages", (*pipeline.Engine).Process}
	phaseOutput     = phaseSpec{pipeline.PhaseOutput, "Run the terminal output phase", (*pipeline.Engine).Output}
)

const engineFlagUsage = "engine to run: recommend, weblog or all"

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newPhaseCmd(a *app, spec phaseSpec) *cobra.Command {
	var engine string
	cmd := &cobra.Command{
		Use:     string(spec.phase),
		Short:   spec.short,
		GroupID: "pipeline",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.close()

			engines, err := a.engines(engine, d)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			ctx = logging.ContextWithRunID(ctx, logging.NewRunID())

			for _, e := range engines {
				report, err := spec.run(e, ctx)
				printReport(a.stdout, report)
				if err != nil {
					return fmt.Errorf("%s %s: %w", e.Name(), spec.phase, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "all", engineFlagUsage)
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var engine string
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run preprocess, process and output once",
		GroupID: "pipeline",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.close()

			engines, err := a.engines(engine, d)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			svc := services.NewPipelineService(asServiceEngines(engines), services.PipelineServiceConfig{}, logging.Logger())
			runErr := svc.Run(ctx)

			runs, err := d.history.Recent(1)
			if err == nil && len(runs) > 0 {
				for _, phase := range runs[0].Phases {
					printPhaseRecord(a.stdout, phase.Engine, phase.Phase, phase.Stages)
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "all", engineFlagUsage)
	return cmd
}

func asServiceEngines(engines []*pipeline.Engine) []services.Engine {
	out := make([]services.Engine, len(engines))
	for i, e := range engines {
		out[i] = e
	}
	return out
}

func printReport(w io.Writer, report pipeline.PhaseReport) {
	fmt.Fprintf(w, "%s %s (%s)\n", report.Engine, report.Phase, report.Elapsed().Round(time.Millisecond))
	for _, r := range report.Results {
		line := fmt.Sprintf("  %-22s %-8s items=%d", r.Stage, r.Status, r.Items)
		if r.Err != nil {
			line += " error=" + r.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
}
