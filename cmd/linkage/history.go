// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/linkage/internal/runlog"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List recent pipeline runs",
		GroupID: "serving",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			history, err := runlog.Open(a.cfg.RunLog)
			if err != nil {
				return err
			}
			defer history.Close()

			runs, err := history.Recent(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.stdout, "No runs recorded.")
				return nil
			}
			for _, run := range runs {
				printRun(a.stdout, run)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}

func printRun(w io.Writer, run runlog.Run) {
	state := "ok"
	switch {
	case run.Aborted:
		state = "aborted"
	case run.Failed > 0:
		state = fmt.Sprintf("%d failed", run.Failed)
	}
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		run.ID,
		run.StartedAt.Local().Format(time.DateTime),
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		state)
	for _, phase := range run.Phases {
		printPhaseRecord(w, phase.Engine, phase.Phase, phase.Stages)
	}
}

func printPhaseRecord(w io.Writer, engine, phase string, stages []runlog.StageRecord) {
	fmt.Fprintf(w, "  %s %s\n", engine, phase)
	for _, s := range stages {
		line := fmt.Sprintf("    %-22s %-8s items=%d %dms", s.Stage, s.Status, s.Items, s.ElapsedMS)
		if s.Error != "" {
			line += " error=" + s.Error
		}
		fmt.Fprintln(w, line)
	}
}
