// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/linkage/internal/database"
	"github.com/tomtom215/linkage/internal/export"
	"github.com/tomtom215/linkage/internal/models"
)

func newExportCmd(a *app) *cobra.Command {
	var categories []string
	var dir string
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Write stored linkages to Parquet files",
		GroupID: "serving",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.New(a.cfg.Store)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			if dir == "" {
				dir = a.cfg.Export.Dir
			}
			cats := make([]models.Category, len(categories))
			for i, c := range categories {
				cats[i] = models.Category(c)
			}

			files, err := export.New(db, dir, db.IndexName()).Export(cmd.Context(), cats...)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(a.stdout, "%-12s %6d rows  %s\n", f.Category, f.Rows, f.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&categories, "category", nil, "categories to export (default: all)")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default: export.dir)")
	return cmd
}
