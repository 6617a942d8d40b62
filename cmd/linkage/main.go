// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Command linkage builds concept linkages from dataset metadata, session
// logs and search clickstreams, and serves them over HTTP.
//
//	linkage run --engine all          # preprocess, process and output once
//	linkage preprocess --engine recommend
//	linkage serve                     # HTTP API plus the scheduled pipeline
//	linkage history --limit 5
//	linkage export --category content
//
// Configuration is read from --config, CONFIG_PATH or ./config.yaml, then
// overridden by environment variables (see internal/config).
package main

import (
	"os"

	"github.com/tomtom215/linkage/internal/logging"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		logging.Error().Err(err).Msg("linkage failed")
		os.Exit(1)
	}
}
