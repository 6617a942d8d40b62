// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

/*
Package services adapts application components to suture.Service.

Each wrapper turns a component lifecycle into suture's context-aware
Serve(ctx) error and names itself through fmt.Stringer for the event log.

# Available Services

PipelineService:
  - runs the recommend then weblog engines on startup and on a ticker
  - serializes runs with a mutex; TryRun reports ErrRunInProgress
  - logs run failures instead of returning them, so bad input never
    triggers supervisor restarts

HTTPServerService:
  - runs *http.Server.ListenAndServe in a goroutine
  - calls Shutdown with a bounded context on cancellation
  - treats http.ErrServerClosed as a clean stop
*/
package services
