// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

/*
Package runlog keeps the history of pipeline runs in BadgerDB.

Every phase report an engine produces is stored under

	run/<run id>/<engine>/<phase>

as JSON with a TTL equal to the configured retention, so old history
expires without a cleanup job. Store implements pipeline.Recorder and is
handed to engines with pipeline.WithRecorder.

Recent groups the stored phase reports by run id and returns the newest
runs first. The HTTP API serves it at /api/v1/runs and the CLI prints it
with the history command.
*/
package runlog
