// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package pipeline defines the stage contract and the engine that runs
// stages in phases.
//
// An Engine owns two ordered stage lists. Preprocess turns raw input into
// stored vectors; Process turns vectors into linkage triples; Output is an
// empty terminal phase. Stages run sequentially with no retries.
//
// Failure handling per stage:
//   - missing or empty input: StatusEmpty, logged at warn, phase continues
//   - any other error, a panic, or the stage timeout: StatusFailed, phase continues
//   - models.StoreUnavailableError: the phase stops and returns the error
//
// Every finished phase is handed to the optional Recorder.
package pipeline
