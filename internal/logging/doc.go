// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package logging provides centralized zerolog-based structured logging.
//
// The global logger is configured once at startup from the logging section
// of the configuration:
//
//	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
//
// Pipeline runs carry a run id in their context. Ctx adds it, and the HTTP
// request id when present, to every log line:
//
//	ctx = logging.ContextWithRunID(ctx, logging.NewRunID())
//	logging.Ctx(ctx).Info().Str("stage", "ClickStreamAnalyzer").Msg("Stage finished")
//
// Components that are handed a logger (stores, caches, services) receive a
// zerolog.Logger value; tests pass zerolog.Nop().
//
// SlogHandler bridges slog-based libraries, such as sutureslog, onto the
// same zerolog stream.
//
// Always terminate log chains with .Msg() or .Send().
package logging
