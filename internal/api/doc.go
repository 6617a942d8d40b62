// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

/*
Package api serves linkage results over HTTP with the Chi router.

# Routes

	GET  /autocomplete/query?term=       [{"label": t, "value": t}, ...]
	GET  /autocomplete/status            plain status page
	GET  /api/v1/linkages/{category}     ?concept=&limit=
	GET  /api/v1/rank                    ?query=&datasets=a,b
	GET  /api/v1/runs                    ?limit=
	POST /api/v1/runs                    start a pipeline run (202, or 409 while one is active)
	GET  /health/live
	GET  /health/ready                   store ping and breaker state
	GET  /metrics                        Prometheus exposition

The autocomplete routes keep the bare-array response of the search UI
widget. Everything under /api/v1 and /health uses the models.APIResponse
envelope.

# Middleware

Global: request id with logging context, chi RealIP, chi Recoverer,
zerolog access log, Prometheus request metrics and go-chi/cors. The
/api/v1 and /autocomplete groups are rate limited per client IP with
go-chi/httprate; health and metrics are not.

# Optional dependencies

The ranker, run history and pipeline trigger may be nil. Their routes then
answer 503 with code NOT_CONFIGURED.
*/
package api
