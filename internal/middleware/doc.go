// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

/*
Package middleware provides HTTP middleware that is independent of the API
handlers.

Compression gzips responses for clients that send Accept-Encoding: gzip.
Linkage listings can run to thousands of rows, so the /api/v1 routes are
mounted behind it:

	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.Compression)
	    r.Get("/linkages/{category}", h.Linkages)
	})

Gzip writers are pooled. Responses that never write a body (204, 304, HEAD)
are passed through without a Content-Encoding header.
*/
package middleware
