// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package models

import (
	"time"
)

// APIResponse is the envelope of every /api/v1 and /health response.
//
//	{
//	  "status": "success",
//	  "data": [{"concept_a": "ocean", "concept_b": "wind", "weight": 0.91}],
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 3}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       int       `json:"count,omitempty"`
}

// APIError is a machine-readable error code with a human message.
//
// Codes: VALIDATION_ERROR, NOT_FOUND, STORE_UNAVAILABLE, DATABASE_ERROR,
// RUN_IN_PROGRESS, NOT_CONFIGURED.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// AutocompleteItem is one suggestion in the jQuery UI autocomplete shape.
// Label and Value are both the suggested term.
type AutocompleteItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LinkageResponse is one linkage triple as served by the API.
type LinkageResponse struct {
	Category string  `json:"category"`
	ConceptA string  `json:"concept_a"`
	ConceptB string  `json:"concept_b"`
	Weight   float64 `json:"weight"`
}
