// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package validation wraps go-playground/validator v10 with a thread-safe
// singleton and human-readable messages.
//
// Field names in messages come from the koanf tag (configuration structs) or
// the query tag (HTTP request structs), falling back to the Go field name.
// Nested fields are reported by their dotted path:
//
//	type Request struct {
//	    Term  string `query:"term" validate:"required,max=200"`
//	    Limit int    `query:"limit" validate:"gte=1,lte=100"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    // verr.Error() == "term is required"
//	}
package validation
