// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package stages

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// fields is a decoded metadata document body.
type fields map[string]any

func decodeFields(body []byte) (fields, error) {
	var f fields
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// lookup returns the value of name, matching keys case-insensitively when
// there is no exact match.
func (f fields) lookup(name string) (any, bool) {
	if v, ok := f[name]; ok {
		return v, true
	}
	for k, v := range f {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// values flattens the value of name into its string parts. Numbers and
// booleans are formatted; arrays are flattened one level deep.
func (f fields) values(name string) []string {
	v, ok := f.lookup(name)
	if !ok {
		return nil
	}
	return flatten(v)
}

func flatten(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	case float64:
		return []string{strconv.FormatFloat(t, 'g', -1, 64)}
	case bool:
		return []string{strconv.FormatBool(t)}
	case []any:
		var out []string
		for _, item := range t {
			if _, nested := item.([]any); nested {
				continue
			}
			out = append(out, flatten(item)...)
		}
		return out
	default:
		return nil
	}
}

// text joins the string parts of every name with spaces.
func (f fields) text(names []string) string {
	var parts []string
	for _, name := range names {
		parts = append(parts, f.values(name)...)
	}
	return strings.Join(parts, " ")
}

// number returns the value of name as a float when it is a JSON number or
// a numeric string.
func (f fields) number(name string) (float64, bool) {
	v, ok := f.lookup(name)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	}
	return 0, false
}
