// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package tfidf

import (
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"stopwords and case", "The Ocean and the WIND", []string{"ocean", "wind"}},
		{"punctuation", "sea-surface temperature (SST), level-2", []string{"sea", "surface", "temperature", "sst", "level"}},
		{"stemming", "measurements of winds", []string{"measurement", "wind"}},
		{"short words dropped", "a b c x1", []string{"x1"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCorpus_Weights(t *testing.T) {
	c := NewCorpus([]Document{
		{ID: "d1", Text: "ocean wind ocean"},
		{ID: "d2", Text: "ocean ice"},
		{ID: "d3", Text: ""},
	})

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if got := c.Vocabulary(); !reflect.DeepEqual(got, []string{"ice", "ocean", "wind"}) {
		t.Errorf("Vocabulary() = %v", got)
	}

	// ocean appears in 2 of 3 docs, wind in 1 of 3.
	if c.IDF("ocean") >= c.IDF("wind") {
		t.Errorf("IDF(ocean)=%v should be below IDF(wind)=%v", c.IDF("ocean"), c.IDF("wind"))
	}

	v := c.Vector(0)
	wantOcean := (2.0 / 3.0) * (math.Log(4.0/3.0) + 1)
	if math.Abs(v["ocean"]-wantOcean) > 1e-12 {
		t.Errorf("Vector(0)[ocean] = %v, want %v", v["ocean"], wantOcean)
	}
	if len(c.Vector(2)) != 0 {
		t.Errorf("empty document should have empty vector, got %v", c.Vector(2))
	}
}

func TestCorpus_Each(t *testing.T) {
	c := NewCorpus([]Document{{ID: "a", Text: "ocean"}, {ID: "b", Text: "wind"}})
	var ids []string
	c.Each(func(id string, _ map[string]float64) {
		ids = append(ids, id)
	})
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Errorf("Each visited %v, want [a b]", ids)
	}
}
