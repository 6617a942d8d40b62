// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package cache

import (
	"fmt"
	"sync"
	"testing"
)

func values(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = v.Value
	}
	return out
}

func TestTrie_InsertAndContains(t *testing.T) {
	trie := NewTrie(0)

	if !trie.Insert("Ocean Wind", 1) {
		t.Error("Insert should return true for new value")
	}
	if trie.Insert("ocean wind", 2) {
		t.Error("Insert should return false for a case variant")
	}
	if trie.Insert("   ", 1) {
		t.Error("Insert should ignore blank values")
	}

	if trie.Size() != 1 {
		t.Errorf("Size() = %d, want 1", trie.Size())
	}
	if !trie.Contains("OCEAN WIND") {
		t.Error("Contains should match case-insensitively")
	}
	if trie.Contains("ocean") {
		t.Error("Contains should not match a prefix")
	}

	got := trie.Autocomplete("oc", 0)
	if len(got) != 1 || got[0].Value != "Ocean Wind" || got[0].Weight != 3 || got[0].Count != 2 {
		t.Errorf("Autocomplete() = %+v, want one accumulated entry keeping the first spelling", got)
	}
}

func TestTrie_Autocomplete(t *testing.T) {
	trie := NewTrie(0)
	trie.Insert("ocean temperature", 0.5)
	trie.Insert("ocean wind", 2.0)
	trie.Insert("ocean color", 0.5)
	trie.Insert("sea ice", 5.0)

	tests := []struct {
		name   string
		prefix string
		limit  int
		want   []string
	}{
		{"ranked by weight then name", "ocean", 0, []string{"ocean wind", "ocean color", "ocean temperature"}},
		{"limit", "OCEAN", 2, []string{"ocean wind", "ocean color"}},
		{"no match", "land", 0, nil},
		{"blank prefix", "  ", 0, nil},
		{"exact", "sea ice", 0, []string{"sea ice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := values(trie.Autocomplete(tt.prefix, tt.limit))
			if len(got) != len(tt.want) {
				t.Fatalf("Autocomplete(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Autocomplete(%q)[%d] = %q, want %q", tt.prefix, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTrie_DefaultLimit(t *testing.T) {
	trie := NewTrie(3)
	for i := 0; i < 5; i++ {
		trie.Insert(fmt.Sprintf("sst%d", i), 1)
	}
	if got := trie.Autocomplete("sst", 0); len(got) != 3 {
		t.Errorf("Autocomplete() returned %d suggestions, want 3", len(got))
	}
}

func TestTrie_ReplaceAndClear(t *testing.T) {
	trie := NewTrie(0)
	trie.Insert("old concept", 1)

	trie.Replace([]Entry{{Value: "new one", Weight: 1}, {Value: "new two", Weight: 2}})
	if trie.Contains("old concept") {
		t.Error("Replace should drop previous concepts")
	}
	if trie.Size() != 2 {
		t.Errorf("Size() = %d, want 2", trie.Size())
	}

	trie.Clear()
	if trie.Size() != 0 || len(trie.Autocomplete("new", 0)) != 0 {
		t.Error("Clear should empty the trie")
	}
}

func TestTrie_Concurrent(t *testing.T) {
	trie := NewTrie(0)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				trie.Insert(fmt.Sprintf("concept-%d-%d", n, j), 1)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				trie.Autocomplete("concept", 5)
			}
		}()
	}
	wg.Wait()

	if trie.Size() != 400 {
		t.Errorf("Size() = %d, want 400", trie.Size())
	}
}
