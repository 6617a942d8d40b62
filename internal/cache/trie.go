// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package cache

import (
	"sort"
	"strings"
	"sync"
)

// DefaultSuggestions is the number of suggestions returned when no limit is given.
const DefaultSuggestions = 10

type trieNode struct {
	children map[rune]*trieNode
	isEnd    bool
	value    string  // original spelling of the concept
	weight   float64 // accumulated ranking weight
	count    int     // number of insertions
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// Trie is a thread-safe prefix tree over concept labels. It serves
// autocomplete: every concept that starts with a prefix, best first.
//
// Matching is case-insensitive. Suggestions rank by accumulated weight,
// then by insertion count, then alphabetically.
type Trie struct {
	mu             sync.RWMutex
	root           *trieNode
	size           int
	maxSuggestions int
}

// Suggestion is one autocomplete result.
type Suggestion struct {
	Value  string
	Weight float64
	Count  int
}

// NewTrie creates an empty trie. maxSuggestions <= 0 selects DefaultSuggestions.
func NewTrie(maxSuggestions int) *Trie {
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultSuggestions
	}
	return &Trie{root: newTrieNode(), maxSuggestions: maxSuggestions}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Insert adds value with the given weight. Inserting an existing concept
// adds to its weight and count. Returns true for a new concept.
func (t *Trie) Insert(value string, weight float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return insert(t.root, value, weight, &t.size)
}

func insert(root *trieNode, value string, weight float64, size *int) bool {
	key := normalizeKey(value)
	if key == "" {
		return false
	}

	node := root
	for _, ch := range key {
		next := node.children[ch]
		if next == nil {
			next = newTrieNode()
			node.children[ch] = next
		}
		node = next
	}

	isNew := !node.isEnd
	if isNew {
		node.isEnd = true
		node.value = strings.TrimSpace(value)
		*size++
	}
	node.weight += weight
	node.count++
	return isNew
}

// Entry is a concept and its weight for bulk loading.
type Entry struct {
	Value  string
	Weight float64
}

// Replace swaps the trie contents for entries in one step. Readers see
// either the old or the new set, never a partial rebuild.
func (t *Trie) Replace(entries []Entry) {
	root := newTrieNode()
	size := 0
	for _, e := range entries {
		insert(root, e.Value, e.Weight, &size)
	}

	t.mu.Lock()
	t.root = root
	t.size = size
	t.mu.Unlock()
}

// Contains reports whether value is a stored concept.
func (t *Trie) Contains(value string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.find(normalizeKey(value))
	return node != nil && node.isEnd
}

// find walks to the node for key (must be called with mu held).
func (t *Trie) find(key string) *trieNode {
	node := t.root
	for _, ch := range key {
		node = node.children[ch]
		if node == nil {
			return nil
		}
	}
	return node
}

// Autocomplete returns up to limit concepts starting with prefix. A limit
// <= 0 uses the trie's default. A blank prefix returns nothing.
func (t *Trie) Autocomplete(prefix string, limit int) []Suggestion {
	key := normalizeKey(prefix)
	if key == "" {
		return nil
	}
	if limit <= 0 {
		limit = t.maxSuggestions
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.find(key)
	if node == nil {
		return nil
	}

	var results []Suggestion
	collect(node, &results)

	sort.Slice(results, func(i, j int) bool {
		if results[i].Weight != results[j].Weight {
			return results[i].Weight > results[j].Weight
		}
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].Value < results[j].Value
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func collect(node *trieNode, results *[]Suggestion) {
	if node.isEnd {
		*results = append(*results, Suggestion{Value: node.value, Weight: node.weight, Count: node.count})
	}
	for _, child := range node.children {
		collect(child, results)
	}
}

// Size returns the number of distinct concepts.
func (t *Trie) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// Clear removes all concepts.
func (t *Trie) Clear() {
	t.Replace(nil)
}
