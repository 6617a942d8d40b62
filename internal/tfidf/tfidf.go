// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

// Package tfidf turns metadata text into TF-IDF weighted term vectors.
//
// Term frequency is the raw count divided by document length. Inverse
// document frequency is smoothed, idf = ln((1+N)/(1+df)) + 1, so terms that
// occur in every document keep a small positive weight instead of vanishing.
package tfidf

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Document is a unit of text to weight, identified by ID.
type Document struct {
	ID   string
	Text string
}

// Corpus holds per-document term frequencies and corpus document frequencies.
type Corpus struct {
	ids      []string
	tf       []map[string]float64
	docFreqs map[string]int
}

// NewCorpus tokenizes every document. Documents with no tokens are kept so
// that document frequencies reflect the whole corpus, but they yield empty
// vectors.
func NewCorpus(docs []Document) *Corpus {
	c := &Corpus{
		ids:      make([]string, len(docs)),
		tf:       make([]map[string]float64, len(docs)),
		docFreqs: make(map[string]int),
	}

	for i, doc := range docs {
		c.ids[i] = doc.ID
		tokens := Tokenize(doc.Text)
		c.tf[i] = termFrequency(tokens)
		for term := range c.tf[i] {
			c.docFreqs[term]++
		}
	}
	return c
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.ids) }

// Vocabulary returns the sorted set of terms in the corpus.
func (c *Corpus) Vocabulary() []string {
	out := make([]string, 0, len(c.docFreqs))
	for term := range c.docFreqs {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// IDF returns the smoothed inverse document frequency of term.
func (c *Corpus) IDF(term string) float64 {
	n := float64(len(c.ids))
	return math.Log((1+n)/(1+float64(c.docFreqs[term]))) + 1
}

// Vector returns the TF-IDF weights of document i.
func (c *Corpus) Vector(i int) map[string]float64 {
	out := make(map[string]float64, len(c.tf[i]))
	for term, tf := range c.tf[i] {
		out[term] = tf * c.IDF(term)
	}
	return out
}

// Each calls fn with the id and TF-IDF vector of every document in order.
func (c *Corpus) Each(fn func(id string, vector map[string]float64)) {
	for i, id := range c.ids {
		fn(id, c.Vector(i))
	}
}

func termFrequency(tokens []string) map[string]float64 {
	tf := make(map[string]float64)
	if len(tokens) == 0 {
		return tf
	}
	for _, t := range tokens {
		tf[t]++
	}
	total := float64(len(tokens))
	for t := range tf {
		tf[t] /= total
	}
	return tf
}

// Tokenize lowercases text, splits on anything that is not a letter or
// digit, drops stopwords and one-character words, and strips common
// English suffixes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, word := range fields {
		if len(word) < 2 || stopwords[word] {
			continue
		}
		tokens = append(tokens, stem(word))
	}
	return tokens
}

var suffixes = []string{
	"ations", "ation", "tion", "sion", "ment", "ness", "ings", "ing",
	"ies", "ied", "ers", "est", "ly", "ed", "er", "es", "s",
}

// stem removes the first matching suffix while keeping at least a
// four-letter stem.
func stem(word string) string {
	for _, suffix := range suffixes {
		if len(word) > len(suffix)+3 && strings.HasSuffix(word, suffix) {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

var stopwords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "all": true,
	"also": true, "an": true, "and": true, "any": true, "are": true,
	"as": true, "at": true, "be": true, "been": true, "being": true,
	"between": true, "both": true, "but": true, "by": true, "can": true,
	"data": true, "dataset": true, "do": true, "does": true, "each": true,
	"for": true, "from": true, "had": true, "has": true, "have": true,
	"in": true, "into": true, "is": true, "it": true, "its": true,
	"may": true, "more": true, "most": true, "no": true, "not": true,
	"of": true, "on": true, "or": true, "other": true, "over": true,
	"such": true, "than": true, "that": true, "the": true, "their": true,
	"these": true, "this": true, "those": true, "through": true, "to": true,
	"under": true, "was": true, "were": true, "which": true, "while": true,
	"with": true, "within": true,
}
