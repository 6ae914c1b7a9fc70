// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package embedding

import (
	"fmt"
	"math"
	"sort"
)

// sparseRow is one L2-normalized TF-IDF row with column indices ascending.
type sparseRow struct {
	idx []int
	val []float64
}

// vectorizer is a fitted TF-IDF model: a sorted vocabulary and its smoothed IDF.
type vectorizer struct {
	terms    []string
	vocab    map[string]int
	idf      []float64
	ngramMax int
	keepStop bool
}

// fitVectorizer learns the vocabulary and IDF from texts and returns the
// weighted rows of the same texts. Stop words are dropped.
func fitVectorizer(texts []string, maxFeatures, ngramMax int) (*vectorizer, []sparseRow) {
	return fit(texts, maxFeatures, ngramMax, false)
}

func fit(texts []string, maxFeatures, ngramMax int, keepStop bool) (*vectorizer, []sparseRow) {
	docCounts := make([]map[string]int, len(texts))
	corpus := make(map[string]int)
	df := make(map[string]int)

	for i, text := range texts {
		counts := make(map[string]int)
		for _, term := range analyzeWith(text, ngramMax, keepStop) {
			counts[term]++
		}
		for term, c := range counts {
			corpus[term] += c
			df[term]++
		}
		docCounts[i] = counts
	}

	terms := make([]string, 0, len(corpus))
	for term := range corpus {
		terms = append(terms, term)
	}
	if len(terms) > maxFeatures {
		sort.Slice(terms, func(a, b int) bool {
			ca, cb := corpus[terms[a]], corpus[terms[b]]
			if ca != cb {
				return ca > cb
			}
			return terms[a] < terms[b]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	v := &vectorizer{
		terms:    terms,
		vocab:    make(map[string]int, len(terms)),
		idf:      make([]float64, len(terms)),
		ngramMax: ngramMax,
		keepStop: keepStop,
	}
	n := float64(len(texts))
	for j, term := range terms {
		v.vocab[term] = j
		v.idf[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	rows := make([]sparseRow, len(texts))
	for i, counts := range docCounts {
		rows[i] = v.weigh(counts)
	}
	return v, rows
}

// restoreVectorizer rebuilds a fitted vectorizer from its persisted parts.
func restoreVectorizer(terms []string, idf []float64, ngramMax int) *vectorizer {
	return restore(terms, idf, ngramMax, false)
}

func restore(terms []string, idf []float64, ngramMax int, keepStop bool) *vectorizer {
	v := &vectorizer{
		terms:    terms,
		vocab:    make(map[string]int, len(terms)),
		idf:      idf,
		ngramMax: ngramMax,
		keepStop: keepStop,
	}
	for j, term := range terms {
		v.vocab[term] = j
	}
	return v
}

// transform weighs an unseen text against the fitted vocabulary.
func (v *vectorizer) transform(text string) sparseRow {
	counts := make(map[string]int)
	for _, term := range analyzeWith(text, v.ngramMax, v.keepStop) {
		counts[term]++
	}
	return v.weigh(counts)
}

func (v *vectorizer) weigh(counts map[string]int) sparseRow {
	var row sparseRow
	for term := range counts {
		j, ok := v.vocab[term]
		if !ok {
			continue
		}
		row.idx = append(row.idx, j)
	}
	sort.Ints(row.idx)

	row.val = make([]float64, len(row.idx))
	norm := 0.0
	for k, j := range row.idx {
		w := float64(counts[v.terms[j]]) * v.idf[j]
		row.val[k] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range row.val {
			row.val[k] /= norm
		}
	}
	return row
}

// Vectorizer is a fitted TF-IDF model for callers that work on the weighted
// terms directly instead of a projected Space. It is immutable and safe for
// concurrent use.
type Vectorizer struct {
	v *vectorizer
}

// SparseVector is an L2-normalized TF-IDF row. Index is ascending and
// addresses Terms.
type SparseVector struct {
	Index []int
	Value []float64
}

// FitVectorizer learns a vocabulary of at most maxFeatures n-grams (the most
// frequent across texts) and returns the weighted rows of texts. With
// keepStopWords set, common English words stay in the vocabulary, which
// matters for short texts where "not" changes the meaning.
func FitVectorizer(texts []string, maxFeatures, ngramMax int, keepStopWords bool) (*Vectorizer, []SparseVector) {
	v, rows := fit(texts, maxFeatures, ngramMax, keepStopWords)
	out := make([]SparseVector, len(rows))
	for i, r := range rows {
		out[i] = SparseVector{Index: r.idx, Value: r.val}
	}
	return &Vectorizer{v: v}, out
}

// RestoreVectorizer rebuilds a Vectorizer from the values returned by
// Terms, IDF, NGramMax and KeepStopWords.
func RestoreVectorizer(terms []string, idf []float64, ngramMax int, keepStopWords bool) (*Vectorizer, error) {
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("vectorizer state: %d terms but %d idf weights", len(terms), len(idf))
	}
	if ngramMax < 1 {
		return nil, fmt.Errorf("vectorizer state: ngram max must be positive, got %d", ngramMax)
	}
	return &Vectorizer{v: restore(append([]string(nil), terms...), append([]float64(nil), idf...), ngramMax, keepStopWords)}, nil
}

// Transform weighs text against the fitted vocabulary. Unknown terms are
// ignored; a text with none yields an empty vector.
func (v *Vectorizer) Transform(text string) SparseVector {
	r := v.v.transform(text)
	return SparseVector{Index: r.idx, Value: r.val}
}

// Len returns the vocabulary size.
func (v *Vectorizer) Len() int { return len(v.v.terms) }

// Terms returns a copy of the sorted vocabulary.
func (v *Vectorizer) Terms() []string { return append([]string(nil), v.v.terms...) }

// IDF returns a copy of the per-term inverse document frequencies.
func (v *Vectorizer) IDF() []float64 { return append([]float64(nil), v.v.idf...) }

// NGramMax returns the longest n-gram in the vocabulary.
func (v *Vectorizer) NGramMax() int { return v.v.ngramMax }

// KeepStopWords reports whether stop words are part of the vocabulary.
func (v *Vectorizer) KeepStopWords() bool { return v.v.keepStop }
