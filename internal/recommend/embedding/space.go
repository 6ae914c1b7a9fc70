// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package embedding builds dense, unit-norm item vectors from item text:
// TF-IDF over unigrams and bigrams, projected by a truncated SVD.
//
// Build fits the vocabulary and the projection on a catalog. Space.Transform
// then projects unseen text through the same fitted model without refitting,
// so query text and catalog items share one coordinate system.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// normEpsilon keeps normalization finite for empty documents.
const normEpsilon = 1e-9

// ErrInvalidConfig is returned for configurations no corpus could be embedded with.
var ErrInvalidConfig = errors.New("invalid embedding configuration")

// Config controls vectorization and projection.
type Config struct {
	Dim             int
	MaxFeatures     int
	NGramMax        int
	Oversample      int
	PowerIterations int
}

// DefaultConfig returns the reference settings: 50 dimensions over at most
// 5000 unigram and bigram features.
func DefaultConfig() Config {
	return Config{
		Dim:             50,
		MaxFeatures:     5000,
		NGramMax:        2,
		Oversample:      10,
		PowerIterations: 4,
	}
}

func (c Config) validate() error {
	switch {
	case c.Dim < 1:
		return fmt.Errorf("%w: dim must be positive, got %d", ErrInvalidConfig, c.Dim)
	case c.MaxFeatures < 1:
		return fmt.Errorf("%w: max features must be positive, got %d", ErrInvalidConfig, c.MaxFeatures)
	case c.NGramMax < 1:
		return fmt.Errorf("%w: ngram max must be positive, got %d", ErrInvalidConfig, c.NGramMax)
	case c.Oversample < 0 || c.PowerIterations < 0:
		return fmt.Errorf("%w: oversample and power iterations must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// Space is a fitted embedding: the vectorizer, the projection, and one
// vector per item. It is immutable and safe for concurrent reads.
type Space struct {
	vec        *vectorizer
	components *mat.Dense // |vocab| × rank, nil when rank is zero
	vectors    *mat.Dense // items × dim, nil when there are no items
	dim        int
}

// Build fits a Space on texts, one per item in catalog order. All random
// draws come from rng, so equal inputs and seeds give identical vectors.
func Build(ctx context.Context, texts []string, cfg Config, rng *rand.Rand) (*Space, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	vec, rows := fitVectorizer(texts, cfg.MaxFeatures, cfg.NGramMax)
	components, err := truncatedSVD(ctx, rows, len(vec.terms), cfg.Dim, cfg.Oversample, cfg.PowerIterations, rng)
	if err != nil {
		return nil, fmt.Errorf("project tf-idf matrix: %w", err)
	}

	s := &Space{vec: vec, components: components, dim: cfg.Dim}
	s.vectors = s.project(rows)
	return s, nil
}

// project maps weighted rows into the embedding and normalizes each vector.
func (s *Space) project(rows []sparseRow) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	out := mat.NewDense(len(rows), s.dim, nil)
	if s.components != nil {
		_, rank := s.components.Dims()
		for i, row := range rows {
			dst := out.RawRowView(i)[:rank]
			for k, j := range row.idx {
				w := row.val[k]
				src := s.components.RawRowView(j)
				for c := range dst {
					dst[c] += w * src[c]
				}
			}
		}
	}
	for i := range rows {
		normalize(out.RawRowView(i))
	}
	return out
}

func normalize(v []float64) {
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm) + normEpsilon
	for i := range v {
		v[i] /= norm
	}
}

// Transform projects texts that were not part of the fit.
func (s *Space) Transform(texts []string) [][]float64 {
	rows := make([]sparseRow, len(texts))
	for i, text := range texts {
		rows[i] = s.vec.transform(text)
	}
	m := s.project(rows)
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = append([]float64(nil), m.RawRowView(i)...)
	}
	return out
}

// Dim returns the vector dimensionality.
func (s *Space) Dim() int { return s.dim }

// Len returns the number of item vectors.
func (s *Space) Len() int {
	if s.vectors == nil {
		return 0
	}
	r, _ := s.vectors.Dims()
	return r
}

// Rank returns the number of non-padding dimensions.
func (s *Space) Rank() int {
	if s.components == nil {
		return 0
	}
	_, r := s.components.Dims()
	return r
}

// VocabularySize returns the number of fitted terms.
func (s *Space) VocabularySize() int { return len(s.vec.terms) }

// Vector returns the vector of item i. The slice aliases internal storage
// and must not be modified.
func (s *Space) Vector(i int) []float64 {
	return s.vectors.RawRowView(i)
}

// Similarity returns the cosine similarity of items i and j.
func (s *Space) Similarity(i, j int) float64 {
	return mat.Dot(s.vectors.RowView(i), s.vectors.RowView(j))
}

// Scores returns the dot product of query with every item vector.
func (s *Space) Scores(query []float64) []float64 {
	scores := make([]float64, s.Len())
	if len(scores) == 0 {
		return scores
	}
	var out mat.VecDense
	out.MulVec(s.vectors, mat.NewVecDense(len(query), query))
	for i := range scores {
		scores[i] = out.AtVec(i)
	}
	return scores
}

// State is the serializable form of a Space.
type State struct {
	Terms      []string
	IDF        []float64
	NGramMax   int
	Dim        int
	Rank       int
	Components []float64 // row-major |Terms| × Rank
	Items      int
	Vectors    []float64 // row-major Items × Dim
}

// State captures everything needed to rebuild s with FromState.
func (s *Space) State() State {
	st := State{
		Terms:    append([]string(nil), s.vec.terms...),
		IDF:      append([]float64(nil), s.vec.idf...),
		NGramMax: s.vec.ngramMax,
		Dim:      s.dim,
		Rank:     s.Rank(),
		Items:    s.Len(),
	}
	if s.components != nil {
		st.Components = append([]float64(nil), s.components.RawMatrix().Data...)
	}
	if s.vectors != nil {
		st.Vectors = append([]float64(nil), s.vectors.RawMatrix().Data...)
	}
	return st
}

// FromState rebuilds a Space persisted with State.
func FromState(st State) (*Space, error) {
	switch {
	case st.Dim < 1:
		return nil, fmt.Errorf("%w: dim must be positive, got %d", ErrInvalidConfig, st.Dim)
	case len(st.IDF) != len(st.Terms):
		return nil, fmt.Errorf("embedding state: %d terms but %d idf weights", len(st.Terms), len(st.IDF))
	case len(st.Components) != len(st.Terms)*st.Rank:
		return nil, fmt.Errorf("embedding state: components size %d, want %d", len(st.Components), len(st.Terms)*st.Rank)
	case len(st.Vectors) != st.Items*st.Dim:
		return nil, fmt.Errorf("embedding state: vectors size %d, want %d", len(st.Vectors), st.Items*st.Dim)
	case st.Rank > st.Dim:
		return nil, fmt.Errorf("embedding state: rank %d exceeds dim %d", st.Rank, st.Dim)
	}

	s := &Space{
		vec: restoreVectorizer(append([]string(nil), st.Terms...), append([]float64(nil), st.IDF...), st.NGramMax),
		dim: st.Dim,
	}
	if st.Rank > 0 && len(st.Terms) > 0 {
		s.components = mat.NewDense(len(st.Terms), st.Rank, append([]float64(nil), st.Components...))
	}
	if st.Items > 0 {
		s.vectors = mat.NewDense(st.Items, st.Dim, append([]float64(nil), st.Vectors...))
	}
	return s, nil
}
