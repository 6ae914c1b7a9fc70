// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package intent predicts purchase intention from review text.
//
// A review is weighted with TF-IDF and scored by a multinomial naive Bayes
// model with additive (Lidstone) smoothing:
//
//	log P(c | x) ∝ log P(c) + Σ_j x_j · log θ_cj
//	θ_cj = (N_cj + α) / (N_c + α·V)
//
// where N_cj is the summed TF-IDF weight of term j over training reviews of
// class c, N_c = Σ_j N_cj and V is the vocabulary size. α = 1 is Laplace
// smoothing.
package intent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tomtom215/folio/internal/recommend/embedding"
)

// ErrInvalidLabel is returned for labels other than positive and negative.
var ErrInvalidLabel = errors.New("label must be either negative or positive")

// ErrNoExamples is returned when there is nothing to train on.
var ErrNoExamples = errors.New("no labelled examples")

// ErrInvalidConfig reports settings training cannot run with.
var ErrInvalidConfig = errors.New("invalid intent configuration")

// Label is the purchase outcome of a review.
type Label int

const (
	// Negative means the reviewer would not buy.
	Negative Label = iota
	// Positive means the reviewer bought or would buy.
	Positive
)

// numLabels is the number of classes.
const numLabels = 2

func (l Label) String() string {
	if l == Positive {
		return "Positive"
	}
	return "Negative"
}

// ParseLabel accepts "positive" and "negative" in any case, surrounded by
// any whitespace.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return Positive, nil
	case "negative":
		return Negative, nil
	default:
		return 0, fmt.Errorf("%w, got %q", ErrInvalidLabel, s)
	}
}

// MarshalText renders the label as "Positive" or "Negative".
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText parses a label written by MarshalText or typed by a user.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Example is one labelled review.
type Example struct {
	Text  string
	Label Label
}

// Config holds the vectorizer and smoothing settings.
type Config struct {
	// Alpha is the additive smoothing constant. Default: 1.0.
	Alpha float64

	// MaxFeatures bounds the vocabulary. Default: 20000.
	MaxFeatures int

	// NGramMax is the longest n-gram kept. Default: 1.
	NGramMax int
}

// DefaultConfig returns Laplace smoothing over unigrams.
func DefaultConfig() Config {
	return Config{Alpha: 1.0, MaxFeatures: 20000, NGramMax: 1}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	switch {
	case c.Alpha <= 0 || math.IsNaN(c.Alpha) || math.IsInf(c.Alpha, 0):
		return fmt.Errorf("%w: alpha must be positive, got %g", ErrInvalidConfig, c.Alpha)
	case c.MaxFeatures < 1:
		return fmt.Errorf("%w: max features must be positive, got %d", ErrInvalidConfig, c.MaxFeatures)
	case c.NGramMax < 1:
		return fmt.Errorf("%w: ngram max must be positive, got %d", ErrInvalidConfig, c.NGramMax)
	}
	return nil
}

// Prediction is the classifier's verdict on one text.
type Prediction struct {
	Label Label `json:"predicted_bought"`

	// Confidence is the posterior probability of Label.
	Confidence float64 `json:"confidence"`
}

// Classifier is a fitted model. It is immutable and safe for concurrent use.
type Classifier struct {
	vec         *embedding.Vectorizer
	alpha       float64
	classCounts [numLabels]int
	logPrior    [numLabels]float64
	logProb     [numLabels][]float64 // per class, per term
}

// Train fits a classifier on examples. Stop words are kept: in short
// reviews they carry negation. A class with no examples gets zero prior
// probability and is never predicted.
func Train(ctx context.Context, examples []Example, cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, ErrNoExamples
	}

	texts := make([]string, len(examples))
	for i, ex := range examples {
		if ex.Label != Positive && ex.Label != Negative {
			return nil, fmt.Errorf("example %d: %w", i, ErrInvalidLabel)
		}
		texts[i] = ex.Text
	}
	vec, rows := embedding.FitVectorizer(texts, cfg.MaxFeatures, cfg.NGramMax, true)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &Classifier{vec: vec, alpha: cfg.Alpha}
	v := vec.Len()
	var weights [numLabels][]float64
	for l := range weights {
		weights[l] = make([]float64, v)
	}
	for i, row := range rows {
		l := examples[i].Label
		c.classCounts[l]++
		for k, j := range row.Index {
			weights[l][j] += row.Value[k]
		}
	}

	n := float64(len(examples))
	for l := 0; l < numLabels; l++ {
		if c.classCounts[l] == 0 {
			c.logPrior[l] = math.Inf(-1)
		} else {
			c.logPrior[l] = math.Log(float64(c.classCounts[l]) / n)
		}
		total := 0.0
		for _, w := range weights[l] {
			total += w
		}
		denom := math.Log(total + cfg.Alpha*float64(v))
		c.logProb[l] = make([]float64, v)
		for j, w := range weights[l] {
			c.logProb[l][j] = math.Log(w+cfg.Alpha) - denom
		}
	}
	return c, nil
}

// Predict classifies text. A text with no known term falls back to the
// class priors. Ties go to Negative.
func (c *Classifier) Predict(text string) Prediction {
	x := c.vec.Transform(text)

	var jll [numLabels]float64
	for l := 0; l < numLabels; l++ {
		jll[l] = c.logPrior[l]
		if math.IsInf(jll[l], -1) {
			continue
		}
		for k, j := range x.Index {
			jll[l] += x.Value[k] * c.logProb[l][j]
		}
	}

	best := Negative
	if jll[Positive] > jll[Negative] {
		best = Positive
	}
	// Softmax over the two joint log likelihoods.
	other := jll[1-best]
	conf := 1.0
	if !math.IsInf(other, -1) {
		conf = 1 / (1 + math.Exp(other-jll[best]))
	}
	return Prediction{Label: best, Confidence: conf}
}

// VocabularySize returns the number of terms the model knows.
func (c *Classifier) VocabularySize() int { return c.vec.Len() }

// ClassCounts returns the number of training examples per label.
func (c *Classifier) ClassCounts() (negative, positive int) {
	return c.classCounts[Negative], c.classCounts[Positive]
}

// TextHash is the hex SHA-256 of text, the key predictions are cached and
// logged under.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// State is the serializable form of a Classifier.
type State struct {
	Terms         []string
	IDF           []float64
	NGramMax      int
	KeepStopWords bool

	Alpha       float64
	ClassCounts [numLabels]int
	LogPrior    [numLabels]float64
	LogProb     [numLabels][]float64
}

// State captures the classifier for persistence.
func (c *Classifier) State() *State {
	st := &State{
		Terms:         c.vec.Terms(),
		IDF:           c.vec.IDF(),
		NGramMax:      c.vec.NGramMax(),
		KeepStopWords: c.vec.KeepStopWords(),
		Alpha:         c.alpha,
		ClassCounts:   c.classCounts,
		LogPrior:      c.logPrior,
	}
	for l := range c.logProb {
		st.LogProb[l] = append([]float64(nil), c.logProb[l]...)
	}
	return st
}

// FromState rebuilds a classifier persisted with State.
func FromState(st *State) (*Classifier, error) {
	if st == nil {
		return nil, errors.New("intent state is nil")
	}
	vec, err := embedding.RestoreVectorizer(st.Terms, st.IDF, st.NGramMax, st.KeepStopWords)
	if err != nil {
		return nil, err
	}
	c := &Classifier{
		vec:         vec,
		alpha:       st.Alpha,
		classCounts: st.ClassCounts,
		logPrior:    st.LogPrior,
	}
	for l := range st.LogProb {
		if len(st.LogProb[l]) != vec.Len() {
			return nil, fmt.Errorf("intent state: %d term weights for label %v, want %d",
				len(st.LogProb[l]), Label(l), vec.Len())
		}
		c.logProb[l] = append([]float64(nil), st.LogProb[l]...)
	}
	return c, nil
}
