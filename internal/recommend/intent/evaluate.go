// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package intent

import (
	"fmt"
	"math/rand"
	"sync"
)

// Metrics scores predictions against known labels. Precision and Recall
// are for the Positive class; a ratio with an empty denominator is 0.
type Metrics struct {
	Examples  int     `json:"examples"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// confusion counts outcomes for the Positive class.
type confusion struct {
	tp, fp, tn, fn int
}

func (c *confusion) add(predicted, actual Label) {
	switch {
	case predicted == Positive && actual == Positive:
		c.tp++
	case predicted == Positive:
		c.fp++
	case actual == Positive:
		c.fn++
	default:
		c.tn++
	}
}

func (c confusion) metrics() Metrics {
	m := Metrics{Examples: c.tp + c.fp + c.tn + c.fn}
	if m.Examples > 0 {
		m.Accuracy = float64(c.tp+c.tn) / float64(m.Examples)
	}
	if c.tp+c.fp > 0 {
		m.Precision = float64(c.tp) / float64(c.tp+c.fp)
	}
	if c.tp+c.fn > 0 {
		m.Recall = float64(c.tp) / float64(c.tp+c.fn)
	}
	return m
}

// Evaluate scores c on labelled examples.
func Evaluate(c *Classifier, examples []Example) Metrics {
	var cm confusion
	for _, ex := range examples {
		cm.add(c.Predict(ex.Text).Label, ex.Label)
	}
	return cm.metrics()
}

// HoldOut shuffles a copy of examples with rng and splits off the last
// fraction as a test set. The train set always keeps at least one example;
// fraction 0 returns no test set.
func HoldOut(examples []Example, fraction float64, rng *rand.Rand) (train, test []Example, err error) {
	if fraction < 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("%w: test fraction must be in [0, 1), got %g", ErrInvalidConfig, fraction)
	}
	shuffled := append([]Example(nil), examples...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nTest := int(float64(len(shuffled)) * fraction)
	if nTest >= len(shuffled) {
		nTest = len(shuffled) - 1
	}
	if nTest < 0 {
		nTest = 0
	}
	cut := len(shuffled) - nTest
	return shuffled[:cut], shuffled[cut:], nil
}

// Monitor accumulates live predictions whose true label the caller knew.
// It is safe for concurrent use.
type Monitor struct {
	mu          sync.Mutex
	predictions int
	cm          confusion
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Observe records one served prediction. actual is nil when the caller did
// not supply a label.
func (m *Monitor) Observe(predicted Label, actual *Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
	if actual != nil {
		m.cm.add(predicted, *actual)
	}
}

// MonitorSnapshot is the state of a Monitor at one point in time.
type MonitorSnapshot struct {
	Predictions int `json:"predictions"`

	// Labelled holds the scores over predictions that came with a label.
	Labelled Metrics `json:"labelled"`
}

// Snapshot returns the current counts and scores.
func (m *Monitor) Snapshot() MonitorSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MonitorSnapshot{Predictions: m.predictions, Labelled: m.cm.metrics()}
}
