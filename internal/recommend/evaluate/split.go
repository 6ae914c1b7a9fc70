// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package evaluate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/tomtom215/folio/internal/recommend"
)

// RandomSplit shuffles a copy of interactions with rng, keeps at most
// trainSize+testSize rows, and returns the first trainSize as train and the
// remainder as test. No row appears in both.
func RandomSplit(interactions []recommend.Interaction, trainSize, testSize int, rng *rand.Rand) (train, test []recommend.Interaction, err error) {
	if trainSize < 0 || testSize < 0 {
		return nil, nil, fmt.Errorf("%w: split sizes must be non-negative, got %d/%d", ErrInvalidConfig, trainSize, testSize)
	}

	rows := make([]recommend.Interaction, len(interactions))
	copy(rows, interactions)
	rng.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})

	rows = rows[:min(len(rows), trainSize+testSize)]
	cut := min(len(rows), trainSize)
	return rows[:cut:cut], rows[cut:], nil
}

// TemporalSplit orders interactions by timestamp and holds out the most
// recent testFraction of them. Equal timestamps keep their input order.
func TemporalSplit(interactions []recommend.Interaction, testFraction float64) (train, test []recommend.Interaction, err error) {
	if testFraction < 0 || testFraction > 1 || math.IsNaN(testFraction) {
		return nil, nil, fmt.Errorf("%w: test fraction must be within [0,1], got %g", ErrInvalidConfig, testFraction)
	}

	rows := make([]recommend.Interaction, len(interactions))
	copy(rows, interactions)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	nTest := int(math.Round(float64(len(rows)) * testFraction))
	cut := len(rows) - nTest
	return rows[:cut:cut], rows[cut:], nil
}
