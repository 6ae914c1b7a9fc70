// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/recommend/intent"
)

type mapPredictionCache struct {
	mu   sync.Mutex
	data map[string]intent.Prediction
	sets int
}

func (c *mapPredictionCache) Get(_ context.Context, key string) (*intent.Prediction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *mapPredictionCache) Set(_ context.Context, key string, p *intent.Prediction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]intent.Prediction)
	}
	c.data[key] = *p
	c.sets++
	return nil
}

type failingPredictionCache struct{}

func (failingPredictionCache) Get(context.Context, string) (*intent.Prediction, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingPredictionCache) Set(context.Context, string, *intent.Prediction) error {
	return errors.New("cache down")
}

type sliceRecorder struct {
	mu      sync.Mutex
	entries []intent.LogEntry
}

func (r *sliceRecorder) Record(e intent.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func intentModel(t *testing.T) *Model {
	t.Helper()
	m := buildModel(t, fixtureInteractions())
	clf, err := intent.Train(context.Background(), labelledReviews(), intent.DefaultConfig())
	if err != nil {
		t.Fatalf("intent.Train() error = %v", err)
	}
	m.Intent = clf
	m.IntentEvaluation = &intent.Metrics{Examples: 2, Accuracy: 1, Precision: 1, Recall: 1}
	return m
}

func TestPredict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newTestRecommender(intentModel(t))
	tests := []struct {
		text string
		want intent.Label
	}{
		{"love this tea, great", intent.Positive},
		{"terrible and stale", intent.Negative},
	}
	for _, tt := range tests {
		res, err := r.Predict(ctx, tt.text, nil)
		if err != nil {
			t.Fatalf("Predict(%q) error = %v", tt.text, err)
		}
		if res.Label != tt.want {
			t.Errorf("Predict(%q) = %v, want %v", tt.text, res.Label, tt.want)
		}
		if res.TextHash != intent.TextHash(tt.text) || res.ModelVersion != 1 || res.Cached {
			t.Errorf("Predict(%q) = %+v, want uncached v1 with the text hash", tt.text, res)
		}
	}
}

func TestPredictErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := NewRecommender(nil, zerolog.Nop()).Predict(ctx, "x", nil); !errors.Is(err, ErrNoModel) {
		t.Errorf("Predict() without model error = %v, want ErrNoModel", err)
	}
	if _, err := newTestRecommender(buildModel(t, fixtureInteractions())).Predict(ctx, "x", nil); !errors.Is(err, ErrNoClassifier) {
		t.Errorf("Predict() without classifier error = %v, want ErrNoClassifier", err)
	}
	if _, err := newTestRecommender(buildModel(t, fixtureInteractions())).IntentStats(); !errors.Is(err, ErrNoClassifier) {
		t.Errorf("IntentStats() without classifier error = %v, want ErrNoClassifier", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := newTestRecommender(intentModel(t)).Predict(canceled, "x", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Predict() canceled error = %v, want context.Canceled", err)
	}
}

func TestPredictCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := &mapPredictionCache{}
	m := intentModel(t)
	r := newTestRecommender(m, WithPredictionCache(cache))

	first, err := r.Predict(ctx, "great kettle", nil)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	second, err := r.Predict(ctx, "great kettle", nil)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if first.Cached || !second.Cached {
		t.Errorf("Cached = %v then %v, want false then true", first.Cached, second.Cached)
	}
	if first.Prediction != second.Prediction {
		t.Errorf("cached prediction = %+v, want %+v", second.Prediction, first.Prediction)
	}
	if cache.sets != 1 {
		t.Errorf("cache writes = %d, want 1", cache.sets)
	}
	for key := range cache.data {
		if !strings.HasPrefix(key, "1:") || !strings.HasSuffix(key, first.TextHash) {
			t.Errorf("cache key = %q, want version and text hash", key)
		}
	}

	// A new model version never reads the old entry.
	next := *m
	next.Version = 2
	r.Swap(&next)
	third, err := r.Predict(ctx, "great kettle", nil)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if third.Cached || third.ModelVersion != 2 {
		t.Errorf("after swap = %+v, want an uncached v2 prediction", third)
	}
}

func TestPredictCacheFailureIgnored(t *testing.T) {
	t.Parallel()

	r := newTestRecommender(intentModel(t), WithPredictionCache(failingPredictionCache{}))
	res, err := r.Predict(context.Background(), "great kettle", nil)
	if err != nil || res.Cached {
		t.Errorf("Predict() = %+v, %v, want an uncached prediction", res, err)
	}
}

func TestPredictLogsAndMonitors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &sliceRecorder{}
	r := newTestRecommender(intentModel(t), WithPredictionCache(&mapPredictionCache{}), WithPredictionLog(rec))

	pos, neg := intent.Positive, intent.Negative
	calls := []struct {
		text   string
		actual *intent.Label
	}{
		{"love this tea, great", &pos},
		{"love this tea, great", &neg},
		{"terrible and stale", nil},
	}
	for _, c := range calls {
		if _, err := r.Predict(ctx, c.text, c.actual); err != nil {
			t.Fatalf("Predict(%q) error = %v", c.text, err)
		}
	}

	if len(rec.entries) != 3 {
		t.Fatalf("logged %d predictions, want 3", len(rec.entries))
	}
	first, second, third := rec.entries[0], rec.entries[1], rec.entries[2]
	if first.RequestText != "love this tea, great" || first.TextHash != intent.TextHash(first.RequestText) || first.Cached {
		t.Errorf("first entry = %+v", first)
	}
	if first.TrueRecord == nil || *first.TrueRecord != intent.Positive {
		t.Errorf("first true record = %v, want Positive", first.TrueRecord)
	}
	if !second.Cached || second.Timestamp.IsZero() || second.ModelVersion != 1 {
		t.Errorf("second entry = %+v, want a cached v1 prediction", second)
	}
	if third.TrueRecord != nil || third.Predicted != intent.Negative {
		t.Errorf("third entry = %+v, want an unlabelled Negative", third)
	}

	stats, err := r.IntentStats()
	if err != nil {
		t.Fatalf("IntentStats() error = %v", err)
	}
	if stats.Live.Predictions != 3 || stats.Live.Labelled.Examples != 2 {
		t.Errorf("live counts = %d/%d, want 3/2", stats.Live.Predictions, stats.Live.Labelled.Examples)
	}
	if stats.Live.Labelled.Accuracy != 0.5 {
		t.Errorf("live accuracy = %v, want 0.5", stats.Live.Labelled.Accuracy)
	}
	if stats.Holdout == nil || stats.Holdout.Examples != 2 || stats.Vocabulary == 0 || stats.ModelVersion != 1 {
		t.Errorf("stats = %+v, want the model's holdout scores", stats)
	}
}
