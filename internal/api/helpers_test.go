// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/catalog"
	"github.com/tomtom215/folio/internal/recommend/embedding"
	"github.com/tomtom215/folio/internal/recommend/engine"
	"github.com/tomtom215/folio/internal/recommend/factors"
	"github.com/tomtom215/folio/internal/recommend/index"
	"github.com/tomtom215/folio/internal/recommend/intent"
)

var (
	fixtureOnce  sync.Once
	fixtureModel *engine.Model
	fixtureErr   error
)

// testModel trains one small model shared by every test in the package.
func testModel(t *testing.T) *engine.Model {
	t.Helper()
	fixtureOnce.Do(func() {
		fixtureModel, fixtureErr = buildFixtureModel()
	})
	if fixtureErr != nil {
		t.Fatalf("building fixture model: %v", fixtureErr)
	}
	return fixtureModel
}

func buildFixtureModel() (*engine.Model, error) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test fixture

	raw := []recommend.RawItem{
		{ID: "item_1", Title: "Green Tea Sampler", Features: "loose leaf green tea", Categories: "Grocery|Tea", RatingCount: 12},
		{ID: "item_2", Title: "Green Tea Kettle", Features: "glass kettle for green tea", Categories: "Kitchen|Tea", RatingCount: 4},
		{ID: "item_3", Title: "Dark Roast Coffee Beans", Features: "whole bean coffee", Categories: "Grocery|Coffee", RatingCount: 30},
		{ID: "item_4", Title: "Burr Coffee Grinder", Features: "grinder for coffee beans", Categories: "Kitchen|Coffee", RatingCount: 9},
		{ID: "item_5", Title: "Porcelain Tea Cups", Features: "set of tea cups", Categories: "Kitchen|Tea", RatingCount: 2},
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pairs := [][2]string{
		{"u1", "item_1"}, {"u1", "item_2"}, {"u1", "item_5"},
		{"u2", "item_3"}, {"u2", "item_4"},
		{"u3", "item_1"}, {"u3", "item_5"},
	}
	interactions := make([]recommend.Interaction, len(pairs))
	for i, p := range pairs {
		interactions[i] = recommend.Interaction{
			UserID:    recommend.UserID(p[0]),
			ItemID:    recommend.ItemID(p[1]),
			Rating:    5,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}

	cat := catalog.Normalize(raw, interactions)
	ecfg := embedding.DefaultConfig()
	ecfg.Dim = 8
	space, err := embedding.Build(ctx, cat.Texts(), ecfg, rng)
	if err != nil {
		return nil, err
	}
	idx := index.Build(interactions, cat.ItemIndex())
	fcfg := factors.DefaultConfig()
	fcfg.Factors = 4
	fm, err := factors.Train(ctx, idx.Triples, idx.Users.Len(), cat.Len(), fcfg, rng)
	if err != nil {
		return nil, err
	}
	clf, err := intent.Train(ctx, []intent.Example{
		{Text: "great tea, would buy again", Label: intent.Positive},
		{Text: "love this kettle", Label: intent.Positive},
		{Text: "great grinder, love it", Label: intent.Positive},
		{Text: "stale beans, terrible", Label: intent.Negative},
		{Text: "cups arrived broken", Label: intent.Negative},
		{Text: "terrible kettle, broken lid", Label: intent.Negative},
	}, intent.DefaultConfig())
	if err != nil {
		return nil, err
	}
	m := &engine.Model{
		Version: 3, TrainedAt: base,
		Catalog: cat, Space: space, Users: idx.Users, Factors: fm,
		Intent: clf,
	}
	return m, m.Validate()
}

// newTestRecommender returns a real recommender serving m (nil for none).
func newTestRecommender(m *engine.Model) *engine.Recommender {
	var opts []engine.Option
	if m != nil {
		opts = append(opts, engine.WithModel(m))
	}
	return engine.NewRecommender(recommend.DefaultConfig(), zerolog.Nop(), opts...)
}

// stubRecommender returns canned results.
type stubRecommender struct {
	resp       *recommend.Response
	prediction *engine.IntentResult
	stats      *engine.IntentStats
	err        error
	model      *engine.Model

	mu   sync.Mutex
	last recommend.Request
}

func (s *stubRecommender) Recommend(_ context.Context, req recommend.Request) (*recommend.Response, error) {
	s.mu.Lock()
	s.last = req
	s.mu.Unlock()
	return s.resp, s.err
}

func (s *stubRecommender) Model() *engine.Model { return s.model }

func (s *stubRecommender) Predict(context.Context, string, *intent.Label) (*engine.IntentResult, error) {
	return s.prediction, s.err
}

func (s *stubRecommender) IntentStats() (*engine.IntentStats, error) {
	return s.stats, s.err
}

func (s *stubRecommender) lastRequest() recommend.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// stubTrainer returns a canned error.
type stubTrainer struct {
	err   error
	calls int
}

func (s *stubTrainer) Trigger() error {
	s.calls++
	return s.err
}

// envelope mirrors APIResponse with a raw payload for decoding in tests.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		Details   json.RawMessage `json:"details"`
		RequestID string          `json:"request_id"`
	} `json:"error"`
	Meta *APIMeta `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decoding data %s: %v", env.Data, err)
	}
}
