// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/intent"
)

// ErrNoModel is returned by Recommend before any model has been installed.
var ErrNoModel = errors.New("no model loaded")

// ResultCache stores finished responses by content-addressed key. Cache
// failures never fail a request.
type ResultCache interface {
	Get(ctx context.Context, key string) (*recommend.Response, bool, error)
	Set(ctx context.Context, key string, resp *recommend.Response) error
}

// Recommender serves ranked lists from the current Model. Models are swapped
// atomically, so requests never block on retraining. It is safe for
// concurrent use.
type Recommender struct {
	model  atomic.Pointer[Model]
	limits *recommend.Config
	cache  ResultCache
	logger zerolog.Logger

	predictions   PredictionCache
	predictionLog PredictionRecorder
	monitor       *intent.Monitor
}

// Option configures a Recommender.
type Option func(*Recommender)

// WithCache enables the response cache.
func WithCache(c ResultCache) Option {
	return func(r *Recommender) { r.cache = c }
}

// WithModel installs an initial model.
func WithModel(m *Model) Option {
	return func(r *Recommender) { r.model.Store(m) }
}

// NewRecommender creates a recommender. Only cfg.Limits is consulted.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommender(cfg *recommend.Config, logger zerolog.Logger, opts ...Option) *Recommender {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	r := &Recommender{
		limits:  cfg.Clone(),
		logger:  logger.With().Str("component", "recommender").Logger(),
		monitor: intent.NewMonitor(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Swap installs m for all subsequent requests and returns the previous model.
func (r *Recommender) Swap(m *Model) *Model {
	prev := r.model.Swap(m)
	if m == nil {
		return prev
	}
	metrics.SetServingModel(m.Version, m.Catalog.Len(), m.Users.Len(), m.Space.VocabularySize())
	r.logger.Info().
		Int("version", m.Version).
		Int("items", m.Catalog.Len()).
		Int("users", m.Users.Len()).
		Str("factors", m.Factors.Status().String()).
		Bool("intent", m.Intent != nil).
		Msg("serving model swapped")
	return prev
}

// Model returns the model currently serving requests, or nil.
func (r *Recommender) Model() *Model {
	return r.model.Load()
}

// selectStrategy picks how a request is scored. The latent-factor model is
// used only when it has been trained and knows the user; otherwise content
// similarity applies when a seed resolved.
func selectStrategy(knownUser, factorsTrained, haveSeeds bool) recommend.Strategy {
	switch {
	case knownUser && factorsTrained:
		return recommend.StrategyLatentFactor
	case haveSeeds:
		return recommend.StrategyContent
	default:
		return recommend.StrategyNone
	}
}

// Recommend returns up to K items ranked for req. A request with neither a
// resolvable seed nor a known user yields an empty list, not an error.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (r *Recommender) Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error) {
	start := time.Now()
	m := r.model.Load()
	if m == nil {
		return nil, ErrNoModel
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := r.limits.EffectiveK(req.K)
	logCtx := r.logger.With().
		Int("model_version", m.Version).
		Str("user_id", string(req.UserID)).
		Int("k", k)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	logger := logCtx.Logger()

	resp := &recommend.Response{Items: []recommend.ScoredItem{}, K: k, ModelVersion: m.Version}
	var seedRows []int
	seen := make(map[int]struct{}, len(req.Seeds))
	for _, seed := range req.Seeds {
		id, ok := m.Catalog.Resolve(seed)
		if !ok {
			resp.Unresolved = append(resp.Unresolved, seed)
			continue
		}
		row, _ := m.Catalog.IndexOf(id)
		if _, dup := seen[row]; dup {
			continue
		}
		seen[row] = struct{}{}
		seedRows = append(seedRows, row)
		resp.Seeds = append(resp.Seeds, id)
	}

	userRow, knownUser := -1, false
	if req.UserID != "" {
		userRow, knownUser = m.Users.Lookup(req.UserID)
	}
	resp.Strategy = selectStrategy(knownUser, m.Factors.Trained(), len(seedRows) > 0)

	defer func() {
		metrics.RecordRecommendation(resp.Strategy.String(), time.Since(start), len(resp.Unresolved))
	}()

	if resp.Strategy == recommend.StrategyNone {
		logger.Debug().
			Int("unresolved", len(resp.Unresolved)).
			Msg("no resolvable seed and no known user")
		return resp, nil
	}

	key := cacheKey(m.Version, resp.Strategy, req.UserID, resp.Seeds, req.Exclude, k)
	if cached := r.cached(ctx, key, logger); cached != nil {
		cached.Unresolved = resp.Unresolved
		return cached, nil
	}

	var scores []float64
	if resp.Strategy == recommend.StrategyLatentFactor {
		scores = m.Factors.PredictUser(userRow)
	} else {
		scores = m.Space.Scores(meanVector(m, seedRows))
	}

	masked := make([]bool, len(scores))
	for _, row := range seedRows {
		masked[row] = true
	}
	for _, id := range req.Exclude {
		if row, ok := m.Catalog.IndexOf(id); ok {
			masked[row] = true
		}
	}
	for i := range scores {
		if masked[i] {
			scores[i] = math.Inf(-1)
		}
	}

	for _, row := range topK(scores, masked, k) {
		item := m.Catalog.Item(row)
		resp.Items = append(resp.Items, recommend.ScoredItem{
			ID:            item.ID,
			Title:         item.Title,
			Categories:    item.Categories,
			AverageRating: item.AverageRating,
			RatingCount:   item.RatingCount,
			Popularity:    item.Popularity,
			Score:         scores[row],
		})
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, resp); err != nil {
			logger.Warn().Err(err).Msg("cache write failed")
		}
	}

	logger.Debug().
		Str("strategy", resp.Strategy.String()).
		Int("seeds", len(resp.Seeds)).
		Int("returned", len(resp.Items)).
		Dur("latency", time.Since(start)).
		Msg("recommendation complete")
	return resp, nil
}

func (r *Recommender) cached(ctx context.Context, key string, logger zerolog.Logger) *recommend.Response {
	if r.cache == nil {
		return nil
	}
	resp, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("cache read failed")
		return nil
	}
	metrics.RecordCacheLookup(ok)
	if !ok {
		return nil
	}
	resp.CacheHit = true
	return resp
}

// meanVector averages the embeddings of the seed rows.
func meanVector(m *Model, rows []int) []float64 {
	mean := make([]float64, m.Space.Dim())
	for _, row := range rows {
		for c, v := range m.Space.Vector(row) {
			mean[c] += v
		}
	}
	for c := range mean {
		mean[c] /= float64(len(rows))
	}
	return mean
}

// topK returns the rows of the k highest scores, skipping masked rows.
// Equal scores keep catalog order.
func topK(scores []float64, masked []bool, k int) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]int, 0, min(k, len(order)))
	for _, row := range order {
		if len(out) == k {
			break
		}
		if masked[row] {
			continue
		}
		out = append(out, row)
	}
	return out
}

// cacheKey addresses a response by everything that determines it.
func cacheKey(version int, strategy recommend.Strategy, user recommend.UserID, seeds, exclude []recommend.ItemID, k int) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(strconv.Itoa(version))
	write(strategy.String())
	if strategy == recommend.StrategyLatentFactor {
		write(string(user))
	}
	write(strconv.Itoa(len(seeds)))
	for _, id := range seeds {
		write(string(id))
	}
	excl := make([]string, len(exclude))
	for i, id := range exclude {
		excl[i] = string(id)
	}
	sort.Strings(excl)
	for _, id := range excl {
		write(id)
	}
	write(strconv.Itoa(k))
	return fmt.Sprintf("rec:%s", hex.EncodeToString(h.Sum(nil)))
}
