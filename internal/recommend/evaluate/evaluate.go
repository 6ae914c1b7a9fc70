// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package evaluate measures offline ranking quality on held-out interactions.
//
// Users qualify when they have enough training items and at least one test
// item in the catalog. A seeded sample of qualifying users is replayed
// through a Recommender and recall, precision and NDCG at K are aggregated.
// Recall is global: total hits over total held-out items across all
// evaluated users, not a per-user mean.
//
// Users are evaluated concurrently. Each user draws its seeds from its own
// random substream derived from one base value and the user id, and results
// are folded in sample order, so output does not depend on worker count.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/folio/internal/recommend"
)

// ErrInvalidConfig reports an evaluation or split configuration that cannot run.
var ErrInvalidConfig = errors.New("invalid evaluation configuration")

// Recommender is the ranking function under evaluation.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
}

// Catalog reports which items exist.
type Catalog interface {
	Contains(id recommend.ItemID) bool
}

// Config controls one evaluation run.
type Config struct {
	K            int
	SampleSize   int
	SeedsPerUser int
	Workers      int
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	switch {
	case c.K < 1:
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, c.K)
	case c.SampleSize < 1:
		return fmt.Errorf("%w: sample size must be positive, got %d", ErrInvalidConfig, c.SampleSize)
	case c.SeedsPerUser < 0:
		return fmt.Errorf("%w: seeds per user must be non-negative, got %d", ErrInvalidConfig, c.SeedsPerUser)
	}
	return nil
}

// Result holds aggregate metrics. With zero eligible users every metric is
// exactly zero and Eligible tells the caller there was nothing to measure.
type Result struct {
	K             int     `json:"k"`
	Recall        float64 `json:"recall"`
	Precision     float64 `json:"precision"`
	NDCG          float64 `json:"ndcg"`
	Eligible      int     `json:"eligible"`
	Sampled       int     `json:"sampled"`
	Evaluated     int     `json:"evaluated"`
	Skipped       int     `json:"skipped"`
	Hits          int     `json:"hits"`
	TotalRelevant int     `json:"total_relevant"`
}

type userHistory struct {
	id    recommend.UserID
	train []recommend.ItemID // distinct, in catalog, sorted
	test  map[recommend.ItemID]struct{}
}

type userScore struct {
	skipped  bool
	hits     int
	relevant int
	ndcg     float64
}

// Evaluate replays a sample of eligible users through rec.
func Evaluate(ctx context.Context, rec Recommender, train, test []recommend.Interaction, cat Catalog, cfg Config, rng *rand.Rand) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eligible := eligibleUsers(train, test, cat, cfg.SeedsPerUser)
	res := &Result{K: cfg.K, Eligible: len(eligible)}
	if len(eligible) == 0 {
		return res, nil
	}

	n := min(cfg.SampleSize, len(eligible))
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(eligible)-i)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}
	sampled := eligible[:n]
	res.Sampled = n
	base := rng.Uint64()

	scores := make([]userScore, n)
	workers := max(cfg.Workers, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range sampled {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := scoreUser(gctx, rec, u, cfg, substream(base, u.id))
			if err != nil {
				return fmt.Errorf("evaluate user %s: %w", u.id, err)
			}
			scores[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var precisionSum, ndcgSum float64
	for _, s := range scores {
		if s.skipped {
			res.Skipped++
			continue
		}
		res.Evaluated++
		res.Hits += s.hits
		res.TotalRelevant += s.relevant
		precisionSum += float64(s.hits) / float64(cfg.K)
		ndcgSum += s.ndcg
	}
	if res.TotalRelevant > 0 {
		res.Recall = float64(res.Hits) / float64(res.TotalRelevant)
	}
	if res.Evaluated > 0 {
		res.Precision = precisionSum / float64(res.Evaluated)
		res.NDCG = ndcgSum / float64(res.Evaluated)
	}
	return res, nil
}

// eligibleUsers returns qualifying users sorted by id.
func eligibleUsers(train, test []recommend.Interaction, cat Catalog, seedsPerUser int) []userHistory {
	trainItems := make(map[recommend.UserID]map[recommend.ItemID]struct{})
	for _, in := range train {
		if !cat.Contains(in.ItemID) {
			continue
		}
		set, ok := trainItems[in.UserID]
		if !ok {
			set = make(map[recommend.ItemID]struct{})
			trainItems[in.UserID] = set
		}
		set[in.ItemID] = struct{}{}
	}

	testItems := make(map[recommend.UserID]map[recommend.ItemID]struct{})
	for _, in := range test {
		if _, ok := trainItems[in.UserID]; !ok || !cat.Contains(in.ItemID) {
			continue
		}
		set, ok := testItems[in.UserID]
		if !ok {
			set = make(map[recommend.ItemID]struct{})
			testItems[in.UserID] = set
		}
		set[in.ItemID] = struct{}{}
	}

	var users []userHistory
	for id, items := range trainItems {
		held := testItems[id]
		if len(items) < seedsPerUser || len(held) == 0 {
			continue
		}
		u := userHistory{id: id, test: held, train: make([]recommend.ItemID, 0, len(items))}
		for item := range items {
			u.train = append(u.train, item)
		}
		sort.Slice(u.train, func(i, j int) bool { return u.train[i] < u.train[j] })
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].id < users[j].id })
	return users
}

// substream derives a user's private RNG from the run's base draw.
func substream(base uint64, user recommend.UserID) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(user))
	//nolint:gosec // G404,G115: reproducible sampling, not security sensitive
	return rand.New(rand.NewSource(int64(base ^ h.Sum64())))
}

func scoreUser(ctx context.Context, rec Recommender, u userHistory, cfg Config, rng *rand.Rand) (userScore, error) {
	pool := append([]recommend.ItemID(nil), u.train...)
	seeds := make([]string, cfg.SeedsPerUser)
	for i := range seeds {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		seeds[i] = string(pool[i])
	}

	resp, err := rec.Recommend(ctx, recommend.Request{Seeds: seeds, UserID: u.id, K: cfg.K})
	if err != nil {
		return userScore{}, err
	}
	if resp == nil || len(resp.Items) == 0 {
		return userScore{skipped: true}, nil
	}
	items := resp.Items[:min(len(resp.Items), cfg.K)]

	rel := make([]bool, len(items))
	seen := make(map[recommend.ItemID]struct{}, len(items))
	s := userScore{relevant: len(u.test)}
	for i, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		if _, ok := u.test[item.ID]; ok {
			rel[i] = true
			s.hits++
		}
	}
	s.ndcg = ndcg(rel)
	return s, nil
}

// ndcg scores a ranked list of binary relevances against the same list with
// every relevant entry moved to the front.
func ndcg(rel []bool) float64 {
	var dcg, idcg float64
	relevant := 0
	for i, r := range rel {
		if r {
			dcg += 1 / math.Log2(float64(i+2))
			relevant++
		}
	}
	for i := 0; i < relevant; i++ {
		idcg += 1 / math.Log2(float64(i+2))
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}
