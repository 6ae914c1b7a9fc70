// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package factors trains explicit-rating matrix factorization with plain SGD.
//
// Each rating r for user u and item i is approximated by the dot product of a
// user factor row p_u and an item factor row q_i. Training minimizes squared
// error with L2 regularization:
//
//	e   = r - p_u·q_i
//	p_u += lr * (e*q_i - reg*p_u)
//	q_i += lr * (e*p_u - reg*q_i)
//
// With Workers > 1 an epoch is split into stratified blocks (user mod W,
// item mod W); blocks that share no rows run concurrently. Every random draw
// is taken from the caller's RNG in a fixed order, so a given seed yields the
// same model however the goroutines are scheduled.
package factors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/folio/internal/recommend"
)

// ErrInvalidConfig reports hyperparameters training cannot run with.
var ErrInvalidConfig = errors.New("invalid factor configuration")

// Config holds the SGD hyperparameters.
type Config struct {
	// Factors is the latent dimension k.
	Factors int

	// LearningRate is the SGD step size.
	LearningRate float64

	// Regularization is the L2 penalty on both factor matrices.
	Regularization float64

	// Epochs is the number of full passes. There is no early stopping.
	Epochs int

	// InitScale is the standard deviation of the initial factors.
	InitScale float64

	// Workers above 1 enables stratified parallel epochs.
	Workers int

	// OnEpoch, when set, is called after every epoch with its mean squared error.
	OnEpoch func(epoch int, loss float64)
}

// DefaultConfig returns the reference hyperparameters.
func DefaultConfig() Config {
	return Config{
		Factors:        40,
		LearningRate:   0.01,
		Regularization: 0.02,
		Epochs:         120,
		InitScale:      0.1,
		Workers:        1,
	}
}

// Validate reports configuration errors. These are programmer errors; data
// never makes training fail.
func (c *Config) Validate() error {
	switch {
	case c.Factors <= 0:
		return fmt.Errorf("%w: factors must be positive, got %d", ErrInvalidConfig, c.Factors)
	case c.Epochs < 0:
		return fmt.Errorf("%w: epochs must be non-negative, got %d", ErrInvalidConfig, c.Epochs)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate must be positive, got %g", ErrInvalidConfig, c.LearningRate)
	case c.Regularization < 0:
		return fmt.Errorf("%w: regularization must be non-negative, got %g", ErrInvalidConfig, c.Regularization)
	case c.InitScale < 0:
		return fmt.Errorf("%w: init scale must be non-negative, got %g", ErrInvalidConfig, c.InitScale)
	}
	return nil
}

// Status tells whether a Model has learned anything.
type Status int

const (
	// StatusUntrained means there were no usable ratings.
	StatusUntrained Status = iota
	// StatusTrained means the factors were fitted.
	StatusTrained
)

func (s Status) String() string {
	if s == StatusTrained {
		return "trained"
	}
	return "untrained"
}

// Model holds fitted user and item factors. It is immutable after Train and
// safe for concurrent reads.
type Model struct {
	users  *mat.Dense // nUsers × k
	items  *mat.Dense // nItems × k
	k      int
	nUsers int
	nItems int
	status Status
	loss   []float64
}

// Train fits a model on triples whose User and Item fields index rows in
// [0, nUsers) and [0, nItems). Triples outside those ranges are ignored.
// With no usable triples the factors keep their random initial values and
// the returned model is untrained.
func Train(ctx context.Context, triples []recommend.Triple, nUsers, nItems int, cfg Config, rng *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	usable := make([]recommend.Triple, 0, len(triples))
	for _, t := range triples {
		if t.User >= 0 && t.User < nUsers && t.Item >= 0 && t.Item < nItems {
			usable = append(usable, t)
		}
	}

	m := &Model{
		k:      cfg.Factors,
		nUsers: nUsers,
		nItems: nItems,
		users:  initFactors(nUsers, cfg.Factors, cfg.InitScale, rng),
		items:  initFactors(nItems, cfg.Factors, cfg.InitScale, rng),
	}
	if len(usable) == 0 {
		return m, nil
	}
	m.loss = make([]float64, 0, cfg.Epochs)

	var blocks [][]recommend.Triple
	workers := cfg.Workers
	if workers > 1 {
		blocks = stratify(usable, workers)
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var sse float64
		if workers > 1 {
			var err error
			sse, err = m.parallelEpoch(ctx, blocks, workers, cfg, rng)
			if err != nil {
				return nil, err
			}
		} else {
			rng.Shuffle(len(usable), func(i, j int) {
				usable[i], usable[j] = usable[j], usable[i]
			})
			sse = m.sweep(usable, cfg.LearningRate, cfg.Regularization)
		}

		loss := sse / float64(len(usable))
		m.loss = append(m.loss, loss)
		if cfg.OnEpoch != nil {
			cfg.OnEpoch(epoch, loss)
		}
	}

	m.status = StatusTrained
	return m, nil
}

func initFactors(rows, k int, scale float64, rng *rand.Rand) *mat.Dense {
	if rows == 0 {
		return nil
	}
	data := make([]float64, rows*k)
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
	return mat.NewDense(rows, k, data)
}

// stratify buckets triples into workers×workers blocks keyed by
// (user mod workers, item mod workers).
func stratify(triples []recommend.Triple, workers int) [][]recommend.Triple {
	blocks := make([][]recommend.Triple, workers*workers)
	for _, t := range triples {
		b := (t.User%workers)*workers + t.Item%workers
		blocks[b] = append(blocks[b], t)
	}
	return blocks
}

// parallelEpoch runs workers sub-epochs. In sub-epoch s, worker w owns the
// block (w, (w+s) mod workers), so no two goroutines touch the same user or
// item row.
func (m *Model) parallelEpoch(ctx context.Context, blocks [][]recommend.Triple, workers int, cfg Config, rng *rand.Rand) (float64, error) {
	var total float64
	for s := 0; s < workers; s++ {
		seeds := make([]int64, workers)
		for w := range seeds {
			seeds[w] = rng.Int63()
		}

		sse := make([]float64, workers)
		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			block := blocks[w*workers+(w+s)%workers]
			if len(block) == 0 {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				//nolint:gosec // G404: deterministic shuffle, not security sensitive
				local := rand.New(rand.NewSource(seeds[w]))
				local.Shuffle(len(block), func(i, j int) {
					block[i], block[j] = block[j], block[i]
				})
				sse[w] = m.sweep(block, cfg.LearningRate, cfg.Regularization)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
		for _, v := range sse {
			total += v
		}
	}
	return total, nil
}

// sweep applies one SGD update per triple in order and returns the summed
// squared error seen before each update.
func (m *Model) sweep(triples []recommend.Triple, lr, reg float64) float64 {
	var sse float64
	for _, t := range triples {
		p := m.users.RawRowView(t.User)
		q := m.items.RawRowView(t.Item)

		var pred float64
		for f := range p {
			pred += p[f] * q[f]
		}
		e := t.Rating - pred
		sse += e * e

		for f := range p {
			pf, qf := p[f], q[f]
			p[f] += lr * (e*qf - reg*pf)
			q[f] += lr * (e*pf - reg*qf)
		}
	}
	return sse
}

// Status reports whether the model was trained.
func (m *Model) Status() Status { return m.status }

// Trained is shorthand for Status() == StatusTrained.
func (m *Model) Trained() bool { return m != nil && m.status == StatusTrained }

// Factors returns k.
func (m *Model) Factors() int { return m.k }

// Users returns the number of user rows.
func (m *Model) Users() int { return m.nUsers }

// Items returns the number of item rows.
func (m *Model) Items() int { return m.nItems }

// Loss returns the mean squared training error of every epoch.
func (m *Model) Loss() []float64 {
	return append([]float64(nil), m.loss...)
}

// Predict returns the estimated rating of item for user, or 0 when the model
// is untrained or either index is out of range.
func (m *Model) Predict(user, item int) float64 {
	if !m.Trained() || user < 0 || user >= m.nUsers || item < 0 || item >= m.nItems {
		return 0
	}
	return mat.Dot(m.users.RowView(user), m.items.RowView(item))
}

// PredictUser scores every item for user, in item index order.
func (m *Model) PredictUser(user int) []float64 {
	scores := make([]float64, m.nItems)
	if !m.Trained() || user < 0 || user >= m.nUsers {
		return scores
	}
	out := mat.NewVecDense(m.nItems, scores)
	out.MulVec(m.items, m.users.RowView(user))
	return scores
}

// RMSE returns the root mean squared error over triples. Out-of-range
// triples are skipped; with none left it returns 0.
func (m *Model) RMSE(triples []recommend.Triple) float64 {
	var sse float64
	var n int
	for _, t := range triples {
		if t.User < 0 || t.User >= m.nUsers || t.Item < 0 || t.Item >= m.nItems {
			continue
		}
		e := t.Rating - m.Predict(t.User, t.Item)
		sse += e * e
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sse / float64(n))
}

// State is the serializable form of a Model.
type State struct {
	Factors     int
	Users       int
	Items       int
	Status      Status
	UserFactors []float64 // row-major Users × Factors
	ItemFactors []float64 // row-major Items × Factors
	Loss        []float64
}

// State captures the model for persistence.
func (m *Model) State() State {
	st := State{
		Factors: m.k,
		Users:   m.nUsers,
		Items:   m.nItems,
		Status:  m.status,
		Loss:    m.Loss(),
	}
	if m.users != nil {
		st.UserFactors = append([]float64(nil), m.users.RawMatrix().Data...)
	}
	if m.items != nil {
		st.ItemFactors = append([]float64(nil), m.items.RawMatrix().Data...)
	}
	return st
}

// FromState rebuilds a Model persisted with State.
func FromState(st State) (*Model, error) {
	if st.Factors <= 0 {
		return nil, fmt.Errorf("%w: factors must be positive, got %d", ErrInvalidConfig, st.Factors)
	}
	m := &Model{
		k:      st.Factors,
		nUsers: st.Users,
		nItems: st.Items,
		status: st.Status,
		loss:   append([]float64(nil), st.Loss...),
	}
	sized := len(st.UserFactors) == st.Users*st.Factors && len(st.ItemFactors) == st.Items*st.Factors
	if st.Status != StatusTrained {
		// Untrained states may carry their initial factors; bundles written
		// without them restore with empty matrices.
		m.status = StatusUntrained
		if sized {
			m.users = restoreFactors(st.Users, st.Factors, st.UserFactors)
			m.items = restoreFactors(st.Items, st.Factors, st.ItemFactors)
		}
		return m, nil
	}
	if !sized {
		return nil, fmt.Errorf("factor state: matrix sizes %d and %d do not match %d×%d and %d×%d",
			len(st.UserFactors), len(st.ItemFactors), st.Users, st.Factors, st.Items, st.Factors)
	}
	if st.Users == 0 || st.Items == 0 {
		return nil, fmt.Errorf("factor state: trained model with %d users and %d items", st.Users, st.Items)
	}
	m.users = restoreFactors(st.Users, st.Factors, st.UserFactors)
	m.items = restoreFactors(st.Items, st.Factors, st.ItemFactors)
	return m, nil
}

func restoreFactors(rows, k int, data []float64) *mat.Dense {
	if rows == 0 {
		return nil
	}
	return mat.NewDense(rows, k, append([]float64(nil), data...))
}
