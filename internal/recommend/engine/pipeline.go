// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/catalog"
	"github.com/tomtom215/folio/internal/recommend/embedding"
	"github.com/tomtom215/folio/internal/recommend/evaluate"
	"github.com/tomtom215/folio/internal/recommend/factors"
	"github.com/tomtom215/folio/internal/recommend/index"
	"github.com/tomtom215/folio/internal/recommend/intent"
	"github.com/tomtom215/folio/internal/recommend/storage"
)

// ModelName is the name bundles are stored under.
const ModelName = "folio"

// ErrTrainingInProgress is returned when a cycle is requested while one runs.
var ErrTrainingInProgress = errors.New("training already in progress")

// ErrTrainingUnavailable is returned when a background cycle is requested
// while nothing is running to carry it out.
var ErrTrainingUnavailable = errors.New("training is not running")

// DataSource supplies the raw tables a training cycle is built from. The
// whole table is fetched before any computation starts.
type DataSource interface {
	LoadCatalog(ctx context.Context) ([]recommend.RawItem, error)
	LoadInteractions(ctx context.Context) ([]recommend.Interaction, error)
}

// IntentSource is implemented by data sources that also hold reviews
// labelled with a purchase outcome. The pipeline trains the intent
// classifier only when its source implements it.
type IntentSource interface {
	LoadIntentExamples(ctx context.Context) ([]intent.Example, error)
}

// Pipeline runs training cycles: normalize the catalog, embed it, split and
// index interactions, train factors and the intent classifier, evaluate,
// and persist.
type Pipeline struct {
	cfg    *recommend.Config
	source DataSource
	store  *storage.Store // optional
	logger zerolog.Logger

	mu          sync.Mutex
	lastVersion int
}

// NewPipeline validates cfg and creates a pipeline. store may be nil, in
// which case models are kept in memory only.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPipeline(cfg *recommend.Config, source DataSource, store *storage.Store, logger zerolog.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if source == nil {
		return nil, errors.New("data source not set")
	}

	p := &Pipeline{
		cfg:    cfg.Clone(),
		source: source,
		store:  store,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
	if store != nil {
		p.lastVersion, _ = store.LatestVersion(ModelName)
	}
	return p, nil
}

// Run executes one training cycle and returns the new model. Only one cycle
// runs at a time; a concurrent call fails with ErrTrainingInProgress.
func (p *Pipeline) Run(ctx context.Context) (m *Model, err error) {
	if !p.mu.TryLock() {
		return nil, ErrTrainingInProgress
	}
	defer p.mu.Unlock()

	start := time.Now()
	cycleID := logging.NewCycleID()
	ctx = logging.ContextWithCycleID(ctx, cycleID)
	logger := p.logger.With().Str("cycle_id", cycleID).Logger()
	logger.Info().Int64("seed", p.cfg.Seed).Msg("starting training cycle")

	defer func() {
		metrics.RecordTrainingRun(err)
		if err != nil {
			logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("training cycle failed")
		}
	}()

	if p.cfg.Training.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Training.Timeout)
		defer cancel()
	}

	stage := time.Now()
	raw, err := p.source.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	interactions, err := p.source.LoadInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	metrics.RecordTrainingStage("load", time.Since(stage))

	cat := catalog.Normalize(raw, interactions)
	stats := cat.Stats()
	logger.Info().
		Int("rows", stats.Rows).
		Int("items", cat.Len()).
		Int("missing_id", stats.MissingID).
		Int("duplicates", stats.Duplicates).
		Int("interactions", len(interactions)).
		Msg("catalog normalized")

	//nolint:gosec // G404: reproducible training, not security sensitive
	rng := rand.New(rand.NewSource(p.cfg.Seed))

	stage = time.Now()
	space, err := embedding.Build(ctx, cat.Texts(), embeddingConfig(p.cfg), rng)
	if err != nil {
		return nil, fmt.Errorf("build embeddings: %w", err)
	}
	metrics.RecordTrainingStage("embedding", time.Since(stage))
	logger.Info().
		Int("vocabulary", space.VocabularySize()).
		Int("rank", space.Rank()).
		Int("dim", space.Dim()).
		Msg("item embeddings built")

	train, test, err := p.split(interactions, rng)
	if err != nil {
		return nil, fmt.Errorf("split interactions: %w", err)
	}

	idx := index.Build(train, cat.ItemIndex())
	metrics.RecordIndexDrops(idx.MissingUser, idx.UnknownItem)
	if idx.Dropped() > 0 {
		logger.Warn().
			Int("missing_user", idx.MissingUser).
			Int("unknown_item", idx.UnknownItem).
			Msg("interactions dropped while indexing")
	}

	stage = time.Now()
	fm, err := factors.Train(ctx, idx.Triples, idx.Users.Len(), cat.Len(), p.factorConfig(logger), rng)
	if err != nil {
		return nil, fmt.Errorf("train factors: %w", err)
	}
	metrics.RecordTrainingStage("factors", time.Since(stage))
	m = &Model{
		Version:   p.lastVersion + 1,
		TrainedAt: time.Now().UTC(),
		Catalog:   cat,
		Space:     space,
		Users:     idx.Users,
		Factors:   fm,
	}

	if !fm.Trained() {
		logger.Warn().
			Int("train_rows", len(train)).
			Msg("no usable ratings; latent factors untrained, serving content similarity only")
	} else {
		if held := heldOutTriples(test, idx); len(held) > 0 {
			m.TestRMSE = fm.RMSE(held)
			m.HeldOut = len(held)
			metrics.RecordTestRMSE(m.TestRMSE)
		}
		loss := fm.Loss()
		logger.Info().
			Int("users", idx.Users.Len()).
			Int("triples", len(idx.Triples)).
			Float64("final_loss", loss[len(loss)-1]).
			Float64("test_rmse", m.TestRMSE).
			Int("held_out", m.HeldOut).
			Msg("latent factors trained")
	}

	if src, ok := p.source.(IntentSource); ok && p.cfg.Intent.Enabled {
		stage = time.Now()
		if err := p.trainIntent(ctx, m, src, logger); err != nil {
			return nil, fmt.Errorf("train intent classifier: %w", err)
		}
		metrics.RecordTrainingStage("intent", time.Since(stage))
	}

	if p.cfg.Evaluation.Enabled {
		stage = time.Now()
		if m.Evaluation, err = p.evaluate(ctx, m, train, test, rng, logger); err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		metrics.RecordTrainingStage("evaluation", time.Since(stage))
	}

	if p.store != nil {
		stage = time.Now()
		meta, err := p.store.Save(ctx, ModelName, m.Bundle(), m.Metadata(len(train), time.Since(start)))
		if err != nil {
			return nil, fmt.Errorf("persist model: %w", err)
		}
		m.Version = meta.Version
		if removed, err := p.store.Prune(ctx, ModelName, p.cfg.Training.RetainVersions); err != nil {
			logger.Warn().Err(err).Msg("pruning old model versions failed")
		} else if removed > 0 {
			logger.Debug().Int("removed", removed).Msg("pruned old model versions")
		}
		metrics.RecordTrainingStage("persist", time.Since(stage))
	}
	p.lastVersion = m.Version

	logger.Info().
		Int("version", m.Version).
		Dur("duration", time.Since(start)).
		Msg("training cycle complete")
	return m, nil
}

func (p *Pipeline) split(interactions []recommend.Interaction, rng *rand.Rand) (train, test []recommend.Interaction, err error) {
	if p.cfg.Split.Strategy == "temporal" {
		return evaluate.TemporalSplit(interactions, p.cfg.Split.TestFraction)
	}
	return evaluate.RandomSplit(interactions, p.cfg.Split.TrainSize, p.cfg.Split.TestSize, rng)
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (p *Pipeline) evaluate(ctx context.Context, m *Model, train, test []recommend.Interaction, rng *rand.Rand, logger zerolog.Logger) (*evaluate.Result, error) {
	rec := NewRecommender(evaluationConfig(p.cfg), logger, WithModel(m))
	ev := p.cfg.Evaluation
	res, err := evaluate.Evaluate(ctx, rec, train, test, m.Catalog, evaluate.Config{
		K:            ev.K,
		SampleSize:   ev.SampleSize,
		SeedsPerUser: ev.SeedsPerUser,
		Workers:      ev.Workers,
	}, rng)
	if err != nil {
		return nil, err
	}

	metrics.RecordEvaluation(res.Recall, res.Precision, res.NDCG, res.Eligible)
	if res.Eligible == 0 {
		logger.Warn().Int("test_rows", len(test)).Msg("no users eligible for evaluation")
		return res, nil
	}
	logger.Info().
		Int("k", res.K).
		Float64("recall", res.Recall).
		Float64("precision", res.Precision).
		Float64("ndcg", res.NDCG).
		Int("eligible", res.Eligible).
		Int("evaluated", res.Evaluated).
		Int("skipped", res.Skipped).
		Msg("offline evaluation complete")
	return res, nil
}

// evaluationConfig lifts the serving cap on K so the harness always ranks
// evaluation.k items, whatever limits.max_k allows callers.
func evaluationConfig(cfg *recommend.Config) *recommend.Config {
	c := cfg.Clone()
	if c.Limits.MaxK < c.Evaluation.K {
		c.Limits.MaxK = c.Evaluation.K
	}
	return c
}

// trainIntent fits the purchase-intent classifier on labelled reviews and
// scores it on a held-out share. It has its own random stream, so labelled
// reviews never change the recommender's draws.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (p *Pipeline) trainIntent(ctx context.Context, m *Model, src IntentSource, logger zerolog.Logger) error {
	examples, err := src.LoadIntentExamples(ctx)
	if err != nil {
		return fmt.Errorf("load labelled reviews: %w", err)
	}
	if len(examples) == 0 {
		logger.Info().Msg("no labelled reviews; intent classifier skipped")
		return nil
	}

	ic := p.cfg.Intent
	//nolint:gosec // G404: reproducible training, not security sensitive
	rng := rand.New(rand.NewSource(p.cfg.Seed))
	train, test, err := intent.HoldOut(examples, ic.TestFraction, rng)
	if err != nil {
		return err
	}
	clf, err := intent.Train(ctx, train, intent.Config{
		Alpha:       ic.Alpha,
		MaxFeatures: ic.MaxFeatures,
		NGramMax:    ic.NGramMax,
	})
	if err != nil {
		return err
	}
	m.Intent = clf

	neg, pos := clf.ClassCounts()
	ev := logger.Info().
		Int("train", len(train)).
		Int("positive", pos).
		Int("negative", neg).
		Int("vocabulary", clf.VocabularySize())
	if len(test) > 0 {
		score := intent.Evaluate(clf, test)
		m.IntentEvaluation = &score
		metrics.RecordIntentScores("holdout", score.Accuracy, score.Precision, score.Recall)
		ev = ev.Int("held_out", score.Examples).
			Float64("accuracy", score.Accuracy).
			Float64("precision", score.Precision).
			Float64("recall", score.Recall)
	}
	ev.Msg("intent classifier trained")
	return nil
}

func embeddingConfig(cfg *recommend.Config) embedding.Config {
	return embedding.Config{
		Dim:             cfg.Embedding.Dim,
		MaxFeatures:     cfg.Embedding.MaxFeatures,
		NGramMax:        cfg.Embedding.NGramMax,
		Oversample:      cfg.Embedding.Oversample,
		PowerIterations: cfg.Embedding.PowerIterations,
	}
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (p *Pipeline) factorConfig(logger zerolog.Logger) factors.Config {
	f := p.cfg.Factors
	return factors.Config{
		Factors:        f.Factors,
		LearningRate:   f.LearningRate,
		Regularization: f.Regularization,
		Epochs:         f.Epochs,
		InitScale:      f.InitScale,
		Workers:        f.Workers,
		OnEpoch: func(epoch int, loss float64) {
			metrics.RecordEpoch(loss)
			logger.Trace().Int("epoch", epoch).Float64("loss", loss).Msg("epoch complete")
		},
	}
}

// heldOutTriples maps test interactions onto the train indices. Rows whose
// user or item the train indices do not know are skipped.
func heldOutTriples(test []recommend.Interaction, idx *index.Result) []recommend.Triple {
	out := make([]recommend.Triple, 0, len(test))
	for _, in := range test {
		u, ok := idx.Users.Lookup(in.UserID)
		if !ok {
			continue
		}
		i, ok := idx.Items.Lookup(in.ItemID)
		if !ok {
			continue
		}
		out = append(out, recommend.Triple{User: u, Item: i, Rating: in.Rating})
	}
	return out
}

// LoadLatest restores the newest persisted model from store.
func LoadLatest(ctx context.Context, store *storage.Store) (*Model, error) {
	var b storage.Bundle
	meta, err := store.Load(ctx, ModelName, 0, &b)
	if err != nil {
		return nil, err
	}
	return ModelFromBundle(&b, meta)
}
