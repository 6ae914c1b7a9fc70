// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package recommend

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ErrInvalidConfig is returned for configuration values no run could succeed with.
var ErrInvalidConfig = errors.New("invalid recommend configuration")

// Config holds the engine configuration. The application config maps onto it
// once at startup; the engine never reads the environment itself.
type Config struct {
	Embedding  EmbeddingConfig  `json:"embedding"`
	Factors    FactorConfig     `json:"factors"`
	Split      SplitConfig      `json:"split"`
	Evaluation EvaluationConfig `json:"evaluation"`
	Training   TrainingConfig   `json:"training"`
	Limits     LimitsConfig     `json:"limits"`
	Intent     IntentConfig     `json:"intent"`

	// Seed drives every random draw of a training cycle.
	Seed int64 `json:"seed"`
}

// EmbeddingConfig configures the TF-IDF and SVD item embedding.
type EmbeddingConfig struct {
	// Dim is the embedding dimensionality. Default: 50.
	Dim int `json:"dim"`

	// MaxFeatures bounds the vocabulary. Default: 5000.
	MaxFeatures int `json:"max_features"`

	// NGramMax is the longest n-gram kept. Default: 2.
	NGramMax int `json:"ngram_max"`

	// Oversample adds extra random projections to the range finder. Default: 10.
	Oversample int `json:"oversample"`

	// PowerIterations sharpens the spectrum before projection. Default: 4.
	PowerIterations int `json:"power_iterations"`
}

// FactorConfig configures SGD matrix factorization.
type FactorConfig struct {
	// Factors is the latent dimensionality k. Default: 40.
	Factors int `json:"factors"`

	// LearningRate is the SGD step size. Default: 0.01.
	LearningRate float64 `json:"learning_rate"`

	// Regularization is the L2 penalty. Default: 0.02.
	Regularization float64 `json:"regularization"`

	// Epochs is always run in full. Default: 120.
	Epochs int `json:"epochs"`

	// InitScale is the standard deviation of the initial factors. Default: 0.1.
	InitScale float64 `json:"init_scale"`

	// Workers > 1 enables stratified parallel SGD. Default: 1.
	Workers int `json:"workers"`
}

// SplitConfig controls the train/test partition of a training cycle.
type SplitConfig struct {
	// Strategy is "random" or "temporal". Default: random.
	Strategy string `json:"strategy"`

	// TrainSize and TestSize bound the random split. Defaults: 100000 and 10000.
	TrainSize int `json:"train_size"`
	TestSize  int `json:"test_size"`

	// TestFraction is the share of most recent interactions held out by the temporal split.
	TestFraction float64 `json:"test_fraction"`
}

// EvaluationConfig configures the offline evaluation harness.
type EvaluationConfig struct {
	Enabled bool `json:"enabled"`

	// K is the cutoff for Recall/Precision/NDCG. Default: 10.
	K int `json:"k"`

	// SampleSize is the number of eligible users scored. Default: 200.
	SampleSize int `json:"sample_size"`

	// SeedsPerUser is the number of train items used as seeds. Default: 1.
	SeedsPerUser int `json:"seeds_per_user"`

	// Workers is the number of users scored concurrently. Default: 4.
	Workers int `json:"workers"`
}

// TrainingConfig covers the lifecycle of a training cycle.
type TrainingConfig struct {
	// Timeout bounds one full cycle. Default: 30m.
	Timeout time.Duration `json:"timeout"`

	// RetainVersions is how many persisted model versions to keep. Default: 3.
	RetainVersions int `json:"retain_versions"`
}

// LimitsConfig bounds request sizes.
type LimitsConfig struct {
	// DefaultK applies when a request leaves K unset. Default: 10.
	DefaultK int `json:"default_k"`

	// MaxK caps K. Default: 100.
	MaxK int `json:"max_k"`
}

// IntentConfig configures the purchase-intent classifier trained alongside
// the recommender when labelled reviews are available.
type IntentConfig struct {
	Enabled bool `json:"enabled"`

	// Alpha is the additive smoothing constant. Default: 1.0.
	Alpha float64 `json:"alpha"`

	// MaxFeatures bounds the vocabulary. Default: 20000.
	MaxFeatures int `json:"max_features"`

	// NGramMax is the longest n-gram kept. Default: 1.
	NGramMax int `json:"ngram_max"`

	// TestFraction is the share of labelled reviews held out for scoring.
	// Zero trains on everything and skips the holdout. Default: 0.2.
	TestFraction float64 `json:"test_fraction"`
}

// DefaultConfig returns the defaults of the reference deployment.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Dim:             50,
			MaxFeatures:     5000,
			NGramMax:        2,
			Oversample:      10,
			PowerIterations: 4,
		},
		Factors: FactorConfig{
			Factors:        40,
			LearningRate:   0.01,
			Regularization: 0.02,
			Epochs:         120,
			InitScale:      0.1,
			Workers:        1,
		},
		Split: SplitConfig{
			Strategy:     "random",
			TrainSize:    100000,
			TestSize:     10000,
			TestFraction: 0.1,
		},
		Evaluation: EvaluationConfig{
			Enabled:      true,
			K:            10,
			SampleSize:   200,
			SeedsPerUser: 1,
			Workers:      4,
		},
		Training: TrainingConfig{
			Timeout:        30 * time.Minute,
			RetainVersions: 3,
		},
		Limits: LimitsConfig{
			DefaultK: 10,
			MaxK:     100,
		},
		Intent: IntentConfig{
			Enabled:      true,
			Alpha:        1.0,
			MaxFeatures:  20000,
			NGramMax:     1,
			TestFraction: 0.2,
		},
		Seed: 42,
	}
}

// Validate checks the configuration for errors. Every error wraps ErrInvalidConfig.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Embedding.Dim < 1 {
		return fmt.Errorf("%w: embedding.dim must be positive, got %d", ErrInvalidConfig, c.Embedding.Dim)
	}
	if c.Embedding.MaxFeatures < 1 {
		return fmt.Errorf("%w: embedding.max_features must be positive, got %d", ErrInvalidConfig, c.Embedding.MaxFeatures)
	}
	if c.Embedding.NGramMax < 1 {
		return fmt.Errorf("%w: embedding.ngram_max must be positive, got %d", ErrInvalidConfig, c.Embedding.NGramMax)
	}
	if c.Embedding.Oversample < 0 || c.Embedding.PowerIterations < 0 {
		return fmt.Errorf("%w: embedding.oversample and power_iterations must be non-negative", ErrInvalidConfig)
	}

	if c.Factors.Factors < 1 {
		return fmt.Errorf("%w: factors.factors must be positive, got %d", ErrInvalidConfig, c.Factors.Factors)
	}
	if c.Factors.LearningRate <= 0 {
		return fmt.Errorf("%w: factors.learning_rate must be positive, got %f", ErrInvalidConfig, c.Factors.LearningRate)
	}
	if c.Factors.Regularization < 0 {
		return fmt.Errorf("%w: factors.regularization must be non-negative, got %f", ErrInvalidConfig, c.Factors.Regularization)
	}
	if c.Factors.Epochs < 0 {
		return fmt.Errorf("%w: factors.epochs must be non-negative, got %d", ErrInvalidConfig, c.Factors.Epochs)
	}

	switch c.Split.Strategy {
	case "random":
		if c.Split.TrainSize < 1 || c.Split.TestSize < 0 {
			return fmt.Errorf("%w: split.train_size must be positive and split.test_size non-negative", ErrInvalidConfig)
		}
	case "temporal":
		if c.Split.TestFraction <= 0 || c.Split.TestFraction >= 1 {
			return fmt.Errorf("%w: split.test_fraction must be in (0, 1), got %f", ErrInvalidConfig, c.Split.TestFraction)
		}
	default:
		return fmt.Errorf("%w: split.strategy must be random or temporal, got %q", ErrInvalidConfig, c.Split.Strategy)
	}

	if c.Evaluation.Enabled {
		if c.Evaluation.K < 1 {
			return fmt.Errorf("%w: evaluation.k must be positive, got %d", ErrInvalidConfig, c.Evaluation.K)
		}
		if c.Evaluation.SeedsPerUser < 1 {
			return fmt.Errorf("%w: evaluation.seeds_per_user must be positive, got %d", ErrInvalidConfig, c.Evaluation.SeedsPerUser)
		}
		if c.Evaluation.SampleSize < 1 {
			return fmt.Errorf("%w: evaluation.sample_size must be positive, got %d", ErrInvalidConfig, c.Evaluation.SampleSize)
		}
	}

	if c.Intent.Enabled {
		if c.Intent.Alpha <= 0 {
			return fmt.Errorf("%w: intent.alpha must be positive, got %f", ErrInvalidConfig, c.Intent.Alpha)
		}
		if c.Intent.MaxFeatures < 1 {
			return fmt.Errorf("%w: intent.max_features must be positive, got %d", ErrInvalidConfig, c.Intent.MaxFeatures)
		}
		if c.Intent.NGramMax < 1 {
			return fmt.Errorf("%w: intent.ngram_max must be positive, got %d", ErrInvalidConfig, c.Intent.NGramMax)
		}
		if c.Intent.TestFraction < 0 || c.Intent.TestFraction >= 1 {
			return fmt.Errorf("%w: intent.test_fraction must be in [0, 1), got %f", ErrInvalidConfig, c.Intent.TestFraction)
		}
	}

	if c.Training.Timeout <= 0 {
		return fmt.Errorf("%w: training.timeout must be positive, got %v", ErrInvalidConfig, c.Training.Timeout)
	}
	if c.Limits.DefaultK < 1 {
		return fmt.Errorf("%w: limits.default_k must be positive, got %d", ErrInvalidConfig, c.Limits.DefaultK)
	}
	if c.Limits.MaxK < c.Limits.DefaultK {
		return fmt.Errorf("%w: limits.max_k must be >= limits.default_k, got %d < %d", ErrInvalidConfig, c.Limits.MaxK, c.Limits.DefaultK)
	}
	return nil
}

// Clone returns a copy of the configuration. All sections are value types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// EffectiveK applies the default and the cap to a requested list length.
func (c *Config) EffectiveK(k int) int {
	if k <= 0 {
		return c.Limits.DefaultK
	}
	if k > c.Limits.MaxK {
		return c.Limits.MaxK
	}
	return k
}

// MarshalJSON renders durations as strings for the model manifest and the API.
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal(&struct {
		*Alias
		Training struct {
			Timeout        string `json:"timeout"`
			RetainVersions int    `json:"retain_versions"`
		} `json:"training"`
	}{
		Alias: (*Alias)(c),
		Training: struct {
			Timeout        string `json:"timeout"`
			RetainVersions int    `json:"retain_versions"`
		}{
			Timeout:        c.Training.Timeout.String(),
			RetainVersions: c.Training.RetainVersions,
		},
	})
}
