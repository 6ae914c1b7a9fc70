// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/tomtom215/folio/internal/cache"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/recommend"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in values for every setting
//  2. Config File: Optional YAML file (CONFIG_PATH, folio.yaml, ...)
//  3. Environment Variables: FOLIO_SECTION__KEY, plus a few legacy names
//
// Configuration Categories:
//
//  1. Data: DuckDB tables and the CSV files imported into them
//  2. Model: embedding, factorization, split, evaluation, purchase intent
//     and training cycle
//  3. Serving: model store, result cache and HTTP server
//  4. Observability: logging
//
// Config is immutable after loading and safe for concurrent reads.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Data       DataConfig       `koanf:"data"`
	Model      ModelConfig      `koanf:"model"`
	Split      SplitConfig      `koanf:"split"`
	Evaluation EvaluationConfig `koanf:"evaluation"`
	Training   TrainingConfig   `koanf:"training"`
	Intent     IntentConfig     `koanf:"intent"`
	Storage    StorageConfig    `koanf:"storage"`
	Cache      CacheConfig      `koanf:"cache"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"` // ":memory:" keeps the tables in process
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // Number of DuckDB threads (0 = use NumCPU)
}

// DataConfig names the CSV files loaded by the import command.
type DataConfig struct {
	CatalogCSV      string `koanf:"catalog_csv"`
	InteractionsCSV string `koanf:"interactions_csv"`

	// IntentCSV holds reviews labelled with a purchase outcome (text and
	// bought columns). Empty skips the import.
	IntentCSV string `koanf:"intent_csv"`
}

// ModelConfig holds the hyperparameters of both halves of the hybrid model.
type ModelConfig struct {
	// Seed drives every random draw of a training cycle. Default: 42
	Seed int64 `koanf:"seed"`

	Embedding EmbeddingConfig `koanf:"embedding"`
	Factors   FactorsConfig   `koanf:"factors"`
}

// EmbeddingConfig configures the TF-IDF + truncated SVD item embedding.
type EmbeddingConfig struct {
	Dim             int `koanf:"dim"`
	MaxFeatures     int `koanf:"max_features"`
	NGramMax        int `koanf:"ngram_max"`
	Oversample      int `koanf:"oversample"`
	PowerIterations int `koanf:"power_iterations"`
}

// FactorsConfig configures SGD matrix factorization.
type FactorsConfig struct {
	Factors        int     `koanf:"factors"`
	LearningRate   float64 `koanf:"learning_rate"`
	Regularization float64 `koanf:"regularization"`
	Epochs         int     `koanf:"epochs"`
	InitScale      float64 `koanf:"init_scale"`
	Workers        int     `koanf:"workers"` // > 1 enables stratified parallel SGD
}

// SplitConfig controls the train/test partition.
type SplitConfig struct {
	// Strategy is "random" or "temporal".
	Strategy     string  `koanf:"strategy"`
	TrainSize    int     `koanf:"train_size"`
	TestSize     int     `koanf:"test_size"`
	TestFraction float64 `koanf:"test_fraction"` // temporal only
}

// EvaluationConfig configures the offline harness run after training.
type EvaluationConfig struct {
	Enabled      bool `koanf:"enabled"`
	K            int  `koanf:"k"`
	SampleSize   int  `koanf:"sample_size"`
	SeedsPerUser int  `koanf:"seeds_per_user"`
	Workers      int  `koanf:"workers"`
}

// TrainingConfig controls when and for how long training cycles run.
type TrainingConfig struct {
	// Interval between scheduled retrains in serve mode. 0 disables the schedule.
	Interval time.Duration `koanf:"interval"`

	// OnStartup trains before serving when no persisted model exists.
	OnStartup bool `koanf:"on_startup"`

	// Timeout bounds one full cycle.
	Timeout time.Duration `koanf:"timeout"`
}

// IntentConfig configures the purchase-intent classifier and its
// prediction log.
type IntentConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Alpha        float64 `koanf:"alpha"`
	MaxFeatures  int     `koanf:"max_features"`
	NGramMax     int     `koanf:"ngram_max"`
	TestFraction float64 `koanf:"test_fraction"`

	// LogPath receives one JSON line per served prediction. Empty disables
	// the log.
	LogPath string `koanf:"log_path"`
}

// StorageConfig holds the versioned model store settings.
type StorageConfig struct {
	ModelDir       string `koanf:"model_dir"`
	RetainVersions int    `koanf:"retain_versions"`
}

// CacheConfig selects the recommendation result cache.
type CacheConfig struct {
	// Backend is none, memory or badger.
	Backend  string        `koanf:"backend"`
	Path     string        `koanf:"path"`     // badger directory
	Capacity int           `koanf:"capacity"` // memory entries
	TTL      time.Duration `koanf:"ttl"`
}

// ServerConfig holds HTTP server settings and request limits.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	DefaultK        int           `koanf:"default_k"`
	MaxK            int           `koanf:"max_k"`

	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRequests per RateLimitWindow per client IP. Zero disables limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ToEngineConfig maps the application settings onto the engine
// configuration. The result is a fresh value owned by the caller.
func (c *Config) ToEngineConfig() *recommend.Config {
	return &recommend.Config{
		Embedding: recommend.EmbeddingConfig{
			Dim:             c.Model.Embedding.Dim,
			MaxFeatures:     c.Model.Embedding.MaxFeatures,
			NGramMax:        c.Model.Embedding.NGramMax,
			Oversample:      c.Model.Embedding.Oversample,
			PowerIterations: c.Model.Embedding.PowerIterations,
		},
		Factors: recommend.FactorConfig{
			Factors:        c.Model.Factors.Factors,
			LearningRate:   c.Model.Factors.LearningRate,
			Regularization: c.Model.Factors.Regularization,
			Epochs:         c.Model.Factors.Epochs,
			InitScale:      c.Model.Factors.InitScale,
			Workers:        c.Model.Factors.Workers,
		},
		Split: recommend.SplitConfig{
			Strategy:     c.Split.Strategy,
			TrainSize:    c.Split.TrainSize,
			TestSize:     c.Split.TestSize,
			TestFraction: c.Split.TestFraction,
		},
		Evaluation: recommend.EvaluationConfig{
			Enabled:      c.Evaluation.Enabled,
			K:            c.Evaluation.K,
			SampleSize:   c.Evaluation.SampleSize,
			SeedsPerUser: c.Evaluation.SeedsPerUser,
			Workers:      c.Evaluation.Workers,
		},
		Training: recommend.TrainingConfig{
			Timeout:        c.Training.Timeout,
			RetainVersions: c.Storage.RetainVersions,
		},
		Limits: recommend.LimitsConfig{
			DefaultK: c.Server.DefaultK,
			MaxK:     c.Server.MaxK,
		},
		Intent: recommend.IntentConfig{
			Enabled:      c.Intent.Enabled,
			Alpha:        c.Intent.Alpha,
			MaxFeatures:  c.Intent.MaxFeatures,
			NGramMax:     c.Intent.NGramMax,
			TestFraction: c.Intent.TestFraction,
		},
		Seed: c.Model.Seed,
	}
}

// ToCacheConfig maps the cache section onto the cache package settings.
func (c *Config) ToCacheConfig() cache.Config {
	return cache.Config{
		Backend:  c.Cache.Backend,
		Path:     c.Cache.Path,
		Capacity: c.Cache.Capacity,
		TTL:      c.Cache.TTL,
	}
}

// ToLoggingConfig maps the logging section onto the zerolog setup.
func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Caller:    c.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	}
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
