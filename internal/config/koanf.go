// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/folio/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"folio.yaml",
	"folio.yml",
	"/etc/folio/config.yaml",
	"/etc/folio/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix marks environment variables that map onto config paths.
// A double underscore separates sections: FOLIO_MODEL__FACTORS__EPOCHS
// sets model.factors.epochs.
const EnvPrefix = "FOLIO_"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	engine := recommend.DefaultConfig()
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/folio.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Data: DataConfig{
			CatalogCSV:      "data/meta.csv",
			InteractionsCSV: "data/reviews.csv",
		},
		Model: ModelConfig{
			Seed: engine.Seed,
			Embedding: EmbeddingConfig{
				Dim:             engine.Embedding.Dim,
				MaxFeatures:     engine.Embedding.MaxFeatures,
				NGramMax:        engine.Embedding.NGramMax,
				Oversample:      engine.Embedding.Oversample,
				PowerIterations: engine.Embedding.PowerIterations,
			},
			Factors: FactorsConfig{
				Factors:        engine.Factors.Factors,
				LearningRate:   engine.Factors.LearningRate,
				Regularization: engine.Factors.Regularization,
				Epochs:         engine.Factors.Epochs,
				InitScale:      engine.Factors.InitScale,
				Workers:        engine.Factors.Workers,
			},
		},
		Split: SplitConfig{
			Strategy:     engine.Split.Strategy,
			TrainSize:    engine.Split.TrainSize,
			TestSize:     engine.Split.TestSize,
			TestFraction: engine.Split.TestFraction,
		},
		Evaluation: EvaluationConfig{
			Enabled:      engine.Evaluation.Enabled,
			K:            engine.Evaluation.K,
			SampleSize:   engine.Evaluation.SampleSize,
			SeedsPerUser: engine.Evaluation.SeedsPerUser,
			Workers:      engine.Evaluation.Workers,
		},
		Training: TrainingConfig{
			Interval:  24 * time.Hour,
			OnStartup: true,
			Timeout:   engine.Training.Timeout,
		},
		Intent: IntentConfig{
			Enabled:      engine.Intent.Enabled,
			Alpha:        engine.Intent.Alpha,
			MaxFeatures:  engine.Intent.MaxFeatures,
			NGramMax:     engine.Intent.NGramMax,
			TestFraction: engine.Intent.TestFraction,
			LogPath:      "/data/logs/predictions.jsonl",
		},
		Storage: StorageConfig{
			ModelDir:       "/data/models",
			RetainVersions: engine.Training.RetainVersions,
		},
		Cache: CacheConfig{
			Backend:  "memory",
			Path:     "/data/cache",
			Capacity: 10000,
			TTL:      5 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			DefaultK:        engine.Limits.DefaultK,
			MaxK:            engine.Limits.MaxK,

			CORSOrigins:       []string{},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (first of CONFIG_PATH and DefaultConfigPaths)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is LoadWithKoanf with an explicit config file, which must exist.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// legacyEnvMappings keeps the short names operators already use.
var legacyEnvMappings = map[string]string{
	"log_level":         "logging.level",
	"log_format":        "logging.format",
	"log_caller":        "logging.caller",
	"http_port":         "server.port",
	"http_host":         "server.host",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"model_dir":         "storage.model_dir",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - FOLIO_SERVER__PORT -> server.port
//   - FOLIO_MODEL__FACTORS__LEARNING_RATE -> model.factors.learning_rate
//   - LOG_LEVEL -> logging.level
//   - DUCKDB_PATH -> database.path
//
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	if rest, ok := strings.CutPrefix(key, EnvPrefix); ok {
		if rest == "" {
			return ""
		}
		return strings.ReplaceAll(strings.ToLower(rest), "__", ".")
	}
	return legacyEnvMappings[strings.ToLower(key)]
}
