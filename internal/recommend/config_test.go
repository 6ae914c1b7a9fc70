// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package recommend

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	t.Parallel()

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero embedding dim", func(c *Config) { c.Embedding.Dim = 0 }},
		{"zero factors", func(c *Config) { c.Factors.Factors = 0 }},
		{"negative factors", func(c *Config) { c.Factors.Factors = -3 }},
		{"zero learning rate", func(c *Config) { c.Factors.LearningRate = 0 }},
		{"negative epochs", func(c *Config) { c.Factors.Epochs = -1 }},
		{"unknown split", func(c *Config) { c.Split.Strategy = "stratified" }},
		{"temporal fraction", func(c *Config) { c.Split.Strategy = "temporal"; c.Split.TestFraction = 1 }},
		{"zero eval k", func(c *Config) { c.Evaluation.K = 0 }},
		{"zero sample size", func(c *Config) { c.Evaluation.SampleSize = 0 }},
		{"negative sample size", func(c *Config) { c.Evaluation.SampleSize = -1 }},
		{"max k below default", func(c *Config) { c.Limits.MaxK = 5; c.Limits.DefaultK = 10 }},
		{"zero intent alpha", func(c *Config) { c.Intent.Alpha = 0 }},
		{"zero intent features", func(c *Config) { c.Intent.MaxFeatures = 0 }},
		{"intent holdout of everything", func(c *Config) { c.Intent.TestFraction = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestDisabledEvaluationSkipsChecks(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Evaluation.Enabled = false
	cfg.Evaluation.K = 0
	cfg.Evaluation.SampleSize = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestDisabledIntentSkipsChecks(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Intent.Enabled = false
	cfg.Intent.Alpha = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestEffectiveK(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	tests := []struct {
		in, want int
	}{
		{0, 10},
		{-4, 10},
		{7, 7},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		if got := cfg.EffectiveK(tt.in); got != tt.want {
			t.Errorf("EffectiveK(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Factors.Factors = 7
	if cfg.Factors.Factors == 7 {
		t.Error("Clone shares state with the original")
	}
}

func TestMarshalJSONRendersDurations(t *testing.T) {
	t.Parallel()

	data, err := DefaultConfig().MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if !strings.Contains(string(data), `"timeout":"30m0s"`) {
		t.Errorf("MarshalJSON() = %s, want timeout rendered as string", data)
	}
}

func TestStrategyString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s    Strategy
		want string
	}{
		{StrategyNone, "none"},
		{StrategyContent, "content"},
		{StrategyLatentFactor, "latent_factor"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.s, got, tt.want)
		}
		var parsed Strategy
		if err := parsed.UnmarshalText([]byte(tt.want)); err != nil || parsed != tt.s {
			t.Errorf("UnmarshalText(%q) = %v, %v, want %v", tt.want, parsed, err, tt.s)
		}
	}

	var s Strategy
	if err := s.UnmarshalText([]byte("hybrid")); err == nil {
		t.Error("UnmarshalText(hybrid) error = nil, want error")
	}
}

func TestResponseItemIDs(t *testing.T) {
	t.Parallel()

	var nilResp *Response
	if nilResp.ItemIDs() != nil {
		t.Error("nil response should yield nil ids")
	}
	resp := &Response{Items: []ScoredItem{{ID: "a"}, {ID: "b"}}}
	got := resp.ItemIDs()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("ItemIDs() = %v", got)
	}
}
