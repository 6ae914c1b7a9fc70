// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("Level = %q, want %q", cfg.Level, "info")
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if !cfg.Timestamp {
		t.Error("Timestamp should default to true")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("LOG_CALLER", "true")

	cfg := ConfigFromEnv(DefaultConfig())
	if cfg.Level != "debug" || cfg.Format != "console" || !cfg.Caller {
		t.Errorf("ConfigFromEnv() = %+v", cfg)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := WithComponent("trainer")
	logger.Info().Int("epochs", 3).Msg("training finished")

	out := buf.String()
	for _, want := range []string{`"component":"trainer"`, `"epochs":3`, "training finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestCtxAddsIdentifiers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithCycleID(ctx, "cycle-1")

	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request_id in %q", out)
	}
	if !strings.Contains(out, `"cycle_id":"cycle-1"`) {
		t.Errorf("missing cycle_id in %q", out)
	}
}

func TestIDsFromEmptyContext(t *testing.T) {
	t.Parallel()

	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", got)
	}
	if got := CycleIDFromContext(context.Background()); got != "" {
		t.Errorf("CycleIDFromContext() = %q, want empty", got)
	}
	if len(NewRequestID()) != 36 {
		t.Error("NewRequestID should return a full UUID")
	}
	if len(NewCycleID()) != 8 {
		t.Error("NewCycleID should return 8 characters")
	}
}

func TestSlogHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(NewTestLogger(&buf)))
	logger.WithGroup("svc").With("name", "api").Warn("restarting", "attempt", 2)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"svc.name":"api"`, `"svc.attempt":2`, "restarting"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
