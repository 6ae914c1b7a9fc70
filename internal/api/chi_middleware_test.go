// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestIDWithLogging(t *testing.T) {
	t.Parallel()

	var seen string
	handler := RequestIDWithLogging()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if _, err := uuid.Parse(seen); err != nil {
			t.Errorf("request id %q is not a UUID: %v", seen, err)
		}
		if got := rec.Header().Get("X-Request-Id"); got != seen {
			t.Errorf("response header = %q, want %q", got, seen)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if seen != "upstream-42" {
			t.Errorf("request id = %q, want upstream-42", seen)
		}
	})

	t.Run("oversized id replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if len(seen) > 128 {
			t.Errorf("request id length = %d, want a fresh id", len(seen))
		}
	})
}

func TestAPISecurityHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(*http.Request)
		wantHSTS bool
	}{
		{"plain http", func(*http.Request) {}, false},
		{"forwarded https", func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") }, true},
		{"direct tls", func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			APISecurityHeaders()(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

			for header, want := range map[string]string{
				"X-Content-Type-Options": "nosniff",
				"X-Frame-Options":        "DENY",
				"Cache-Control":          "no-store",
			} {
				if got := rec.Header().Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
			if hsts := rec.Header().Get("Strict-Transport-Security") != ""; hsts != tt.wantHSTS {
				t.Errorf("HSTS present = %v, want %v", hsts, tt.wantHSTS)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	m := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	handler := m.RateLimit("test-limit")(http.HandlerFunc(okHandler))
	before := testutil.ToFloat64(metrics.APIRateLimited.WithLabelValues("test-limit"))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests {
			if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != ErrCodeTooManyRequests {
				t.Errorf("429 body error = %+v", env.Error)
			}
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
	if got := testutil.ToFloat64(metrics.APIRateLimited.WithLabelValues("test-limit")) - before; got != 1 {
		t.Errorf("rate limited counter delta = %v, want 1", got)
	}

	// Another client has its own budget.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.11:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d, want 200", rec.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	m := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 0})
	handler := m.RateLimit("disabled")(http.HandlerFunc(okHandler))
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://shop.example.com"}
	handler := NewChiMiddleware(cfg).CORS()(http.HandlerFunc(okHandler))

	tests := []struct {
		origin    string
		wantAllow string
	}{
		{"https://shop.example.com", "https://shop.example.com"},
		{"https://evil.example.net", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/recommendations", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", tt.origin, got, tt.wantAllow)
		}
	}
}

func TestPrometheusMetrics_RoutePattern(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Use(PrometheusMetrics())
	r.Get("/catalog-items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/catalog-items/{id}", "418")
	before := testutil.ToFloat64(counter)
	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/catalog-items/"+id, nil))
	}
	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("counter delta = %v, want 3 under the route pattern", got)
	}
}

func TestStatusResponseWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	sw := &statusResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	sw.WriteHeader(http.StatusNotFound)
	if sw.statusCode != http.StatusNotFound || rec.Code != http.StatusNotFound {
		t.Errorf("captured %d, recorded %d, want 404", sw.statusCode, rec.Code)
	}
	if sw.Unwrap() != rec {
		t.Error("Unwrap() did not return the wrapped writer")
	}
}
