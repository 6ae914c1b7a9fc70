// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status       string  `json:"status"`
	ModelLoaded  bool    `json:"model_loaded"`
	ModelVersion int     `json:"model_version,omitempty"`
	Uptime       float64 `json:"uptime_seconds"`
}

func (h *Handler) health() HealthStatus {
	st := HealthStatus{Status: "healthy", Uptime: time.Since(h.startTime).Seconds()}
	if m := h.rec.Model(); m != nil {
		st.ModelLoaded = true
		st.ModelVersion = m.Version
	} else {
		st.Status = "degraded"
	}
	return st
}

// Healthz handles GET /healthz. The process is live whenever it can answer,
// so this is always 200.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.health())
}

// Readyz handles GET /readyz: 200 once a model is serving, 503 before.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	st := h.health()
	if !st.ModelLoaded {
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable,
			ErrCodeServiceUnavailable, "No model loaded", st)
		return
	}
	NewResponseWriter(w, r).Success(st)
}
