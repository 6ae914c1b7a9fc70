// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package api provides the HTTP layer of the recommendation service.

Routes:

	GET  /healthz                   liveness
	GET  /readyz                    503 until a model is serving
	GET  /metrics                   Prometheus exposition
	GET  /api/v1/recommendations    ?seed=...&seed=...&user_id=...&k=...&exclude=...
	POST /api/v1/recommendations    JSON body, same fields
	POST /api/v1/predict            purchase intent of review text: {"text": "...", "bought": "positive"}
	GET  /api/v1/predict/stats      classifier holdout and live scores
	GET  /api/v1/model              summary of the serving model
	POST /api/v1/model/retrain      start a background training cycle (202; when a trainer is set)

Every JSON body uses the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}}
	{"success": false, "error": {"code": "VALIDATION_FAILED", "message": "...", "details": [...]}}

The middleware stack is built from the chi ecosystem: request ids that are
propagated into the logging context, panic recovery, CORS via go-chi/cors,
per-IP rate limiting via go-chi/httprate, security headers, and Prometheus
request metrics labelled by route pattern.

Usage:

	rec := engine.NewRecommender(cfg.ToEngineConfig(), logger)
	h := api.NewHandler(rec, api.WithTrainer(trainer))
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: api.NewRouter(h, mwConfig).Setup()}
*/
package api
