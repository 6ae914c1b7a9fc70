// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil config selects DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, config *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(config),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes in order
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is handled
	r.Use(AccessLog())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("No such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).MethodNotAllowed()
	})

	// Health checks and scraping are not rate limited.
	r.Group(func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/healthz", router.handler.Healthz)
		r.Get("/readyz", router.handler.Readyz)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Route("/recommendations", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit("recommendations"))
			r.Get("/", router.handler.GetRecommendations)
			r.Post("/", router.handler.PostRecommendations)
		})

		r.Route("/predict", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit("predict"))
			r.Post("/", router.handler.Predict)
			r.Get("/stats", router.handler.GetPredictStats)
		})

		r.Get("/model", router.handler.GetModel)
		r.With(router.chiMiddleware.RateLimit("retrain")).Post("/model/retrain", router.handler.Retrain)
	})

	return r
}
