// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package metrics provides Prometheus instrumentation for Folio.
//
// All collectors are registered on the default registry through promauto and
// exposed by the API server at /metrics.
//
// # Metric Families
//
//   - duckdb_*: table load latency, errors and row counts
//   - api_*: request counts, latency and in-flight requests
//   - recommendation_*: requests and latency per strategy, unresolved seeds,
//     result cache hits and misses
//   - training_*: stage durations, run outcomes, epochs and loss
//   - index_dropped_rows_total: interactions discarded by the indexer
//   - model_*: version and size of the serving model
//   - evaluation_*: offline recall, precision, NDCG and eligible users
//
// # Usage
//
//	start := time.Now()
//	resp, err := rec.Recommend(ctx, req)
//	metrics.RecordRecommendation(resp.Strategy.String(), time.Since(start), len(resp.Unresolved))
//
// Example PromQL:
//
//	# p95 recommendation latency per strategy
//	histogram_quantile(0.95, sum by (le, strategy) (rate(recommendation_duration_seconds_bucket[5m])))
//
//	# share of requests served by the collaborative model
//	sum(rate(recommendation_requests_total{strategy="latent_factor"}[5m]))
//	  / sum(rate(recommendation_requests_total[5m]))
package metrics
