// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - DuckDB table loads and CSV imports
// - HTTP API latency and throughput
// - Recommendation requests and the result cache
// - Training cycles (embedding, factors, evaluation)
// - Purchase-intent predictions and their scores

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	DBRowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_rows_loaded_total",
			Help: "Total number of rows read from DuckDB tables",
		},
		[]string{"table"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Recommendation Metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of recommendation requests by serving strategy",
		},
		[]string{"strategy"}, // "none", "content", "latent_factor"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time to score and rank one recommendation request",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"strategy"},
	)

	RecommendationUnresolvedSeeds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_unresolved_seeds_total",
			Help: "Total number of request seeds that matched no catalog item",
		},
	)

	RecommendationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_hits_total",
			Help: "Total number of recommendation result cache hits",
		},
	)

	RecommendationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_misses_total",
			Help: "Total number of recommendation result cache misses",
		},
	)

	// Training Metrics
	TrainingStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "training_stage_duration_seconds",
			Help:    "Duration of each training cycle stage in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		},
		[]string{"stage"}, // "load", "embedding", "factors", "intent", "evaluation", "persist"
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of training cycles by result",
		},
		[]string{"result"}, // "success", "error"
	)

	TrainingEpochs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "training_epochs_total",
			Help: "Total number of factor training epochs completed",
		},
	)

	TrainingLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_loss",
			Help: "Mean squared error of the most recent training epoch",
		},
	)

	TrainingTestRMSE = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_test_rmse",
			Help: "Rating RMSE of the latest factor model on held-out interactions",
		},
	)

	TrainingLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_last_success_timestamp",
			Help: "Unix timestamp of the last successful training cycle",
		},
	)

	IndexDroppedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "index_dropped_rows_total",
			Help: "Interactions dropped while building the identifier index",
		},
		[]string{"reason"}, // "missing_user", "unknown_item"
	)

	// Model Metrics
	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Version of the model currently serving requests",
		},
	)

	ModelSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_size",
			Help: "Size of the serving model by dimension",
		},
		[]string{"dimension"}, // "items", "users", "vocabulary"
	)

	EvaluationScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evaluation_score",
			Help: "Offline ranking quality of the latest evaluated model",
		},
		[]string{"metric"}, // "recall", "precision", "ndcg"
	)

	EvaluationEligibleUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evaluation_eligible_users",
			Help: "Users that qualified for the latest offline evaluation",
		},
	)

	// Intent Metrics
	IntentPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_predictions_total",
			Help: "Purchase-intent predictions by predicted and caller-supplied label",
		},
		[]string{"predicted", "actual"}, // actual is "unknown" when not supplied
	)

	IntentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_cache_lookups_total",
			Help: "Purchase-intent prediction cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	IntentScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intent_score",
			Help: "Purchase-intent classifier quality on held-out reviews or labelled live traffic",
		},
		[]string{"source", "metric"}, // source: "holdout", "live"; metric: "accuracy", "precision", "recall"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	APIRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limited_total",
			Help: "Requests rejected by the API rate limiter",
		},
		[]string{"endpoint"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendation records one served recommendation request.
func RecordRecommendation(strategy string, duration time.Duration, unresolvedSeeds int) {
	RecommendationRequests.WithLabelValues(strategy).Inc()
	RecommendationDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if unresolvedSeeds > 0 {
		RecommendationUnresolvedSeeds.Add(float64(unresolvedSeeds))
	}
}

// RecordCacheLookup records a result cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		RecommendationCacheHits.Inc()
	} else {
		RecommendationCacheMisses.Inc()
	}
}

// RecordTrainingStage records how long one training stage took.
func RecordTrainingStage(stage string, duration time.Duration) {
	TrainingStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordTrainingRun records the outcome of a full training cycle.
func RecordTrainingRun(err error) {
	if err != nil {
		TrainingRuns.WithLabelValues("error").Inc()
		return
	}
	TrainingRuns.WithLabelValues("success").Inc()
	TrainingLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordEpoch records one completed factor training epoch.
func RecordEpoch(loss float64) {
	TrainingEpochs.Inc()
	TrainingLoss.Set(loss)
}

// RecordTestRMSE publishes the held-out rating error of a trained factor model.
func RecordTestRMSE(rmse float64) {
	TrainingTestRMSE.Set(rmse)
}

// RecordIndexDrops records interactions discarded by the indexer.
func RecordIndexDrops(missingUser, unknownItem int) {
	IndexDroppedRows.WithLabelValues("missing_user").Add(float64(missingUser))
	IndexDroppedRows.WithLabelValues("unknown_item").Add(float64(unknownItem))
}

// SetServingModel publishes the shape of the model now serving requests.
func SetServingModel(version, items, users, vocabulary int) {
	ModelVersion.Set(float64(version))
	ModelSize.WithLabelValues("items").Set(float64(items))
	ModelSize.WithLabelValues("users").Set(float64(users))
	ModelSize.WithLabelValues("vocabulary").Set(float64(vocabulary))
}

// RecordEvaluation publishes offline evaluation results.
func RecordEvaluation(recall, precision, ndcg float64, eligible int) {
	EvaluationScore.WithLabelValues("recall").Set(recall)
	EvaluationScore.WithLabelValues("precision").Set(precision)
	EvaluationScore.WithLabelValues("ndcg").Set(ndcg)
	EvaluationEligibleUsers.Set(float64(eligible))
}

// RecordIntentPrediction records one served prediction. actual is empty
// when the caller did not supply a label.
func RecordIntentPrediction(predicted, actual string, cached bool) {
	if actual == "" {
		actual = "unknown"
	}
	IntentPredictions.WithLabelValues(predicted, actual).Inc()
	if cached {
		IntentCacheLookups.WithLabelValues("hit").Inc()
	} else {
		IntentCacheLookups.WithLabelValues("miss").Inc()
	}
}

// RecordIntentScores publishes classifier accuracy, precision and recall
// for source.
func RecordIntentScores(source string, accuracy, precision, recall float64) {
	IntentScore.WithLabelValues(source, "accuracy").Set(accuracy)
	IntentScore.WithLabelValues(source, "precision").Set(precision)
	IntentScore.WithLabelValues(source, "recall").Set(recall)
}

// RecordBreakerTransition publishes a circuit breaker state change. States
// are the gobreaker names: closed, half-open, open.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordBreakerRequest records one call through a circuit breaker.
func RecordBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
