// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"github.com/tomtom215/folio/internal/api"
	"github.com/tomtom215/folio/internal/cache"
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/recommend/engine"
	"github.com/tomtom215/folio/internal/recommend/intent"
	"github.com/tomtom215/folio/internal/recommend/storage"
	"github.com/tomtom215/folio/internal/supervisor"
	"github.com/tomtom215/folio/internal/supervisor/services"
)

func runServe(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("serve", out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	logging.Info().
		Str("version", version).
		Str("go_version", runtime.Version()).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Folio")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB(db)

	store, err := storage.NewStore(cfg.Storage.ModelDir)
	if err != nil {
		return err
	}

	resultCache, err := cache.New(cfg.ToCacheConfig())
	if err != nil {
		return fmt.Errorf("open result cache: %w", err)
	}
	if resultCache != nil {
		defer func() {
			if err := resultCache.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close result cache")
			}
		}()
	}

	engineCfg := cfg.ToEngineConfig()
	var recOpts []engine.Option
	if resultCache != nil {
		recOpts = append(recOpts, engine.WithCache(resultCache))
	}
	if view, ok := cache.NewView[intent.Prediction](resultCache, "intent:"); ok {
		recOpts = append(recOpts, engine.WithPredictionCache(view))
	}
	if cfg.Intent.LogPath != "" {
		predictionLog, err := intent.OpenLog(cfg.Intent.LogPath)
		if err != nil {
			return fmt.Errorf("open prediction log: %w", err)
		}
		defer func() {
			if err := predictionLog.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close prediction log")
			}
		}()
		recOpts = append(recOpts, engine.WithPredictionLog(predictionLog))
	}
	rec := engine.NewRecommender(engineCfg, logging.WithComponent("recommender"), recOpts...)

	// Serve the last persisted model immediately; training replaces it later.
	switch m, err := engine.LoadLatest(ctx, store); {
	case err == nil:
		rec.Swap(m)
		logging.Info().Int("model_version", m.Version).Msg("Loaded persisted model")
	case errors.Is(err, storage.ErrNotFound):
		logging.Warn().Msg("No persisted model, serving 503 until the first training cycle completes")
	default:
		logging.Error().Err(err).Msg("Failed to load persisted model, waiting for training")
	}

	pipeline, err := engine.NewPipeline(engineCfg, db, store, logging.WithComponent("pipeline"))
	if err != nil {
		return err
	}

	var purger services.Purger
	if p, ok := resultCache.(cache.Purger); ok {
		purger = p
	}
	training := services.NewTrainingService(pipeline, rec, purger, services.TrainingConfig{
		OnStartup: cfg.Training.OnStartup,
		Interval:  cfg.Training.Interval,
	}, logging.WithComponent("training"))

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddModelService(training)
	if m, ok := resultCache.(cache.Maintainer); ok {
		tree.AddModelService(services.NewCacheMaintenanceService(m, 0, logging.WithComponent("cache")))
	}

	handler := api.NewHandler(rec,
		api.WithTrainer(training),
		api.WithRequestTimeout(cfg.Server.WriteTimeout),
	)
	router := api.NewRouter(handler, middlewareConfig(cfg.Server))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("services", len(report)).Msg("Some services did not stop within the shutdown timeout")
	}
	logging.Info().Msg("Folio stopped")
	return err
}

func middlewareConfig(s config.ServerConfig) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = s.CORSOrigins
	mw.RateLimitRequests = s.RateLimitRequests
	mw.RateLimitWindow = s.RateLimitWindow
	return mw
}
