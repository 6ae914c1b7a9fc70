// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/recommend/engine"
)

// Pipeline runs one training cycle. Satisfied by *engine.Pipeline.
type Pipeline interface {
	Run(ctx context.Context) (*engine.Model, error)
}

// ModelSwapper installs a freshly trained model. Satisfied by *engine.Recommender.
type ModelSwapper interface {
	Swap(m *engine.Model) *engine.Model
}

// Purger drops every cached response. Satisfied by the cache stores.
type Purger interface {
	Purge() error
}

// TrainingConfig controls when cycles run.
type TrainingConfig struct {
	// OnStartup runs a cycle as soon as the service starts.
	OnStartup bool

	// Interval between scheduled cycles. Zero disables the schedule;
	// cycles then only run on startup, Retrain or Trigger.
	Interval time.Duration
}

// TrainingService retrains the model on a schedule and on demand, swaps the
// result into the recommender and purges the response cache. A failed cycle
// is logged and leaves the previous model serving; it never crashes the
// service. At most one cycle runs at a time.
type TrainingService struct {
	pipeline Pipeline
	rec      ModelSwapper
	cache    Purger // optional
	config   TrainingConfig
	logger   zerolog.Logger
	name     string

	running     atomic.Bool
	lastSuccess atomic.Int64 // unix nanos

	// serveCtx is the context of the running Serve call, nil otherwise.
	// Triggered cycles run on it and Serve waits for them before returning.
	mu       sync.Mutex
	serveCtx context.Context
	inFlight sync.WaitGroup
}

// NewTrainingService creates the service. cache may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingService(pipeline Pipeline, rec ModelSwapper, cache Purger, cfg TrainingConfig, logger zerolog.Logger) *TrainingService {
	return &TrainingService{
		pipeline: pipeline,
		rec:      rec,
		cache:    cache,
		config:   cfg,
		logger:   logger.With().Str("service", "training").Logger(),
		name:     "training-service",
	}
}

// Serve implements suture.Service.
func (s *TrainingService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("on_startup", s.config.OnStartup).
		Dur("interval", s.config.Interval).
		Msg("training service starting")

	s.mu.Lock()
	s.serveCtx = ctx
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.serveCtx = nil
		s.mu.Unlock()
		s.inFlight.Wait()
	}()

	if s.config.OnStartup {
		s.cycle(ctx, "startup")
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx, "schedule")
		}
	}
}

func (s *TrainingService) cycle(ctx context.Context, trigger string) {
	if _, err := s.Retrain(ctx); err != nil {
		s.logFailure(ctx, trigger, err)
	}
}

func (s *TrainingService) logFailure(ctx context.Context, trigger string, err error) {
	switch {
	case errors.Is(err, engine.ErrTrainingInProgress):
		s.logger.Info().Str("trigger", trigger).Msg("training cycle skipped, another is running")
	case ctx.Err() != nil:
		s.logger.Info().Str("trigger", trigger).Msg("training cycle interrupted by shutdown")
	default:
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("training cycle failed, previous model keeps serving")
	}
}

// Trigger starts a cycle in the background on the service's own context and
// returns without waiting for it. It fails with engine.ErrTrainingInProgress
// while a cycle runs and engine.ErrTrainingUnavailable when Serve is not
// running.
func (s *TrainingService) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.serveCtx == nil {
		return engine.ErrTrainingUnavailable
	}
	if !s.running.CompareAndSwap(false, true) {
		return engine.ErrTrainingInProgress
	}

	ctx := s.serveCtx
	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Done()
		defer s.running.Store(false)
		if _, err := s.retrain(ctx); err != nil {
			s.logFailure(ctx, "api", err)
		}
	}()
	return nil
}

// Running reports whether a cycle is in progress.
func (s *TrainingService) Running() bool {
	return s.running.Load()
}

// Retrain runs one cycle now, blocking until its model is installed.
func (s *TrainingService) Retrain(ctx context.Context) (*engine.Model, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, engine.ErrTrainingInProgress
	}
	defer s.running.Store(false)
	return s.retrain(ctx)
}

func (s *TrainingService) retrain(ctx context.Context) (*engine.Model, error) {
	start := time.Now()
	m, err := s.pipeline.Run(ctx)
	if err != nil {
		return nil, err
	}

	prev := s.rec.Swap(m)
	if s.cache != nil {
		if err := s.cache.Purge(); err != nil {
			// Keys carry the model version, so stale entries cannot be served.
			s.logger.Warn().Err(err).Msg("cache purge after model swap failed")
		}
	}
	s.lastSuccess.Store(time.Now().UnixNano())

	event := s.logger.Info().Int("version", m.Version).Dur("duration", time.Since(start))
	if prev != nil {
		event = event.Int("previous_version", prev.Version)
	}
	event.Msg("model retrained and swapped")
	return m, nil
}

// LastSuccess returns when the last cycle succeeded, or the zero time.
func (s *TrainingService) LastSuccess() time.Time {
	if ns := s.lastSuccess.Load(); ns != 0 {
		return time.Unix(0, ns)
	}
	return time.Time{}
}

// String names the service in supervisor logs.
func (s *TrainingService) String() string {
	return s.name
}
