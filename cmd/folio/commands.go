// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/engine"
	"github.com/tomtom215/folio/internal/recommend/evaluate"
	"github.com/tomtom215/folio/internal/recommend/intent"
	"github.com/tomtom215/folio/internal/recommend/storage"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("folio "+name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database")
	}
}

func runImport(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("import", out)
	catalogCSV := fs.String("catalog", cfg.Data.CatalogCSV, "catalog metadata CSV")
	interactionsCSV := fs.String("interactions", cfg.Data.InteractionsCSV, "interactions CSV")
	intentCSV := fs.String("intent", cfg.Data.IntentCSV, "labelled reviews CSV (text, bought)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *catalogCSV == "" && *interactionsCSV == "" && *intentCSV == "" {
		return errors.New("nothing to import: set -catalog, -interactions and/or -intent")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if *catalogCSV != "" {
		n, err := db.ImportCatalogCSV(ctx, *catalogCSV)
		if err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}
		logging.Info().Str("path", *catalogCSV).Int64("rows", n).Msg("Catalog imported")
	}
	if *interactionsCSV != "" {
		n, err := db.ImportInteractionsCSV(ctx, *interactionsCSV)
		if err != nil {
			return fmt.Errorf("import interactions: %w", err)
		}
		logging.Info().Str("path", *interactionsCSV).Int64("rows", n).Msg("Interactions imported")
	}
	if *intentCSV != "" {
		n, err := db.ImportIntentCSV(ctx, *intentCSV)
		if err != nil {
			return fmt.Errorf("import labelled reviews: %w", err)
		}
		logging.Info().Str("path", *intentCSV).Int64("rows", n).Msg("Labelled reviews imported")
	}

	items, interactions, err := db.TableCounts(ctx)
	if err != nil {
		return err
	}
	labelled, err := db.IntentCount(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, map[string]int{"items": items, "interactions": interactions, "intent_examples": labelled})
}

// trainSummary is what train prints after a successful cycle.
type trainSummary struct {
	Version      int              `json:"version"`
	TrainedAt    time.Time        `json:"trained_at"`
	Items        int              `json:"items"`
	Users        int              `json:"users"`
	FactorStatus string           `json:"factor_status"`
	Duration     string           `json:"duration"`
	Evaluation   *evaluate.Result `json:"evaluation,omitempty"`

	// Intent is absent when no labelled review was held out.
	Intent *intent.Metrics `json:"intent,omitempty"`
}

func runTrain(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("train", out)
	noEval := fs.Bool("no-eval", false, "skip offline evaluation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	engineCfg := cfg.ToEngineConfig()
	if *noEval {
		engineCfg.Evaluation.Enabled = false
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB(db)

	store, err := storage.NewStore(cfg.Storage.ModelDir)
	if err != nil {
		return err
	}
	pipeline, err := engine.NewPipeline(engineCfg, db, store, logging.WithComponent("cli"))
	if err != nil {
		return err
	}

	start := time.Now()
	m, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, trainSummary{
		Version:      m.Version,
		TrainedAt:    m.TrainedAt,
		Items:        m.Catalog.Len(),
		Users:        m.Users.Len(),
		FactorStatus: m.Factors.Status().String(),
		Duration:     time.Since(start).Round(time.Millisecond).String(),
		Evaluation:   m.Evaluation,
		Intent:       m.IntentEvaluation,
	})
}

func runEvaluate(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("evaluate", out)
	k := fs.Int("k", cfg.Evaluation.K, "cutoff for Recall/Precision/NDCG")
	sample := fs.Int("sample", cfg.Evaluation.SampleSize, "number of eligible users to evaluate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	engineCfg := cfg.ToEngineConfig()
	engineCfg.Evaluation.Enabled = true
	engineCfg.Evaluation.K = *k
	engineCfg.Evaluation.SampleSize = *sample

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB(db)

	// No store: evaluation runs never replace the served model.
	pipeline, err := engine.NewPipeline(engineCfg, db, nil, logging.WithComponent("cli"))
	if err != nil {
		return err
	}
	m, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	if m.Evaluation == nil {
		return errors.New("evaluation produced no result")
	}
	return printJSON(out, m.Evaluation)
}

func runRecommend(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("recommend", out)
	var seeds, exclude stringList
	fs.Var(&seeds, "seed", "seed item id or title (repeatable)")
	fs.Var(&exclude, "exclude", "item id to leave out (repeatable)")
	user := fs.String("user", "", "user id")
	k := fs.Int("k", 0, "list length (0 = server default)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req := buildRequest(seeds, exclude, *user, *k, fs.Args())

	m, err := loadLatestModel(ctx, cfg)
	if err != nil {
		return err
	}

	rec := engine.NewRecommender(cfg.ToEngineConfig(), logging.WithComponent("cli"), engine.WithModel(m))
	resp, err := rec.Recommend(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(out, resp)
}

func loadLatestModel(ctx context.Context, cfg *config.Config) (*engine.Model, error) {
	store, err := storage.NewStore(cfg.Storage.ModelDir)
	if err != nil {
		return nil, err
	}
	m, err := engine.LoadLatest(ctx, store)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("no trained model in %s, run \"folio train\" first: %w", cfg.Storage.ModelDir, err)
	}
	return m, err
}

func runPredict(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("predict", out)
	bought := fs.String("bought", "", "known outcome, positive or negative")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		return errors.New("predict needs review text")
	}
	var actual *intent.Label
	if *bought != "" {
		l, err := intent.ParseLabel(*bought)
		if err != nil {
			return fmt.Errorf("-bought: %w", err)
		}
		actual = &l
	}

	m, err := loadLatestModel(ctx, cfg)
	if err != nil {
		return err
	}
	rec := engine.NewRecommender(cfg.ToEngineConfig(), logging.WithComponent("cli"), engine.WithModel(m))
	res, err := rec.Predict(ctx, text, actual)
	if errors.Is(err, engine.ErrNoClassifier) {
		return fmt.Errorf("model v%d has no intent classifier, import labelled reviews and retrain: %w", m.Version, err)
	}
	if err != nil {
		return err
	}
	return printJSON(out, res)
}

func runMonitor(_ context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("monitor", out)
	path := fs.String("log", cfg.Intent.LogPath, "prediction log to score")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("no prediction log: set -log or intent.log_path")
	}

	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("open prediction log: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := intent.ReadLog(f)
	if err != nil {
		return err
	}
	return printJSON(out, intent.Replay(entries))
}

// buildRequest turns recommend flags into an engine request. Positional
// arguments are treated as extra seeds.
func buildRequest(seeds, exclude []string, user string, k int, positional []string) recommend.Request {
	req := recommend.Request{
		UserID: recommend.UserID(strings.TrimSpace(user)),
		K:      k,
	}
	for _, s := range append(append([]string(nil), seeds...), positional...) {
		if s = strings.TrimSpace(s); s != "" {
			req.Seeds = append(req.Seeds, s)
		}
	}
	for _, e := range exclude {
		for _, id := range strings.Split(e, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.Exclude = append(req.Exclude, recommend.ItemID(id))
			}
		}
	}
	return req
}
