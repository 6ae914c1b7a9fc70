// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Command folio trains and serves hybrid content / collaborative-filtering
// recommendations over a product catalog.
//
// # Commands
//
//	folio import     load the catalog, interaction and labelled review CSVs into DuckDB
//	folio train      run one training cycle and persist the model
//	folio evaluate   train in memory and print Recall/Precision/NDCG@K
//	folio recommend  print a top-K list from the latest persisted model
//	folio predict    classify the purchase intent of review text
//	folio monitor    score a prediction log against its recorded outcomes
//	folio serve      run the HTTP API with scheduled retraining
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (FOLIO_ prefix, "__" for nesting, plus LOG_LEVEL etc.)
//   - Config file (-config, CONFIG_PATH, or ./folio.yaml)
//   - Built-in defaults
//
// # Example Usage
//
//	folio import -catalog data/meta.csv -interactions data/reviews.csv -intent data/labelled.csv
//	folio train
//	folio recommend -seed "green tea" -seed B000FA3ND6 -k 5
//	folio recommend -user A2SUAM1J3GNN3B
//	folio predict -bought positive "arrived fresh, ordering again"
//	folio monitor -log /data/logs/predictions.jsonl
//	FOLIO_SERVER__PORT=9000 folio serve
//
// # Signal Handling
//
// serve shuts down gracefully on SIGINT and SIGTERM: the HTTP server drains
// in-flight requests, a running training cycle is canceled and the previous
// model stays on disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// command is one subcommand. run receives the arguments after its name.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error
}

var commands = []command{
	{"import", "load the catalog, interaction and labelled review CSVs into DuckDB", runImport},
	{"train", "run one training cycle and persist the model", runTrain},
	{"evaluate", "train in memory and report ranking metrics", runEvaluate},
	{"recommend", "print recommendations from the latest model", runRecommend},
	{"predict", "classify the purchase intent of review text", runPredict},
	{"monitor", "score a prediction log against its recorded outcomes", runMonitor},
	{"serve", "run the HTTP API with scheduled retraining", runServe},
}

// errUsage is returned after usage has been printed.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		logging.Error().Err(err).Msg("folio failed")
		os.Exit(1)
	}
}

// run parses global flags, loads configuration and dispatches.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("folio", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file (default: CONFIG_PATH or ./folio.yaml)")
	showVersion := fs.Bool("version", false, "print the version and exit")
	fs.Usage = func() { usage(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		_, err := fmt.Fprintln(stdout, "folio", version)
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	name := fs.Arg(0)
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		_, _ = fmt.Fprintf(stderr, "folio: unknown command %q\n\n", name)
		fs.Usage()
		return errUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(cfg.ToLoggingConfig())

	return cmd.run(ctx, cfg, fs.Args()[1:], stdout)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadWithKoanf()
}

func usage(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: folio [-config file] <command> [flags]")
	_, _ = fmt.Fprintln(w, "\nCommands:")
	for _, c := range commands {
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	_, _ = fmt.Fprintln(w, "\nGlobal flags:")
	fs.PrintDefaults()
}
