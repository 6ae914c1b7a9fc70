// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package supervisor runs the long-lived parts of `folio serve` under a suture
supervision tree.

	folio (root)
	├── model-layer
	│   ├── training-service         periodic retraining, model swap, cache purge
	│   └── cache-maintenance        Badger value-log GC / LRU expiry sweep
	└── api-layer
	    └── http-server              chi router

Crashed services are restarted with suture's failure decay and backoff.
Supervisor events are logged through sutureslog, bridged onto zerolog with
logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddModelService(services.NewTrainingService(pipeline, rec, resultCache, cfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
