// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package supervisor runs Curator's long-lived services under suture v4.

The tree has three layers so a failing component restarts without
disturbing the others:

	curator
	├── storage-layer
	│   └── store-gc               (storage.DB)
	├── pipeline-layer
	│   ├── feed-scheduler         (scheduler.Scheduler, when enabled)
	│   └── interaction-consumer   (events.Consumer)
	└── api-layer
	    └── http-server            (services.HTTPServerService)

Every service returns from Serve when its context is cancelled. A service
that returns early is restarted; after FailureThreshold failures within
the decay window the layer backs off for FailureBackoff.

Supervisor events are logged through sutureslog on a slog.Logger, which
the serve command backs with the zerolog adapter from internal/logging:

	logger := slog.New(logging.NewSlogHandler(logging.Logger()))
	tree := supervisor.NewTree(logger, supervisor.DefaultTreeConfig())
	tree.AddStorageService(store)
	tree.AddPipelineService(sched)
	tree.AddAPIService(services.NewHTTPServerService(srv, timeout, zl))
	err := tree.Serve(ctx)
*/
package supervisor
