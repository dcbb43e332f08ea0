// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Command curator runs the personalized feed ranking service.

Subcommands:

	serve       HTTP API, feed scheduler and interaction consumer under a supervisor tree
	precompute  one scheduler cycle, printed as JSON
	maintain    force decay, cleanup or purge
	token       mint a bearer token for a user

Startup order for serve:

 1. Configuration (koanf: defaults, YAML file, environment)
 2. Logging (zerolog)
 3. DuckDB content datastore, optionally seeded with demo data
 4. BadgerDB store for interests, feeds and the maintenance ledger
 5. Recommender, interest tracker and scheduler
 6. In-process event bus with publisher and consumer
 7. Supervisor tree; SIGINT or SIGTERM stops it gracefully
*/
package main
