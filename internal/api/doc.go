// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package api serves the recommendation HTTP API on a chi router.

Endpoints:

	GET  /api/v1/recommendations/{userID}   ranked posts (alias /recommendations/{userID})
	POST /api/v1/interactions               queue a user interaction (202)
	GET  /api/v1/feeds/stats                feed cache counts
	GET  /api/v1/feeds/{userID}             stored feed with validity
	GET  /api/v1/scheduler/status           scheduler state and last cycle
	GET  /api/v1/health/live                liveness
	GET  /api/v1/health/ready               readiness of storage dependencies
	GET  /metrics                           Prometheus exposition

Every JSON response uses the same envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": ..., "request_id": ...}}
	{"status": "error", "error": {"code": "...", "message": "..."}, "metadata": {...}}
*/
package api
