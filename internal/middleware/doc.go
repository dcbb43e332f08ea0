// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package middleware provides HTTP middleware shared by the API router.

  - RequestID: request and correlation IDs for log tracing
  - PrometheusMetrics: per-route request counts and latency

Both use the standard func(http.Handler) http.Handler shape so they plug
directly into chi's r.Use. RequestID must run before anything that logs.
*/
package middleware
