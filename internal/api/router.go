// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/curator/internal/middleware"
)

// NewRouter builds the HTTP routes.
//
// Health and metrics endpoints sit outside the rate limiter so probes and
// scrapes are never throttled.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/v1/health/live", h.Live)
	r.Get("/api/v1/health/ready", h.Ready)

	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/recommendations/{userID}", h.Recommendations)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/recommendations/{userID}", h.Recommendations)
			r.Post("/interactions", h.RecordInteraction)
			r.Get("/feeds/stats", h.FeedStats)
			r.Get("/feeds/{userID}", h.Feed)
			r.Get("/scheduler/status", h.SchedulerStatus)
		})
	})

	return r
}
