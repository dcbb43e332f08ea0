// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/recommend"
	"github.com/tomtom215/curator/internal/recommend/scheduler"
)

// FeedResponse is a stored feed with its derived validity.
type FeedResponse struct {
	UserID           string    `json:"user_id"`
	PostIDs          []string  `json:"post_ids"`
	Scores           []float64 `json:"scores"`
	ComputedAt       time.Time `json:"computed_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	Valid            bool      `json:"valid"`
	AlgorithmVersion string    `json:"algorithm_version"`
}

// Feed handles GET /api/v1/feeds/{userID}.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := chi.URLParam(r, "userID")

	feed, err := h.deps.Feeds.GetFeed(r.Context(), userID)
	switch {
	case errors.Is(err, recommend.ErrFeedNotFound):
		rw.Error(http.StatusNotFound, CodeNotFound, "no feed stored for user")
		return
	case err != nil:
		l := logging.CtxWith(r.Context(), h.logger).Str("user_id", userID).Logger()
		l.Error().Err(err).Msg("failed to read feed")
		rw.Error(http.StatusInternalServerError, CodeInternal, "failed to read feed")
		return
	}

	rw.Success(FeedResponse{
		UserID:           feed.UserID,
		PostIDs:          feed.PostIDs,
		Scores:           feed.Scores,
		ComputedAt:       feed.ComputedAt,
		ExpiresAt:        feed.ExpiresAt,
		Valid:            feed.Valid,
		AlgorithmVersion: feed.AlgorithmVersion,
	})
}

// FeedStats handles GET /api/v1/feeds/stats.
func (h *Handler) FeedStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	stats, err := h.deps.Feeds.Stats(r.Context())
	if err != nil {
		l := logging.CtxWith(r.Context(), h.logger).Logger()
		l.Error().Err(err).Msg("failed to compute feed stats")
		rw.Error(http.StatusInternalServerError, CodeInternal, "failed to compute feed stats")
		return
	}
	rw.Success(stats)
}

// SchedulerStatus handles GET /api/v1/scheduler/status.
func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Scheduler == nil {
		rw.Success(scheduler.Status{State: "disabled"})
		return
	}
	rw.Success(h.deps.Scheduler.Status())
}
