// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/curator/internal/auth"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/recommend"
	"github.com/tomtom215/curator/internal/validation"
)

type recommendationsQuery struct {
	UserID          string `json:"user_id" validate:"required,max=128"`
	Count           int    `json:"count" validate:"gte=0,lte=1000"`
	ExcludeAuthorID string `json:"exclude_author" validate:"max=128"`
}

// RecommendationItem is one ranked post in a recommendations response.
type RecommendationItem struct {
	PostID    string                    `json:"post_id"`
	Score     float64                   `json:"score"`
	Title     string                    `json:"title"`
	AuthorID  string                    `json:"author_id"`
	Tags      []string                  `json:"tags,omitempty"`
	Breakdown *recommend.ScoreBreakdown `json:"breakdown,omitempty"`
}

// RecommendationsResponse is the data of a recommendations response.
type RecommendationsResponse struct {
	UserID      string               `json:"user_id"`
	Tier        recommend.Tier       `json:"tier"`
	Count       int                  `json:"count"`
	Items       []RecommendationItem `json:"items"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Recommendations handles GET /api/v1/recommendations/{userID}.
//
// Query parameters: count (defaults and caps apply), exclude_author, and
// explain=true to include each item's score breakdown. An optional bearer
// token enables social signals.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	q := recommendationsQuery{
		UserID:          chi.URLParam(r, "userID"),
		ExcludeAuthorID: r.URL.Query().Get("exclude_author"),
	}
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			rw.Error(http.StatusBadRequest, CodeBadRequest, "count must be an integer")
			return
		}
		q.Count = n
	}
	if ve := validation.ValidateStruct(&q); ve != nil {
		rw.ValidationError(ve)
		return
	}
	explain, _ := strconv.ParseBool(r.URL.Query().Get("explain"))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.deps.Recommender.GetPersonalized(ctx, recommend.Request{
		UserID:          q.UserID,
		Count:           q.Count,
		ExcludeAuthorID: q.ExcludeAuthorID,
		AuthToken:       auth.BearerToken(r),
	})
	if err != nil {
		l := logging.CtxWith(ctx, h.logger).Str("user_id", q.UserID).Logger()
		l.Warn().Err(err).Msg("recommendation request ended early")
		if errors.Is(err, context.DeadlineExceeded) {
			rw.Error(http.StatusServiceUnavailable, CodeTimeout, "recommendation request timed out")
			return
		}
		rw.Error(http.StatusServiceUnavailable, CodeUnavailable, "recommendation request cancelled")
		return
	}

	rw.Success(toRecommendationsResponse(resp, explain))
}

func toRecommendationsResponse(resp *recommend.Response, explain bool) RecommendationsResponse {
	items := make([]RecommendationItem, len(resp.Items))
	for i, sp := range resp.Items {
		items[i] = RecommendationItem{
			PostID:   sp.Post.ID,
			Score:    sp.Score,
			Title:    sp.Post.Title,
			AuthorID: sp.Post.AuthorID,
			Tags:     sp.Post.Tags,
		}
		if explain {
			b := sp.Breakdown
			items[i].Breakdown = &b
		}
	}
	return RecommendationsResponse{
		UserID:      resp.UserID,
		Tier:        resp.Tier,
		Count:       len(items),
		Items:       items,
		GeneratedAt: resp.GeneratedAt,
	}
}
