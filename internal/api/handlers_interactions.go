// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/recommend"
	"github.com/tomtom215/curator/internal/validation"
)

const maxInteractionBody = 64 << 10

// InteractionRequest is the body of POST /api/v1/interactions.
type InteractionRequest struct {
	UserID string   `json:"user_id" validate:"required,max=128"`
	PostID string   `json:"post_id" validate:"required,max=128"`
	Type   string   `json:"type" validate:"required,interaction_type"`
	Rating int      `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Tags   []string `json:"tags,omitempty" validate:"max=32,dive,required,max=64"`
}

// InteractionAccepted is the data of a 202 response.
type InteractionAccepted struct {
	UserID string `json:"user_id"`
	PostID string `json:"post_id"`
	Type   string `json:"type"`
}

// RecordInteraction handles POST /api/v1/interactions. A valid interaction
// is published to the event pipeline and acknowledged with 202; interest
// tracking happens asynchronously and its outcome never reaches the caller.
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req InteractionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInteractionBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		rw.Error(http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		rw.ValidationError(ve)
		return
	}

	kind, err := recommend.ParseInteractionType(req.Type)
	if err != nil {
		rw.Error(http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if kind == recommend.InteractionRate && req.Rating == 0 {
		rw.ValidationError(&validation.RequestValidationError{Fields: []validation.FieldError{{
			Field:   "rating",
			Tag:     "required",
			Message: "rating is required for rate interactions",
		}}})
		return
	}

	in := recommend.Interaction{
		UserID: req.UserID,
		PostID: req.PostID,
		Type:   kind,
		Rating: req.Rating,
		Tags:   req.Tags,
	}
	if err := h.deps.Publisher.PublishInteraction(r.Context(), in); err != nil {
		l := logging.CtxWith(r.Context(), h.logger).
			Str("user_id", in.UserID).
			Str("post_id", in.PostID).
			Logger()
		l.Error().Err(err).Msg("failed to publish interaction")
		rw.Error(http.StatusServiceUnavailable, CodeUnavailable, "interaction could not be queued")
		return
	}

	rw.SuccessWithStatus(http.StatusAccepted, InteractionAccepted{
		UserID: in.UserID,
		PostID: in.PostID,
		Type:   kind.String(),
	})
}
