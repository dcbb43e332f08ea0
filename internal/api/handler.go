// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curator/internal/recommend"
	"github.com/tomtom215/curator/internal/recommend/scheduler"
)

const defaultRequestTimeout = 10 * time.Second

// Recommender serves personalized recommendations.
type Recommender interface {
	GetPersonalized(ctx context.Context, req recommend.Request) (*recommend.Response, error)
}

// InteractionPublisher hands interactions to the event pipeline.
type InteractionPublisher interface {
	PublishInteraction(ctx context.Context, in recommend.Interaction) error
}

// FeedReader exposes the precomputed feed cache.
type FeedReader interface {
	GetFeed(ctx context.Context, userID string) (*recommend.Feed, error)
	Stats(ctx context.Context) (recommend.FeedStats, error)
}

// SchedulerStatus reports the background scheduler's state.
type SchedulerStatus interface {
	Status() scheduler.Status
}

// ReadinessCheck is one dependency probed by the readiness endpoint.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators the HTTP handlers need. Scheduler may be nil
// when background precomputation is disabled.
type Deps struct {
	Recommender    Recommender
	Publisher      InteractionPublisher
	Feeds          FeedReader
	Scheduler      SchedulerStatus
	Checks         []ReadinessCheck
	RequestTimeout time.Duration
}

// Handler implements the HTTP endpoints.
type Handler struct {
	deps    Deps
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewHandler creates a Handler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(deps Deps, logger zerolog.Logger) *Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{
		deps:    deps,
		timeout: timeout,
		logger:  logger.With().Str("component", "api").Logger(),
		now:     time.Now,
	}
}
