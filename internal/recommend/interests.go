// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
)

// InterestTracker turns interactions into interest updates. Tracking is
// fire-and-forget: failures are logged and never reach the caller's
// primary operation.
type InterestTracker struct {
	store   InterestRecorder
	posts   PostRepository
	timeout time.Duration
	logger  zerolog.Logger
}

// NewInterestTracker creates a tracker. posts resolves tags for interactions
// that arrive without them.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewInterestTracker(store InterestRecorder, posts PostRepository, timeout time.Duration, logger zerolog.Logger) *InterestTracker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &InterestTracker{
		store:   store,
		posts:   posts,
		timeout: timeout,
		logger:  logger.With().Str("component", "interest-tracker").Logger(),
	}
}

// Record applies one interaction and returns any error.
func (t *InterestTracker) Record(ctx context.Context, in Interaction) error {
	if in.UserID == "" || in.PostID == "" {
		return errors.New("interaction requires user and post")
	}
	if in.Type.BaseWeight() == 0 {
		return fmt.Errorf("unsupported interaction type %d", int(in.Type))
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	tags := in.Tags
	if len(tags) == 0 {
		post, err := t.posts.PostByID(ctx, in.PostID)
		if err != nil {
			return fmt.Errorf("resolve tags for post %s: %w", in.PostID, err)
		}
		tags = post.Tags
	}
	if len(tags) == 0 {
		return nil
	}

	if err := t.store.RecordInteraction(ctx, in.UserID, tags, in.Type, in.Rating); err != nil {
		return fmt.Errorf("record %s interaction: %w", in.Type, err)
	}
	return nil
}

// Track records the interaction and swallows the error after logging it.
//
//nolint:gocritic // hugeParam: Interaction passed by value, it is copied into a goroutine by callers
func (t *InterestTracker) Track(ctx context.Context, in Interaction) {
	err := t.Record(ctx, in)
	metrics.RecordInteraction(in.Type.String(), err)
	if err != nil {
		l := logging.CtxWith(ctx, t.logger).
			Str("user_id", in.UserID).
			Str("post_id", in.PostID).
			Str("type", in.Type.String()).
			Logger()
		l.Warn().Err(err).Msg("interest update dropped")
	}
}
