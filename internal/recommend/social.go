// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/curator/internal/recommend/signals"
)

// SocialSignalBuilder derives tag affinities from what a viewer's friends
// recently saved or rated highly.
type SocialSignalBuilder struct {
	graph    SocialGraph
	activity FriendActivitySource
	cfg      SocialConfig
	now      func() time.Time
}

// NewSocialSignalBuilder creates a builder over the given collaborators.
func NewSocialSignalBuilder(graph SocialGraph, activity FriendActivitySource, cfg SocialConfig) *SocialSignalBuilder {
	return &SocialSignalBuilder{graph: graph, activity: activity, cfg: cfg, now: time.Now}
}

// WithClock replaces the time source used for the lookback window.
func (b *SocialSignalBuilder) WithClock(now func() time.Time) *SocialSignalBuilder {
	b.now = now
	return b
}

// Build returns social signals for the viewer identified by authToken.
// An empty token returns nil, meaning no social context. A viewer with no
// friends or no recent friend activity gets an empty, non-nil map.
//
// Each friend save adds 1 to every tag of the saved post; each rating at or
// above the threshold adds rating/5. Totals are scaled so the strongest tag
// is 1.
func (b *SocialSignalBuilder) Build(ctx context.Context, authToken string) (SocialSignals, error) {
	if authToken == "" {
		return nil, nil
	}

	friends, err := b.graph.Friends(ctx, authToken)
	if err != nil {
		return nil, fmt.Errorf("resolve friends: %w", err)
	}
	if len(friends) == 0 {
		return SocialSignals{}, nil
	}

	since := b.now().Add(-b.cfg.Lookback)
	activity, err := b.activity.FriendActivity(ctx, friends, since, b.cfg.HighRatingThreshold)
	if err != nil {
		return nil, fmt.Errorf("friend activity: %w", err)
	}

	raw := make(map[string]float64)
	for _, a := range activity {
		if a.OccurredAt.Before(since) {
			continue
		}
		var w float64
		switch a.Kind {
		case FriendSaved:
			w = 1
		case FriendRated:
			if a.Rating < b.cfg.HighRatingThreshold {
				continue
			}
			w = float64(a.Rating) / signals.MaxRating
		default:
			continue
		}
		for _, tag := range a.Tags {
			raw[tag] += w
		}
	}
	return SocialSignals(signals.NormalizeMax(raw)), nil
}
