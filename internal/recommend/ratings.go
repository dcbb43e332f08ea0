// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/curator/internal/cache"
	"github.com/tomtom215/curator/internal/metrics"
)

// AggregatedRatings adapts a RatingAggregator to a RatingSource.
type AggregatedRatings struct {
	agg RatingAggregator
}

// NewAggregatedRatings wraps agg.
func NewAggregatedRatings(agg RatingAggregator) *AggregatedRatings {
	return &AggregatedRatings{agg: agg}
}

// Summary reads the average and the count of ratings for postID.
func (a *AggregatedRatings) Summary(ctx context.Context, postID string) (RatingSummary, error) {
	avg, err := a.agg.AverageRating(ctx, postID)
	if err != nil {
		return RatingSummary{}, fmt.Errorf("average rating: %w", err)
	}
	total, err := a.agg.TotalRatings(ctx, postID)
	if err != nil {
		return RatingSummary{}, fmt.Errorf("total ratings: %w", err)
	}
	return RatingSummary{Average: avg, Total: total}, nil
}

// CachedRatings memoizes rating summaries for a short TTL. A scheduler
// cycle scores the same candidate posts for every user, so most lookups
// after the first user are hits.
type CachedRatings struct {
	next  RatingSource
	cache *cache.LRU[RatingSummary]
}

// NewCachedRatings caches up to size summaries from next for ttl each.
func NewCachedRatings(next RatingSource, size int, ttl time.Duration) *CachedRatings {
	return &CachedRatings{next: next, cache: cache.NewLRU[RatingSummary](size, ttl)}
}

// Summary returns a cached summary or reads and caches a fresh one.
// Errors are not cached.
func (c *CachedRatings) Summary(ctx context.Context, postID string) (RatingSummary, error) {
	if s, ok := c.cache.Get(postID); ok {
		metrics.RatingCacheHits.Inc()
		return s, nil
	}
	metrics.RatingCacheMisses.Inc()

	s, err := c.next.Summary(ctx, postID)
	if err != nil {
		return RatingSummary{}, err
	}
	c.cache.Add(postID, s)
	return s, nil
}

// Invalidate drops a post's cached summary, for example after a new rating.
func (c *CachedRatings) Invalidate(postID string) {
	c.cache.Remove(postID)
}
