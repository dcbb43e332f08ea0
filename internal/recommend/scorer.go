// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/curator/internal/recommend/signals"
)

// ScoreRequest is the input to Scorer.Score.
type ScoreRequest struct {
	UserID    string
	Posts     []Post
	Interests InterestVector
	Social    SocialSignals
	// HasSocialContext selects the social weight set under SchemeAuto.
	HasSocialContext bool
	// Exclude holds post IDs the user already saved or rated.
	Exclude map[string]struct{}
}

// Scorer ranks posts with a weighted sum of normalized signals.
// It is stateless apart from its collaborators and safe for concurrent use.
type Scorer struct {
	cfg     *Config
	ratings RatingSource
	now     func() time.Time
}

// NewScorer creates a scorer reading post quality from ratings.
func NewScorer(cfg *Config, ratings RatingSource) *Scorer {
	return &Scorer{cfg: cfg, ratings: ratings, now: time.Now}
}

// WithClock replaces the time source used for recency.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Score returns every eligible post ranked by score, highest first. Posts in
// req.Exclude and posts written by req.UserID are skipped. Rating lookup
// errors abort scoring.
func (s *Scorer) Score(ctx context.Context, req ScoreRequest) ([]ScoredPost, error) {
	weights := s.cfg.WeightsFor(req.HasSocialContext)
	interests := signals.CapAtOne(req.Interests)
	now := s.now()

	out := make([]ScoredPost, 0, len(req.Posts))
	for _, p := range req.Posts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, skip := req.Exclude[p.ID]; skip || p.AuthorID == req.UserID {
			continue
		}

		b, err := s.baseBreakdown(ctx, p, now)
		if err != nil {
			return nil, err
		}
		b.Interest = signals.TagMatch(p.Tags, interests)
		b.Social = signals.TagMatch(p.Tags, req.Social)

		out = append(out, ScoredPost{Post: p, Score: weights.Apply(b), Breakdown: b})
	}

	SortScored(out)
	return out, nil
}

// Trending ranks posts on the non-personal signals only: popularity,
// quality, recency and engagement, weighted as in the basic set and
// renormalized. Posts in exclude are skipped.
func (s *Scorer) Trending(ctx context.Context, posts []Post, exclude map[string]struct{}) ([]ScoredPost, error) {
	weights := s.cfg.Weights.Basic
	weights.Interest, weights.Social = 0, 0
	weights = weights.Normalize()
	now := s.now()

	out := make([]ScoredPost, 0, len(posts))
	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, skip := exclude[p.ID]; skip {
			continue
		}
		b, err := s.baseBreakdown(ctx, p, now)
		if err != nil {
			return nil, err
		}
		out = append(out, ScoredPost{Post: p, Score: weights.Apply(b), Breakdown: b})
	}

	SortScored(out)
	return out, nil
}

// Popular orders posts by view count, most viewed first, with ties broken by
// post ID. It reads nothing beyond the posts themselves and cannot fail.
func Popular(posts []Post, exclude map[string]struct{}) []ScoredPost {
	out := make([]ScoredPost, 0, len(posts))
	for _, p := range posts {
		if _, skip := exclude[p.ID]; skip {
			continue
		}
		pop := signals.Popularity(p.ViewCount)
		out = append(out, ScoredPost{Post: p, Score: pop, Breakdown: ScoreBreakdown{Popularity: pop}})
	}
	slices.SortFunc(out, func(a, b ScoredPost) int {
		if c := cmp.Compare(b.Post.ViewCount, a.Post.ViewCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Post.ID, b.Post.ID)
	})
	return out
}

func (s *Scorer) baseBreakdown(ctx context.Context, p Post, now time.Time) (ScoreBreakdown, error) {
	summary, err := s.ratings.Summary(ctx, p.ID)
	if err != nil {
		return ScoreBreakdown{}, fmt.Errorf("rating summary for post %s: %w", p.ID, err)
	}
	return ScoreBreakdown{
		Popularity: signals.Popularity(p.ViewCount),
		Quality:    signals.Quality(summary.Average),
		Recency:    signals.Recency(p.PublishedAt, now),
		Engagement: signals.Engagement(summary.Total),
	}, nil
}

// SortScored orders by score descending, then post ID ascending, so equal
// inputs always produce the same order.
func SortScored(items []ScoredPost) {
	slices.SortFunc(items, func(a, b ScoredPost) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Post.ID, b.Post.ID)
	})
}

// ClampNonIncreasing lowers any score that exceeds its predecessor so the
// sequence never increases. Order is unchanged. Used when trending items
// are appended after personalized ones before a feed is stored.
func ClampNonIncreasing(items []ScoredPost) {
	for i := 1; i < len(items); i++ {
		if items[i].Score > items[i-1].Score {
			items[i].Score = items[i-1].Score
		}
	}
}

func idSet(ids ...[]string) map[string]struct{} {
	n := 0
	for _, group := range ids {
		n += len(group)
	}
	set := make(map[string]struct{}, n)
	for _, group := range ids {
		for _, id := range group {
			set[id] = struct{}{}
		}
	}
	return set
}
