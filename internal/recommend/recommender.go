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

// Dependencies are the collaborators a Recommender reads from.
// Posts, Ratings, Interests and Interactions are required.
type Dependencies struct {
	Posts        PostRepository
	Ratings      RatingSource
	Interests    InterestReader
	Interactions InteractionLookup

	// Social and FriendActivity enable social signals; both or neither.
	Social         SocialGraph
	FriendActivity FriendActivitySource

	// Feeds enables the precomputed tier.
	Feeds FeedReader
}

// Recommender serves personalized recommendations through an ordered chain
// of strategies: a valid precomputed feed, then real-time scoring, then
// plain popularity.
type Recommender struct {
	cfg          *Config
	posts        PostRepository
	interests    InterestReader
	interactions InteractionLookup
	feeds        FeedReader
	social       *SocialSignalBuilder
	scorer       *Scorer
	strategies   []Strategy
	now          func() time.Time
	logger       zerolog.Logger
}

// NewRecommender validates cfg and wires the strategy chain.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRecommender(cfg *Config, deps Dependencies, logger zerolog.Logger) (*Recommender, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Posts == nil || deps.Ratings == nil || deps.Interests == nil || deps.Interactions == nil {
		return nil, errors.New("posts, ratings, interests and interactions are required")
	}
	if (deps.Social == nil) != (deps.FriendActivity == nil) {
		return nil, errors.New("social graph and friend activity must be provided together")
	}

	r := &Recommender{
		cfg:          cfg.Clone(),
		posts:        deps.Posts,
		interests:    deps.Interests,
		interactions: deps.Interactions,
		feeds:        deps.Feeds,
		now:          time.Now,
		logger:       logger.With().Str("component", "recommender").Logger(),
	}
	r.scorer = NewScorer(r.cfg, deps.Ratings)
	if deps.Social != nil {
		r.social = NewSocialSignalBuilder(deps.Social, deps.FriendActivity, r.cfg.Social)
	}

	r.strategies = []Strategy{
		{Tier: TierPrecomputed, Run: r.fromPrecomputed},
		{Tier: TierRealtime, Run: r.fromRealtime},
		{Tier: TierPopularity, Run: r.fromPopularity},
	}
	return r, nil
}

// WithClock replaces the time source for the recommender and its scorer.
func (r *Recommender) WithClock(now func() time.Time) *Recommender {
	r.now = now
	r.scorer.WithClock(now)
	if r.social != nil {
		r.social.WithClock(now)
	}
	return r
}

// Config returns a copy of the active configuration.
func (r *Recommender) Config() *Config {
	return r.cfg.Clone()
}

// GetPersonalized returns up to req.Count recommendations for req.UserID.
// The popularity tier never fails, so an error means the context ended.
func (r *Recommender) GetPersonalized(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	req = r.prepareRequest(req)
	logger := logging.CtxWith(ctx, r.logger).Str("user_id", req.UserID).Logger()

	tier, items, err := FirstSuccess(ctx, r.strategies, req, func(tier Tier, err error) {
		metrics.RecommendationFallbacks.WithLabelValues(string(tier)).Inc()
		event := logger.Debug()
		if !errors.Is(err, ErrFeedNotFound) && !errors.Is(err, ErrFeedExpired) &&
			!errors.Is(err, ErrInsufficientCorpus) && !errors.Is(err, ErrInsufficientResults) {
			event = logger.Warn()
		}
		event.Err(err).Str("tier", string(tier)).Msg("recommendation strategy failed, falling back")
	})
	if err != nil {
		return nil, err
	}

	if len(items) > req.Count {
		items = items[:req.Count]
	}
	metrics.RecommendationsServed.WithLabelValues(string(tier)).Inc()
	metrics.RecommendationDuration.Observe(time.Since(start).Seconds())

	logger.Debug().
		Str("tier", string(tier)).
		Int("returned", len(items)).
		Int("requested", req.Count).
		Msg("recommendations served")

	return &Response{
		UserID:      req.UserID,
		Tier:        tier,
		Items:       items,
		GeneratedAt: r.now(),
	}, nil
}

// ComputeFeed ranks up to MaxFeedSize posts for userID without social
// context, for storage as a precomputed feed. Scores are clamped so the
// stored sequence never increases.
func (r *Recommender) ComputeFeed(ctx context.Context, userID string) ([]ScoredPost, error) {
	items, err := r.rank(ctx, userID, r.cfg.Limits.MaxFeedSize, "", "")
	if err != nil {
		return nil, err
	}
	ClampNonIncreasing(items)
	return items, nil
}

// CorpusReady reports whether enough published posts exist for personalized scoring.
func (r *Recommender) CorpusReady(ctx context.Context) (bool, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	n, err := r.posts.PublishedCount(cctx)
	if err != nil {
		return false, fmt.Errorf("count published posts: %w", err)
	}
	return n >= r.cfg.Limits.MinCorpusSize, nil
}

func (r *Recommender) prepareRequest(req Request) Request {
	if req.Count <= 0 {
		req.Count = r.cfg.Limits.DefaultCount
	}
	if req.Count > r.cfg.Limits.MaxCount {
		req.Count = r.cfg.Limits.MaxCount
	}
	return req
}

// fromPrecomputed serves a valid stored feed when it still yields enough
// posts after dropping deleted posts and the excluded author.
func (r *Recommender) fromPrecomputed(ctx context.Context, req Request) ([]ScoredPost, error) {
	if r.feeds == nil {
		return nil, ErrFeedNotFound
	}

	cctx, cancel := r.callCtx(ctx)
	feed, err := r.feeds.GetFeed(cctx, req.UserID)
	cancel()
	if err != nil {
		return nil, err
	}
	if !feed.Valid {
		return nil, fmt.Errorf("computed at %s: %w", feed.ComputedAt.Format(time.RFC3339), ErrFeedExpired)
	}

	items := make([]ScoredPost, 0, req.Count)
	for i, id := range feed.PostIDs {
		if len(items) == req.Count {
			break
		}
		cctx, cancel := r.callCtx(ctx)
		post, err := r.posts.PostByID(cctx, id)
		cancel()
		if errors.Is(err, ErrPostNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve post %s: %w", id, err)
		}
		if req.ExcludeAuthorID != "" && post.AuthorID == req.ExcludeAuthorID {
			continue
		}
		items = append(items, ScoredPost{Post: post, Score: feed.Scores[i]})
	}

	if len(items) < req.Count {
		return nil, fmt.Errorf("%d of %d from stored feed: %w", len(items), req.Count, ErrInsufficientResults)
	}
	return items, nil
}

func (r *Recommender) fromRealtime(ctx context.Context, req Request) ([]ScoredPost, error) {
	return r.rank(ctx, req.UserID, req.Count, req.AuthToken, req.ExcludeAuthorID)
}

// fromPopularity is the last resort. Datastore errors are logged and yield
// an empty list rather than an error.
func (r *Recommender) fromPopularity(ctx context.Context, req Request) ([]ScoredPost, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	posts, err := r.posts.CandidatePosts(cctx, CandidateFilter{
		ExcludeAuthorIDs: []string{req.UserID, req.ExcludeAuthorID},
		Limit:            req.Count,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l := logging.CtxWith(ctx, r.logger).Str("user_id", req.UserID).Logger()
		l.Error().Err(err).Msg("popularity fallback could not read posts")
		return []ScoredPost{}, nil
	}
	items := Popular(posts, nil)
	if len(items) > req.Count {
		items = items[:req.Count]
	}
	return items, nil
}

// rank is the real-time path shared by requests and the scheduler.
func (r *Recommender) rank(ctx context.Context, userID string, count int, authToken, excludeAuthorID string) ([]ScoredPost, error) {
	ready, err := r.CorpusReady(ctx)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, ErrInsufficientCorpus
	}

	cctx, cancel := r.callCtx(ctx)
	candidates, err := r.posts.CandidatePosts(cctx, CandidateFilter{
		ExcludeAuthorIDs: []string{userID, excludeAuthorID},
		Limit:            r.cfg.Limits.MaxCandidates,
	})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	cctx, cancel = r.callCtx(ctx)
	seen, err := r.interactions.InteractedPostIDs(cctx, userID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("load interacted posts: %w", err)
	}

	cctx, cancel = r.callCtx(ctx)
	interests, err := r.interests.GetInterests(cctx, userID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("load interests: %w", err)
	}

	social := r.socialSignals(ctx, userID, authToken)

	scored, err := r.scorer.Score(ctx, ScoreRequest{
		UserID:           userID,
		Posts:            candidates,
		Interests:        interests,
		Social:           social,
		HasSocialContext: social != nil,
		Exclude:          idSet(seen),
	})
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	if len(scored) > count {
		scored = scored[:count]
	}
	if len(scored) == count {
		return scored, nil
	}

	return r.topUp(ctx, userID, excludeAuthorID, scored, candidates, seen, count), nil
}

// topUp appends trending posts the user has not interacted with until count
// is reached. When the candidate pool was truncated it is reloaded with room
// for the seen posts it may have contained. A trending failure keeps the
// personalized results as they are.
func (r *Recommender) topUp(ctx context.Context, userID, excludeAuthorID string, selected []ScoredPost, candidates []Post, seen []string, count int) []ScoredPost {
	selectedIDs := make([]string, len(selected))
	for i, s := range selected {
		selectedIDs[i] = s.Post.ID
	}
	exclude := idSet(seen, selectedIDs)

	pool := candidates
	if limit := r.cfg.Limits.MaxCandidates; len(candidates) >= limit && len(seen) > 0 {
		cctx, cancel := r.callCtx(ctx)
		wider, err := r.posts.CandidatePosts(cctx, CandidateFilter{
			ExcludeAuthorIDs: []string{userID, excludeAuthorID},
			Limit:            limit + len(seen),
		})
		cancel()
		if err != nil {
			l := logging.CtxWith(ctx, r.logger).Str("user_id", userID).Logger()
			l.Warn().Err(err).Msg("could not widen trending pool")
		} else {
			pool = wider
		}
	}

	trending, err := r.scorer.Trending(ctx, pool, exclude)
	if err != nil {
		l := logging.CtxWith(ctx, r.logger).Str("user_id", userID).Logger()
		l.Warn().Err(err).Msg("trending top-up failed")
		return selected
	}
	for _, t := range trending {
		if len(selected) == count {
			break
		}
		selected = append(selected, t)
	}
	return selected
}

// socialSignals returns nil when there is no usable auth context. Social
// graph failures degrade to the basic weights instead of failing the tier.
func (r *Recommender) socialSignals(ctx context.Context, userID, authToken string) SocialSignals {
	if r.social == nil || authToken == "" {
		return nil
	}
	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	social, err := r.social.Build(cctx, authToken)
	if err != nil {
		l := logging.CtxWith(ctx, r.logger).Str("user_id", userID).Logger()
		l.Warn().Err(err).Msg("social signals unavailable, scoring without them")
		return nil
	}
	return social
}

func (r *Recommender) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.CollaboratorTimeout)
}
