// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"context"
	"time"
)

// CandidateFilter narrows the posts returned by PostRepository.CandidatePosts.
type CandidateFilter struct {
	// ExcludeAuthorIDs drops posts written by these users. Empty IDs are ignored.
	ExcludeAuthorIDs []string
	// Limit caps the number of posts; 0 means no limit.
	Limit int
}

// PostRepository reads published posts.
type PostRepository interface {
	// PublishedCount returns the number of published posts.
	PublishedCount(ctx context.Context) (int, error)
	// CandidatePosts returns published posts, most viewed first.
	CandidatePosts(ctx context.Context, filter CandidateFilter) ([]Post, error)
	// PostByID returns ErrPostNotFound for unknown or unpublished posts.
	PostByID(ctx context.Context, postID string) (Post, error)
}

// RatingAggregator reports aggregated ratings for a post. Posts without
// ratings report 0 for both.
type RatingAggregator interface {
	AverageRating(ctx context.Context, postID string) (float64, error)
	TotalRatings(ctx context.Context, postID string) (int, error)
}

// RatingSource yields a post's rating summary in one call. The ranker reads
// ratings through this so caching and circuit breaking can wrap one method.
type RatingSource interface {
	Summary(ctx context.Context, postID string) (RatingSummary, error)
}

// InteractionLookup reports which posts a user has already saved or rated.
type InteractionLookup interface {
	InteractedPostIDs(ctx context.Context, userID string) ([]string, error)
}

// SocialGraph resolves the viewer behind an auth token to their friends.
// An empty token yields no friends and no error.
type SocialGraph interface {
	Friends(ctx context.Context, authToken string) ([]string, error)
}

// FriendActivityKind distinguishes the activity that produces social signals.
type FriendActivityKind int

const (
	FriendSaved FriendActivityKind = iota + 1
	FriendRated
)

// FriendActivity is one save or rating by a friend.
type FriendActivity struct {
	UserID     string
	PostID     string
	Tags       []string
	Kind       FriendActivityKind
	Rating     int
	OccurredAt time.Time
}

// FriendActivitySource lists friends' saves and high ratings since a time.
type FriendActivitySource interface {
	FriendActivity(ctx context.Context, friendIDs []string, since time.Time, minRating int) ([]FriendActivity, error)
}

// UserDirectory enumerates known users.
type UserDirectory interface {
	UserIDs(ctx context.Context) ([]string, error)
}

// InterestReader reads a user's interest vector.
type InterestReader interface {
	GetInterests(ctx context.Context, userID string) (InterestVector, error)
}

// InterestRecorder accumulates interaction-derived interest.
type InterestRecorder interface {
	RecordInteraction(ctx context.Context, userID string, tags []string, kind InteractionType, rating int) error
}

// FeedReader reads precomputed feeds. Missing feeds yield ErrFeedNotFound.
type FeedReader interface {
	GetFeed(ctx context.Context, userID string) (*Feed, error)
}
