// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func nopLogger() zerolog.Logger { return zerolog.Nop() }

// post builds a post published daysAgo days before testNow.
func post(id, author string, views int64, daysAgo int, tags ...string) Post {
	return Post{
		ID:          id,
		AuthorID:    author,
		Title:       "Post " + id,
		Tags:        tags,
		ViewCount:   views,
		PublishedAt: testNow.Add(-time.Duration(daysAgo) * 24 * time.Hour),
	}
}

type fakePosts struct {
	posts         []Post
	countErr      error
	candidatesErr error
	byIDErr       error

	countCalls      atomic.Int32
	candidatesCalls atomic.Int32
}

func (f *fakePosts) PublishedCount(context.Context) (int, error) {
	f.countCalls.Add(1)
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.posts), nil
}

func (f *fakePosts) CandidatePosts(_ context.Context, filter CandidateFilter) ([]Post, error) {
	f.candidatesCalls.Add(1)
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	out := make([]Post, 0, len(f.posts))
	for _, p := range f.posts {
		if slices.Contains(filter.ExcludeAuthorIDs, p.AuthorID) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Post) int {
		if c := cmp.Compare(b.ViewCount, a.ViewCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakePosts) PostByID(_ context.Context, id string) (Post, error) {
	if f.byIDErr != nil {
		return Post{}, f.byIDErr
	}
	for _, p := range f.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return Post{}, ErrPostNotFound
}

type fakeRatings struct {
	mu        sync.Mutex
	summaries map[string]RatingSummary
	err       error
	calls     int
}

func (f *fakeRatings) Summary(_ context.Context, postID string) (RatingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return RatingSummary{}, f.err
	}
	return f.summaries[postID], nil
}

func (f *fakeRatings) AverageRating(ctx context.Context, postID string) (float64, error) {
	s, err := f.Summary(ctx, postID)
	return s.Average, err
}

func (f *fakeRatings) TotalRatings(ctx context.Context, postID string) (int, error) {
	s, err := f.Summary(ctx, postID)
	return s.Total, err
}

type fakeInterests struct {
	vectors map[string]InterestVector
	err     error
	calls   atomic.Int32
}

func (f *fakeInterests) GetInterests(_ context.Context, userID string) (InterestVector, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[userID], nil
}

type recordedInteraction struct {
	userID string
	tags   []string
	kind   InteractionType
	rating int
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedInteraction
	err     error
}

func (f *fakeRecorder) RecordInteraction(_ context.Context, userID string, tags []string, kind InteractionType, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, recordedInteraction{userID, tags, kind, rating})
	return nil
}

type fakeInteractions struct {
	seen map[string][]string
	err  error
}

func (f *fakeInteractions) InteractedPostIDs(_ context.Context, userID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.seen[userID], nil
}

type fakeGraph struct {
	friends map[string][]string
	err     error
	calls   atomic.Int32
}

func (f *fakeGraph) Friends(_ context.Context, token string) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if token == "" {
		return nil, nil
	}
	return f.friends[token], nil
}

type fakeActivity struct {
	activity []FriendActivity
	err      error
	since    time.Time
}

func (f *fakeActivity) FriendActivity(_ context.Context, friendIDs []string, since time.Time, _ int) ([]FriendActivity, error) {
	f.since = since
	if f.err != nil {
		return nil, f.err
	}
	out := make([]FriendActivity, 0, len(f.activity))
	for _, a := range f.activity {
		if slices.Contains(friendIDs, a.UserID) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeFeeds struct {
	feeds map[string]*Feed
	err   error
}

func (f *fakeFeeds) GetFeed(_ context.Context, userID string) (*Feed, error) {
	if f.err != nil {
		return nil, f.err
	}
	feed, ok := f.feeds[userID]
	if !ok {
		return nil, ErrFeedNotFound
	}
	return feed, nil
}

func ids(items []ScoredPost) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Post.ID
	}
	return out
}
