// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recommenderFixture struct {
	posts        *fakePosts
	ratings      *fakeRatings
	interests    *fakeInterests
	interactions *fakeInteractions
	feeds        *fakeFeeds
	graph        *fakeGraph
	activity     *fakeActivity
}

func newFixture(posts ...Post) *recommenderFixture {
	return &recommenderFixture{
		posts:        &fakePosts{posts: posts},
		ratings:      &fakeRatings{summaries: map[string]RatingSummary{}},
		interests:    &fakeInterests{vectors: map[string]InterestVector{}},
		interactions: &fakeInteractions{seen: map[string][]string{}},
		feeds:        &fakeFeeds{feeds: map[string]*Feed{}},
		graph:        &fakeGraph{friends: map[string][]string{}},
		activity:     &fakeActivity{},
	}
}

func (f *recommenderFixture) build(t *testing.T, cfg *Config) *Recommender {
	t.Helper()
	r, err := NewRecommender(cfg, Dependencies{
		Posts:          f.posts,
		Ratings:        f.ratings,
		Interests:      f.interests,
		Interactions:   f.interactions,
		Social:         f.graph,
		FriendActivity: f.activity,
		Feeds:          f.feeds,
	}, nopLogger())
	require.NoError(t, err)
	return r.WithClock(fixedClock)
}

func manyPosts(n int) []Post {
	out := make([]Post, n)
	for i := range out {
		out[i] = post(fmt.Sprintf("p%02d", i+1), "author", int64(10*(n-i)), i%10, "misc")
	}
	return out
}

func TestNewRecommenderValidatesDependencies(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := NewRecommender(nil, Dependencies{Posts: f.posts}, nopLogger())
	require.Error(t, err)

	_, err = NewRecommender(nil, Dependencies{
		Posts:        f.posts,
		Ratings:      f.ratings,
		Interests:    f.interests,
		Interactions: f.interactions,
		Social:       f.graph,
	}, nopLogger())
	require.Error(t, err, "social graph without friend activity")

	cfg := DefaultConfig()
	cfg.Scheme = "weird"
	_, err = NewRecommender(cfg, Dependencies{
		Posts:        f.posts,
		Ratings:      f.ratings,
		Interests:    f.interests,
		Interactions: f.interactions,
	}, nopLogger())
	require.Error(t, err)
}

func TestSmallCorpusServesPopularity(t *testing.T) {
	t.Parallel()

	f := newFixture(
		post("p1", "a", 10, 1, "go"),
		post("p2", "a", 300, 1, "go"),
		post("p3", "a", 20, 1, "go"),
	)
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, TierPopularity, resp.Tier)
	assert.Equal(t, []string{"p2", "p3", "p1"}, ids(resp.Items))
	assert.Zero(t, f.interests.calls.Load(), "interests must not be read below the corpus threshold")
	assert.Equal(t, testNow, resp.GeneratedAt)
}

func TestRealtimeRanksByInterest(t *testing.T) {
	t.Parallel()

	f := newFixture(
		post("rust", "a", 100, 2, "rust"),
		post("go", "a", 100, 2, "go"),
		post("m1", "a", 100, 2, "misc"),
		post("m2", "a", 100, 2, "misc"),
		post("m3", "a", 100, 2, "misc"),
		post("m4", "a", 100, 2, "misc"),
	)
	f.interests.vectors["u1"] = InterestVector{"go": 0.9, "rust": 0.1}
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 6})
	require.NoError(t, err)

	assert.Equal(t, TierRealtime, resp.Tier)
	require.Len(t, resp.Items, 6)
	assert.Equal(t, "go", resp.Items[0].Post.ID)
	assert.Equal(t, "rust", resp.Items[1].Post.ID)
	for i := 1; i < len(resp.Items); i++ {
		assert.GreaterOrEqual(t, resp.Items[i-1].Score, resp.Items[i].Score)
	}
}

func TestRealtimeExcludesOwnAndInteractedPosts(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(8)...)
	f.posts.posts = append(f.posts.posts, post("mine", "u1", 5000, 0, "misc"))
	f.interactions.seen["u1"] = []string{"p01"}
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 7})
	require.NoError(t, err)

	assert.Equal(t, TierRealtime, resp.Tier)
	assert.NotContains(t, ids(resp.Items), "mine")
	assert.NotContains(t, ids(resp.Items), "p01")
	assert.Len(t, resp.Items, 7)
}

func TestRealtimeNeverTopsUpWithSeenPosts(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(8)...)
	f.interactions.seen["u1"] = []string{"p01", "p02", "p03", "p04", "p05"}
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 6})
	require.NoError(t, err)

	assert.Equal(t, TierRealtime, resp.Tier)
	assert.ElementsMatch(t, []string{"p06", "p07", "p08"}, ids(resp.Items))

	feed, err := r.ComputeFeed(context.Background(), "u1")
	require.NoError(t, err)
	for _, id := range ids(feed) {
		assert.NotContains(t, []string{"p01", "p02", "p03", "p04", "p05"}, id)
	}
	assert.Len(t, feed, 3)
}

func TestRealtimeTopsUpFromWiderPool(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(8)...)
	f.interactions.seen["u1"] = []string{"p01", "p02", "p03"}
	cfg := DefaultConfig()
	cfg.Limits.MaxCandidates = 5
	r := f.build(t, cfg)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 5})
	require.NoError(t, err)

	assert.Equal(t, TierRealtime, resp.Tier)
	got := ids(resp.Items)
	require.Len(t, got, 5)
	assert.ElementsMatch(t, []string{"p04", "p05"}, got[:2], "personalized results come first")
	assert.ElementsMatch(t, []string{"p06", "p07", "p08"}, got[2:])

	unique := make(map[string]struct{}, len(got))
	for _, id := range got {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 5, "top-up never repeats a post")
}

func TestPrecomputedFeedServedWhenValid(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(6)...)
	f.feeds.feeds["u1"] = &Feed{
		UserID:     "u1",
		PostIDs:    []string{"p03", "p01", "p02"},
		Scores:     []float64{0.9, 0.8, 0.7},
		ComputedAt: testNow.Add(-time.Minute),
		Valid:      true,
	}
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 2})
	require.NoError(t, err)

	assert.Equal(t, TierPrecomputed, resp.Tier)
	assert.Equal(t, []string{"p03", "p01"}, ids(resp.Items))
	assert.Equal(t, 0.9, resp.Items[0].Score)
	assert.Zero(t, f.posts.candidatesCalls.Load())
}

func TestPrecomputedSkipsDeletedAndExcludedAuthor(t *testing.T) {
	t.Parallel()

	f := newFixture(
		post("p1", "alice", 10, 1, "go"),
		post("p2", "bob", 10, 1, "go"),
		post("p3", "alice", 10, 1, "go"),
		post("p4", "alice", 10, 1, "go"),
		post("p5", "alice", 10, 1, "go"),
	)
	f.feeds.feeds["u1"] = &Feed{
		PostIDs: []string{"gone", "p2", "p1", "p3"},
		Scores:  []float64{1, 0.9, 0.8, 0.7},
		Valid:   true,
	}
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 2, ExcludeAuthorID: "bob"})
	require.NoError(t, err)

	assert.Equal(t, TierPrecomputed, resp.Tier)
	assert.Equal(t, []string{"p1", "p3"}, ids(resp.Items))
}

func TestPrecomputedFallsThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		feed *Feed
	}{
		{
			name: "expired feed",
			feed: &Feed{PostIDs: []string{"p01", "p02"}, Scores: []float64{1, 0.5}, Valid: false},
		},
		{
			name: "too few resolvable posts",
			feed: &Feed{PostIDs: []string{"p01", "gone"}, Scores: []float64{1, 0.5}, Valid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(manyPosts(6)...)
			f.feeds.feeds["u1"] = tt.feed
			r := f.build(t, nil)

			resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 2})
			require.NoError(t, err)
			assert.Equal(t, TierRealtime, resp.Tier)
			assert.Len(t, resp.Items, 2)
		})
	}
}

func TestSocialSignalsUsedWithToken(t *testing.T) {
	t.Parallel()

	f := newFixture(
		post("m1", "a", 100, 2, "misc"),
		post("m2", "a", 100, 2, "misc"),
		post("m3", "a", 100, 2, "misc"),
		post("m4", "a", 100, 2, "misc"),
		post("friendly", "a", 100, 2, "hiking"),
	)
	f.graph.friends["tok"] = []string{"f1"}
	f.activity.activity = []FriendActivity{
		{UserID: "f1", PostID: "other", Tags: []string{"hiking"}, Kind: FriendSaved, OccurredAt: testNow.Add(-time.Hour)},
	}
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 5, AuthToken: "tok"})
	require.NoError(t, err)

	assert.Equal(t, TierRealtime, resp.Tier)
	assert.Equal(t, "friendly", resp.Items[0].Post.ID)
	assert.Equal(t, 1.0, resp.Items[0].Breakdown.Social)
	assert.Equal(t, int32(1), f.graph.calls.Load())
}

func TestSocialFailureDegradesToBasicWeights(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(6)...)
	f.graph.err = errors.New("social graph unavailable")
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 3, AuthToken: "tok"})
	require.NoError(t, err)

	assert.Equal(t, TierRealtime, resp.Tier)
	for _, it := range resp.Items {
		assert.Zero(t, it.Breakdown.Social)
	}
}

func TestRealtimeFailureFallsBackToPopularity(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(6)...)
	f.interests.err = errors.New("interest store down")
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 3})
	require.NoError(t, err)

	assert.Equal(t, TierPopularity, resp.Tier)
	assert.Equal(t, []string{"p01", "p02", "p03"}, ids(resp.Items))
}

func TestPopularityFailureReturnsEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(6)...)
	f.posts.candidatesErr = errors.New("posts table locked")
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 3})
	require.NoError(t, err)

	assert.Equal(t, TierPopularity, resp.Tier)
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
}

func TestCountDefaultsAndCap(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(60)...)
	r := f.build(t, nil)

	resp, err := r.GetPersonalized(context.Background(), Request{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 20)

	resp, err = r.GetPersonalized(context.Background(), Request{UserID: "u1", Count: 500})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 50)
}

func TestGetPersonalizedCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(6)...)
	r := f.build(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GetPersonalized(ctx, Request{UserID: "u1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeFeed(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(12)...)
	f.interests.vectors["u1"] = InterestVector{"misc": 0.5}
	f.interactions.seen["u1"] = []string{"p01", "p02"}
	cfg := DefaultConfig()
	cfg.Limits.MaxFeedSize = 11
	r := f.build(t, cfg)

	items, err := r.ComputeFeed(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, items, 11)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Score, items[i].Score)
	}
	assert.Zero(t, f.graph.calls.Load(), "stored feeds are computed without social context")
}

func TestComputeFeedSmallCorpus(t *testing.T) {
	t.Parallel()

	f := newFixture(manyPosts(2)...)
	r := f.build(t, nil)

	_, err := r.ComputeFeed(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrInsufficientCorpus)
}

func TestCorpusReadyPropagatesErrors(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.posts.countErr = errors.New("count failed")
	r := f.build(t, nil)

	_, err := r.CorpusReady(context.Background())
	assert.ErrorIs(t, err, f.posts.countErr)
}
