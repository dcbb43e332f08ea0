// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSocialBuilder(graph *fakeGraph, activity *fakeActivity) *SocialSignalBuilder {
	return NewSocialSignalBuilder(graph, activity, DefaultConfig().Social).WithClock(fixedClock)
}

func TestSocialBuildWithoutTokenIsNil(t *testing.T) {
	t.Parallel()

	graph := &fakeGraph{}
	b := newTestSocialBuilder(graph, &fakeActivity{})

	got, err := b.Build(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, graph.calls.Load(), "graph is not consulted without a token")
}

func TestSocialBuildWithoutFriendsIsEmpty(t *testing.T) {
	t.Parallel()

	b := newTestSocialBuilder(&fakeGraph{friends: map[string][]string{}}, &fakeActivity{})

	got, err := b.Build(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSocialBuildWeighsSavesAndHighRatings(t *testing.T) {
	t.Parallel()

	recent := testNow.Add(-24 * time.Hour)
	activity := &fakeActivity{activity: []FriendActivity{
		{UserID: "f1", PostID: "p1", Tags: []string{"go", "db"}, Kind: FriendSaved, OccurredAt: recent},
		{UserID: "f2", PostID: "p2", Tags: []string{"go"}, Kind: FriendSaved, OccurredAt: recent},
		{UserID: "f1", PostID: "p3", Tags: []string{"rust"}, Kind: FriendRated, Rating: 4, OccurredAt: recent},
		{UserID: "f2", PostID: "p4", Tags: []string{"java"}, Kind: FriendRated, Rating: 2, OccurredAt: recent},
		{UserID: "f1", PostID: "p5", Tags: []string{"old"}, Kind: FriendSaved, OccurredAt: testNow.Add(-30 * 24 * time.Hour)},
		{UserID: "stranger", PostID: "p6", Tags: []string{"go"}, Kind: FriendSaved, OccurredAt: recent},
	}}
	b := newTestSocialBuilder(&fakeGraph{friends: map[string][]string{"tok": {"f1", "f2"}}}, activity)

	got, err := b.Build(context.Background(), "tok")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, got["go"], 1e-9)
	assert.InDelta(t, 0.5, got["db"], 1e-9)
	assert.InDelta(t, 0.4, got["rust"], 1e-9)
	assert.NotContains(t, got, "java", "ratings below the threshold are ignored")
	assert.NotContains(t, got, "old", "activity outside the lookback is ignored")
	assert.Equal(t, testNow.Add(-7*24*time.Hour), activity.since)
}

func TestSocialBuildPropagatesGraphErrors(t *testing.T) {
	t.Parallel()

	b := newTestSocialBuilder(&fakeGraph{err: ErrInvalidAuthToken}, &fakeActivity{})

	_, err := b.Build(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidAuthToken)
}

func TestSocialBuildPropagatesActivityErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("activity query failed")
	b := newTestSocialBuilder(
		&fakeGraph{friends: map[string][]string{"tok": {"f1"}}},
		&fakeActivity{err: boom},
	)

	_, err := b.Build(context.Background(), "tok")
	assert.ErrorIs(t, err, boom)
}
