// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/recommend"
)

const testTopic = "interactions"

type fakeTracker struct {
	mu       sync.Mutex
	tracked  []recommend.Interaction
	requests []string
	panicFor string
}

func (f *fakeTracker) Track(ctx context.Context, in recommend.Interaction) {
	if in.UserID == f.panicFor {
		panic("tracker exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, in)
	f.requests = append(f.requests, logging.RequestIDFromContext(ctx))
}

func (f *fakeTracker) snapshot() []recommend.Interaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recommend.Interaction(nil), f.tracked...)
}

type fakeSink struct {
	mu      sync.Mutex
	applied []string
	err     error
}

func (f *fakeSink) ApplyInteraction(_ context.Context, in recommend.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, in.PostID)
	return f.err
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

type fakeRatingsCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (f *fakeRatingsCache) Invalidate(postID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, postID)
}

func (f *fakeRatingsCache) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invalidated...)
}

type harness struct {
	bus      *gochannel.GoChannel
	pub      *Publisher
	tracker  *fakeTracker
	sink     *fakeSink
	ratings  *fakeRatingsCache
	consumer *Consumer
	cancel   context.CancelFunc
	done     chan error
}

func startHarness(t *testing.T, sinkErr error, panicFor string) *harness {
	t.Helper()

	logger := logging.NewTestLogger(io.Discard)
	bus := NewBus(config.EventsConfig{BufferSize: 16, Topic: testTopic}, logger)
	t.Cleanup(func() { _ = bus.Close() })

	cfg := DefaultConsumerConfig(testTopic)
	cfg.RetryInterval = time.Millisecond

	h := &harness{
		bus:     bus,
		pub:     NewPublisher(bus, testTopic),
		tracker: &fakeTracker{panicFor: panicFor},
		sink:    &fakeSink{err: sinkErr},
		ratings: &fakeRatingsCache{},
		done:    make(chan error, 1),
	}
	h.consumer = NewConsumer(bus, bus, cfg, h.tracker, h.sink, logger).WithRatingsCache(h.ratings)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.consumer.Serve(ctx) }()

	select {
	case <-h.consumer.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never became ready")
	}
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
	}
}

func view(user, post string) recommend.Interaction {
	return recommend.Interaction{UserID: user, PostID: post, Type: recommend.InteractionView}
}

func TestSerializerRoundTripAndValidation(t *testing.T) {
	in := recommend.Interaction{
		UserID: "u1", PostID: "p1", Type: recommend.InteractionRate, Rating: 4,
		Tags: []string{"go"}, OccurredAt: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := MarshalInteraction(&in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"rate"`)

	out, err := UnmarshalInteraction(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	invalid := []recommend.Interaction{
		{PostID: "p1", Type: recommend.InteractionView},
		{UserID: "u1", Type: recommend.InteractionView},
		{UserID: "u1", PostID: "p1"},
		{UserID: "u1", PostID: "p1", Type: recommend.InteractionRate, Rating: 0},
	}
	for _, bad := range invalid {
		_, err := MarshalInteraction(&bad)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	}

	_, err = UnmarshalInteraction([]byte(`{"user_id":"u1","post_id":"p1","type":"poke"}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = UnmarshalInteraction([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestPublishStampsTimeAndRejectsInvalid(t *testing.T) {
	logger := logging.NewTestLogger(io.Discard)
	bus := NewBus(config.EventsConfig{BufferSize: 4}, logger)
	defer func() { _ = bus.Close() }()

	msgs, err := bus.Subscribe(context.Background(), testTopic)
	require.NoError(t, err)

	pub := NewPublisher(bus, testTopic)
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	ctx := logging.ContextWithRequestID(context.Background(), "req-1")
	require.NoError(t, pub.PublishInteraction(ctx, view("u1", "p1")))

	select {
	case msg := <-msgs:
		msg.Ack()
		assert.NotEmpty(t, msg.UUID)
		assert.Equal(t, "req-1", msg.Metadata.Get(MetadataRequestID))
		in, err := UnmarshalInteraction(msg.Payload)
		require.NoError(t, err)
		assert.True(t, in.OccurredAt.Equal(fixed))
	case <-time.After(5 * time.Second):
		t.Fatal("no message delivered")
	}

	err = pub.PublishInteraction(context.Background(), recommend.Interaction{UserID: "u1"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestConsumerAppliesInteractions(t *testing.T) {
	h := startHarness(t, nil, "")

	ctx := logging.ContextWithRequestID(context.Background(), "req-9")
	require.NoError(t, h.pub.PublishInteraction(ctx, view("u1", "p1")))
	require.NoError(t, h.pub.PublishInteraction(ctx, view("u2", "p2")))

	require.Eventually(t, func() bool { return len(h.tracker.snapshot()) == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, h.sink.count())

	h.tracker.mu.Lock()
	assert.Equal(t, []string{"req-9", "req-9"}, h.tracker.requests)
	h.tracker.mu.Unlock()
}

func TestConsumerInvalidatesRatingsAfterRate(t *testing.T) {
	h := startHarness(t, nil, "")

	require.NoError(t, h.pub.PublishInteraction(context.Background(), view("u1", "p1")))
	require.NoError(t, h.pub.PublishInteraction(context.Background(), recommend.Interaction{
		UserID: "u1", PostID: "p2", Type: recommend.InteractionRate, Rating: 5,
	}))

	require.Eventually(t, func() bool { return len(h.tracker.snapshot()) == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"p2"}, h.ratings.snapshot(), "only rate events touch rating summaries")
}

func TestConsumerSinkFailureStillTracks(t *testing.T) {
	h := startHarness(t, errors.New("duckdb unavailable"), "")

	require.NoError(t, h.pub.PublishInteraction(context.Background(), view("u1", "p1")))

	require.Eventually(t, func() bool { return len(h.tracker.snapshot()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, h.ratings.snapshot())
}

func TestConsumerAcksBadPayload(t *testing.T) {
	h := startHarness(t, nil, "")

	require.NoError(t, h.bus.Publish(testTopic, message.NewMessage("bad-1", []byte(`{"nope"`))))
	require.NoError(t, h.pub.PublishInteraction(context.Background(), view("u1", "p1")))

	require.Eventually(t, func() bool { return len(h.tracker.snapshot()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "p1", h.tracker.snapshot()[0].PostID)
	assert.Equal(t, 1, h.sink.count())
}

func TestConsumerParksPanickingMessage(t *testing.T) {
	h := startHarness(t, nil, "boom")

	poisoned, err := h.bus.Subscribe(context.Background(), testTopic+".poison")
	require.NoError(t, err)

	require.NoError(t, h.pub.PublishInteraction(context.Background(), view("boom", "p1")))

	select {
	case msg := <-poisoned:
		msg.Ack()
		in, err := UnmarshalInteraction(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, "boom", in.UserID)
	case <-time.After(5 * time.Second):
		t.Fatal("panicking message was not parked")
	}

	// The consumer keeps going after parking the message.
	require.NoError(t, h.pub.PublishInteraction(context.Background(), view("u1", "p2")))
	require.Eventually(t, func() bool { return len(h.tracker.snapshot()) == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestConsumerServeStopsOnCancel(t *testing.T) {
	h := startHarness(t, nil, "")
	h.cancel()

	select {
	case err := <-h.done:
		assert.ErrorIs(t, err, context.Canceled)
		h.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Equal(t, "interaction-consumer", h.consumer.String())
}
