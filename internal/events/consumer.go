// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/recommend"
)

// Tracker updates interest from an interaction.
type Tracker interface {
	Track(ctx context.Context, in recommend.Interaction)
}

// InteractionSink persists the content side of an interaction, such as
// view counts and saves.
type InteractionSink interface {
	ApplyInteraction(ctx context.Context, in recommend.Interaction) error
}

// RatingsCache drops cached rating summaries once a new rating is stored.
type RatingsCache interface {
	Invalidate(postID string)
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Topic string

	// PoisonTopic receives messages whose handling still fails after retries.
	// Default: Topic + ".poison"
	PoisonTopic string

	MaxRetries    int
	RetryInterval time.Duration
	CloseTimeout  time.Duration
}

// DefaultConsumerConfig returns production defaults for topic.
func DefaultConsumerConfig(topic string) ConsumerConfig {
	return ConsumerConfig{
		Topic:         topic,
		PoisonTopic:   topic + ".poison",
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
		CloseTimeout:  10 * time.Second,
	}
}

// Consumer applies interaction events. It implements suture.Service; each
// Serve call runs a fresh watermill router.
//
// Middleware order, outer to inner: poison queue, retry, recoverer. A
// handler panic is retried and then parked on the poison topic so the
// message is acknowledged instead of redelivered forever.
type Consumer struct {
	sub     message.Subscriber
	poison  message.Publisher
	tracker Tracker
	sink    InteractionSink
	ratings RatingsCache
	cfg     ConsumerConfig
	logger  zerolog.Logger
	wmLog   watermill.LoggerAdapter

	readyOnce sync.Once
	ready     chan struct{}
}

// NewConsumer creates a Consumer. sink may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewConsumer(sub message.Subscriber, poison message.Publisher, cfg ConsumerConfig, tracker Tracker, sink InteractionSink, logger zerolog.Logger) *Consumer {
	if cfg.PoisonTopic == "" {
		cfg.PoisonTopic = cfg.Topic + ".poison"
	}
	return &Consumer{
		sub:     sub,
		poison:  poison,
		tracker: tracker,
		sink:    sink,
		cfg:     cfg,
		logger:  logger.With().Str("component", "interaction-consumer").Logger(),
		wmLog:   NewWatermillLogger(logger),
		ready:   make(chan struct{}),
	}
}

// WithRatingsCache invalidates a post's cached rating summary after each
// rate event reaches the sink.
func (c *Consumer) WithRatingsCache(rc RatingsCache) *Consumer {
	c.ratings = rc
	return c
}

// Ready is closed once the first router is subscribed.
func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

// Serve runs the router until ctx is cancelled.
func (c *Consumer) Serve(ctx context.Context) error {
	router, err := c.newRouter()
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-router.Running():
			c.readyOnce.Do(func() { close(c.ready) })
			c.logger.Info().Str("topic", c.cfg.Topic).Msg("Interaction consumer subscribed")
		case <-ctx.Done():
		}
	}()

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("interaction router: %w", err)
	}
	return ctx.Err()
}

func (c *Consumer) String() string {
	return "interaction-consumer"
}

func (c *Consumer) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: c.cfg.CloseTimeout}, c.wmLog)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	if c.poison != nil {
		poisonQueue, err := middleware.PoisonQueue(c.poison, c.cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poisonQueue)
	}
	retry := middleware.Retry{
		MaxRetries:      c.cfg.MaxRetries,
		InitialInterval: c.cfg.RetryInterval,
		MaxInterval:     10 * c.cfg.RetryInterval,
		Multiplier:      2,
		Logger:          c.wmLog,
	}
	router.AddMiddleware(retry.Middleware, middleware.Recoverer)

	router.AddNoPublisherHandler("interest-tracker", c.cfg.Topic, c.sub, c.handle)
	return router, nil
}

// handle applies one message. Undecodable payloads are logged and
// acknowledged. Sink failures are logged and never block interest tracking.
func (c *Consumer) handle(msg *message.Message) error {
	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	if id := msg.Metadata.Get(MetadataRequestID); id != "" {
		ctx = logging.ContextWithRequestID(ctx, id)
	}

	in, err := UnmarshalInteraction(msg.Payload)
	if err != nil {
		l := logging.CtxWith(ctx, c.logger).Str("message_uuid", msg.UUID).Logger()
		l.Warn().Err(err).Msg("Dropping undecodable interaction event")
		return nil
	}

	if c.sink != nil {
		if err := c.sink.ApplyInteraction(ctx, in); err != nil {
			l := logging.CtxWith(ctx, c.logger).
				Str("user_id", in.UserID).
				Str("post_id", in.PostID).
				Logger()
			l.Warn().Err(err).Msg("Content update for interaction failed")
		} else if c.ratings != nil && in.Type == recommend.InteractionRate {
			c.ratings.Invalidate(in.PostID)
		}
	}

	c.tracker.Track(ctx, in)
	return nil
}
