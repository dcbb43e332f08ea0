// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/recommend"
)

// Metadata keys carried on every interaction message.
const (
	MetadataCorrelationID = "correlation_id"
	MetadataRequestID     = "request_id"
)

// Publisher publishes interaction events.
type Publisher struct {
	pub   message.Publisher
	topic string
	now   func() time.Time
}

// NewPublisher creates a Publisher for topic.
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	return &Publisher{pub: pub, topic: topic, now: time.Now}
}

// PublishInteraction validates and publishes one interaction. A zero
// OccurredAt is stamped with the current time.
//
//nolint:gocritic // hugeParam: Interaction is copied so the caller's value is never mutated
func (p *Publisher) PublishInteraction(ctx context.Context, in recommend.Interaction) error {
	if in.OccurredAt.IsZero() {
		in.OccurredAt = p.now().UTC()
	}

	payload, err := MarshalInteraction(&in)
	if err != nil {
		metrics.InteractionEventsPublished.WithLabelValues("invalid").Inc()
		return err
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataRequestID, id)
	}

	if err := p.pub.Publish(p.topic, msg); err != nil {
		metrics.InteractionEventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("publish interaction: %w", err)
	}
	metrics.InteractionEventsPublished.WithLabelValues("ok").Inc()
	return nil
}
