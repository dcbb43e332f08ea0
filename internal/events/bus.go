// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package events

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
)

// NewBus creates the in-process pub/sub used for interaction events.
// Messages published while nobody is subscribed are dropped.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBus(cfg config.EventsConfig, logger zerolog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, NewWatermillLogger(logger))
}

// NewWatermillLogger adapts a zerolog logger for watermill.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	l := logger.With().Str("component", "watermill").Logger()
	return watermill.NewSlogLogger(slog.New(logging.NewSlogHandler(l)))
}
