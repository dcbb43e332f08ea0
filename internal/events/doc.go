// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package events carries user interactions from the HTTP API to the interest
// tracker over an in-process watermill bus.
//
// The API publishes and returns immediately; the Consumer applies each event
// to the content datastore and the interest store in the background. Event
// processing failures never surface to the client that reported the
// interaction.
package events
