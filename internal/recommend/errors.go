// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import "errors"

var (
	// ErrInsufficientCorpus means fewer published posts exist than
	// personalized scoring requires.
	ErrInsufficientCorpus = errors.New("insufficient corpus for personalized scoring")

	// ErrInsufficientResults means a strategy produced fewer items than asked for.
	ErrInsufficientResults = errors.New("strategy produced too few results")

	// ErrFeedNotFound is returned by feed stores when a user has no stored feed.
	ErrFeedNotFound = errors.New("feed not found")

	// ErrFeedExpired means a stored feed exists but is past its validity window.
	ErrFeedExpired = errors.New("feed expired")

	// ErrPostNotFound is returned by post repositories for unknown IDs.
	ErrPostNotFound = errors.New("post not found")

	// ErrInvalidAuthToken is returned by social graphs for tokens that fail
	// verification.
	ErrInvalidAuthToken = errors.New("invalid auth token")

	// ErrNoStrategies is returned when a strategy chain is empty.
	ErrNoStrategies = errors.New("no recommendation strategies configured")
)
