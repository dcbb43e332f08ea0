// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package recommend ranks posts for individual users.
//
// # Architecture
//
// A post's score is a weighted sum of six normalized signals (see package
// signals): interest match, social match, popularity, quality, recency and
// engagement. Two weight sets exist. The social set applies when the viewer
// presented an auth token, the basic set otherwise; WeightScheme can pin
// either.
//
// Serving goes through an ordered list of strategies combined by
// FirstSuccess:
//
//  1. precomputed: a still-valid feed written by the scheduler
//  2. realtime: score candidates now, then top up with trending posts
//  3. popularity: most viewed posts, which never fails
//
// Real-time scoring is skipped entirely while fewer than MinCorpusSize
// posts are published.
//
// # Collaborators
//
// Posts, ratings, interactions, friendships and users live elsewhere and are
// reached through the interfaces in collaborators.go. Rating lookups go
// through CachedRatings and GuardedRatings, which add an LRU and a circuit
// breaker respectively.
//
// # Usage
//
//	rec, err := recommend.NewRecommender(cfg, recommend.Dependencies{
//	    Posts:        db,
//	    Ratings:      ratings,
//	    Interests:    interestStore,
//	    Interactions: db,
//	    Feeds:        feedStore,
//	}, logger)
//
//	resp, err := rec.GetPersonalized(ctx, recommend.Request{UserID: "u42", Count: 20})
//
// # Thread Safety
//
// Recommender, Scorer and InterestTracker are safe for concurrent use once
// constructed. WithClock must be called before sharing.
package recommend
