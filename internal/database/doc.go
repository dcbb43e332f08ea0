// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package database is the DuckDB content datastore: users, posts, ratings,
// saves and friendships.
//
// DB implements the read-side collaborators the ranker depends on
// (recommend.PostRepository, RatingAggregator, InteractionLookup,
// FriendActivitySource and UserDirectory) plus the writes the interaction
// pipeline needs. It is a reference adapter; a deployment with its own
// content service only has to satisfy the same interfaces.
//
// Every query records its latency and outcome through metrics.RecordDBQuery.
package database
