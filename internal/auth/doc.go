// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package auth verifies viewer tokens and resolves them to friend lists.
//
// Tokens are HS256 JWTs whose subject is the viewer's user ID. Recommendation
// requests carry them in the Authorization header; SocialGraph turns a token
// into the viewer's friends so the ranker can compute social signals.
// Authentication is otherwise out of scope: an absent token simply means no
// social signals.
package auth
