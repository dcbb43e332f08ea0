// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package storage persists ranking state in an embedded BadgerDB.
//
// Three stores share one DB, separated by key prefix:
//
//	interest:<user>\x1f<tag>   accumulated interest score (float64)
//	feed:<user>                precomputed feed record (JSON)
//	maintenance:<task>         last run time of a maintenance task
//
// Interest updates run in optimistic transactions and are retried on
// badger.ErrConflict, so concurrent increments to the same tag are never
// lost. Feed validity is computed on read from ComputedAt and the store's
// window.
package storage
