// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package services adapts blocking components to suture.Service.
//
// Most long-running components (the feed scheduler, the interaction
// consumer, the Badger GC loop) already implement Serve and String
// themselves; this package only holds wrappers for types that do not,
// such as *http.Server.
package services
