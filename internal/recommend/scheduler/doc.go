// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package scheduler keeps precomputed feeds fresh in the background.
//
// Each cycle moves through Scanning, Computing and Maintaining before
// returning to Idle:
//
//   - Scanning collects users whose feed expired, expires within the
//     horizon, or does not exist yet.
//   - Computing ranks each of them with a bounded worker pool and a token
//     bucket, then stores the result. One user's failure or panic never
//     stops the batch. The whole phase is skipped while the corpus is too
//     small.
//   - Maintaining runs interest decay, interest cleanup and old feed purges
//     on the days their cron specs select, at most once per day.
//
// Scheduler implements suture.Service; Serve loops until its context is
// cancelled and waits Backoff instead of Interval after a failed cycle.
package scheduler
