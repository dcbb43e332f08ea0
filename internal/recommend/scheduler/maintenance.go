// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Maintenance task names.
const (
	TaskDecay   = "decay"
	TaskCleanup = "cleanup"
	TaskPurge   = "purge"
)

// DayPredicate reports whether a maintenance task is due on the calendar
// day containing t.
type DayPredicate func(t time.Time) bool

// CronDays builds a DayPredicate from a standard five-field cron spec or a
// descriptor such as "@daily". A day matches when the schedule fires at
// least once during it; the minute and hour fields only matter in that
// sense.
func CronDays(spec string) (DayPredicate, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return func(t time.Time) bool {
		y, m, d := t.Date()
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		dayEnd := dayStart.AddDate(0, 0, 1)
		next := sched.Next(dayStart.Add(-time.Second))
		return !next.IsZero() && next.Before(dayEnd)
	}, nil
}

// Task is one maintenance job. Run returns the number of records affected.
type Task struct {
	Name string
	Due  DayPredicate
	Run  func(ctx context.Context) (int, error)
}

// TaskResult is the outcome of one maintenance run.
type TaskResult struct {
	Task     string        `json:"task"`
	Affected int           `json:"affected"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}
