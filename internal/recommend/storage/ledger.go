// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const ledgerPrefix = "maintenance:"

// Ledger remembers when each maintenance task last ran so a task runs at
// most once per calendar day across restarts.
type Ledger struct {
	db *DB
}

// NewLedger creates a ledger on db.
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// LastRun returns the last recorded run of task. ok is false if the task
// never ran.
func (l *Ledger) LastRun(ctx context.Context, task string) (at time.Time, ok bool, err error) {
	err = l.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ledgerPrefix + task))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, err := time.Parse(time.RFC3339Nano, string(val))
			if err != nil {
				return fmt.Errorf("parse last run of %s: %w", task, err)
			}
			at, ok = t, true
			return nil
		})
	})
	return at, ok, err
}

// MarkRun records that task ran at the given time.
func (l *Ledger) MarkRun(ctx context.Context, task string, at time.Time) error {
	return l.db.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ledgerPrefix+task), []byte(at.UTC().Format(time.RFC3339Nano)))
	})
}

// RanOn reports whether task already ran on the calendar day of day, in
// day's location.
func (l *Ledger) RanOn(ctx context.Context, task string, day time.Time) (bool, error) {
	last, ok, err := l.LastRun(ctx, task)
	if err != nil || !ok {
		return false, err
	}
	last = last.In(day.Location())
	y1, m1, d1 := last.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2, nil
}
