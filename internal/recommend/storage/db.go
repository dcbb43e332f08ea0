// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rs/zerolog"
)

// Options configures the embedded store.
type Options struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in RAM. Nothing survives Close.
	InMemory bool

	// GCInterval is how often Serve runs value log garbage collection.
	GCInterval time.Duration

	// GCRatio is the discard ratio passed to RunValueLogGC.
	GCRatio float64
}

// DB owns the BadgerDB instance shared by the interest store, the feed
// store and the maintenance ledger. Each uses its own key prefix.
type DB struct {
	db     *badger.DB
	opts   Options
	logger zerolog.Logger
}

// Open opens (or creates) the store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(opts Options, logger zerolog.Logger) (*DB, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("store path is required unless running in memory")
	}
	if opts.GCInterval <= 0 {
		opts.GCInterval = 10 * time.Minute
	}
	if opts.GCRatio <= 0 || opts.GCRatio >= 1 {
		opts.GCRatio = 0.5
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Compression = options.Snappy
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logger = logger.With().Str("component", "store").Logger()
	logger.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Msg("store opened")

	return &DB{db: db, opts: opts, logger: logger}, nil
}

// OpenInMemory opens a throwaway in-memory store.
func OpenInMemory() (*DB, error) {
	return Open(Options{InMemory: true}, zerolog.Nop())
}

// RunGC rewrites value log files until nothing is left to reclaim.
// It is a no-op for in-memory stores.
func (d *DB) RunGC() error {
	if d.opts.InMemory {
		return nil
	}
	for {
		err := d.db.RunValueLogGC(d.opts.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

// Serve runs periodic garbage collection until ctx is cancelled.
// It implements suture.Service.
func (d *DB) Serve(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := d.RunGC(); err != nil {
				d.logger.Error().Err(err).Msg("store GC failed")
				continue
			}
			d.logger.Debug().Dur("duration", time.Since(start)).Msg("store GC complete")
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (d *DB) String() string {
	return "store-gc"
}

// Ping reports whether the store still accepts transactions.
func (d *DB) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.db.IsClosed() {
		return errors.New("store is closed")
	}
	return d.db.View(func(*badger.Txn) error { return nil })
}

// Close flushes and closes the store.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	d.logger.Info().Msg("store closed")
	return nil
}

// updateWithRetry runs fn in a read-write transaction, retrying when
// another writer committed a conflicting change first.
func (d *DB) updateWithRetry(ctx context.Context, fn func(txn *badger.Txn) error) error {
	const maxAttempts = 50
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = d.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		time.Sleep(time.Duration(rand.IntN(attempt+1)+1) * time.Millisecond)
	}
	return fmt.Errorf("gave up after %d conflicting attempts: %w", maxAttempts, err)
}
