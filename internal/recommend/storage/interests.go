// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/recommend"
)

// Key layout: interest:<user>\x1f<tag> -> float64 bits, big endian.
const (
	interestPrefix = "interest:"
	keySep         = "\x1f"

	// maintenanceChunk bounds the entries touched by one transaction during
	// Decay and Cleanup so a single txn never exceeds Badger's size limit.
	maintenanceChunk = 500
)

// InterestStore keeps each user's accumulated tag interests.
// It satisfies recommend.InterestReader and recommend.InterestRecorder.
type InterestStore struct {
	db *DB
}

// NewInterestStore creates an interest store on db.
func NewInterestStore(db *DB) *InterestStore {
	return &InterestStore{db: db}
}

func interestKey(userID, tag string) []byte {
	return []byte(interestPrefix + userID + keySep + tag)
}

func userPrefix(userID string) []byte {
	return []byte(interestPrefix + userID + keySep)
}

func encodeScore(v float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

func decodeScore(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("interest value has %d bytes, want 8", len(b))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// RecordInteraction adds kind.Increment(rating) to the user's score for each
// distinct tag. All tags are updated in one transaction.
func (s *InterestStore) RecordInteraction(ctx context.Context, userID string, tags []string, kind recommend.InteractionType, rating int) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("interest_record", time.Since(start), err) }()

	if userID == "" {
		return errors.New("user ID is required")
	}
	if strings.Contains(userID, keySep) {
		return fmt.Errorf("user ID %q contains a reserved character", userID)
	}
	inc := kind.Increment(rating)
	if inc <= 0 {
		return fmt.Errorf("interaction type %d carries no weight", int(kind))
	}

	seen := make(map[string]struct{}, len(tags))
	unique := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		unique = append(unique, tag)
	}
	if len(unique) == 0 {
		return nil
	}

	return s.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
		for _, tag := range unique {
			key := interestKey(userID, tag)
			current, err := readScore(txn, key)
			if err != nil {
				return err
			}
			if err := txn.Set(key, encodeScore(current+inc)); err != nil {
				return fmt.Errorf("set interest %s: %w", tag, err)
			}
		}
		return nil
	})
}

func readScore(txn *badger.Txn, key []byte) (float64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get interest: %w", err)
	}
	var v float64
	err = item.Value(func(val []byte) error {
		v, err = decodeScore(val)
		return err
	})
	return v, err
}

// GetInterests returns the user's interest vector. Unknown users get an
// empty, non-nil vector.
func (s *InterestStore) GetInterests(ctx context.Context, userID string) (recommend.InterestVector, error) {
	start := time.Now()
	out := make(recommend.InterestVector)

	err := s.db.db.View(func(txn *badger.Txn) error {
		prefix := userPrefix(userID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			tag := string(bytes.TrimPrefix(item.Key(), prefix))
			err := item.Value(func(val []byte) error {
				v, err := decodeScore(val)
				if err != nil {
					return err
				}
				out[tag] = v
				return nil
			})
			if err != nil {
				return fmt.Errorf("read interest %s: %w", tag, err)
			}
		}
		return nil
	})
	metrics.RecordDBQuery("interest_get", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decay multiplies every stored score by factor and returns the number of
// entries rewritten. factor must be in (0, 1).
func (s *InterestStore) Decay(ctx context.Context, factor float64) (int, error) {
	if factor <= 0 || factor >= 1 || math.IsNaN(factor) {
		return 0, fmt.Errorf("decay factor must be between 0 and 1 exclusive, got %v", factor)
	}
	return s.rewriteAll(ctx, "interest_decay", func(v float64) (float64, bool) {
		return v * factor, true
	})
}

// Cleanup deletes every entry whose score is below floor and returns how
// many were removed. Entries at or above floor are untouched.
func (s *InterestStore) Cleanup(ctx context.Context, floor float64) (int, error) {
	if floor < 0 || math.IsNaN(floor) {
		return 0, fmt.Errorf("cleanup floor must be non-negative, got %v", floor)
	}
	return s.rewriteAll(ctx, "interest_cleanup", func(v float64) (float64, bool) {
		if v < floor {
			return 0, false
		}
		return v, true
	})
}

type pendingWrite struct {
	key   []byte
	value float64
	keep  bool
}

// rewriteAll walks every interest entry in chunks. fn returns the new value
// and whether to keep the entry; unchanged kept entries are not rewritten.
func (s *InterestStore) rewriteAll(ctx context.Context, op string, fn func(float64) (float64, bool)) (total int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(op, time.Since(start), err) }()

	prefix := []byte(interestPrefix)
	cursor := prefix
	for {
		var (
			next    []byte
			changed int
		)
		err := s.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
			writes, after, err := collectChunk(txn, prefix, cursor, fn)
			if err != nil {
				return err
			}
			next, changed = after, 0
			for _, w := range writes {
				if w.keep {
					err = txn.Set(w.key, encodeScore(w.value))
				} else {
					err = txn.Delete(w.key)
				}
				if err != nil {
					return err
				}
				changed++
			}
			return nil
		})
		if err != nil {
			return total, err
		}
		total += changed
		if next == nil {
			return total, nil
		}
		cursor = next
	}
}

// collectChunk reads up to maintenanceChunk entries starting at cursor and
// returns the writes fn asks for plus the key to resume from, or nil when
// the prefix is exhausted.
func collectChunk(txn *badger.Txn, prefix, cursor []byte, fn func(float64) (float64, bool)) ([]pendingWrite, []byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var (
		writes []pendingWrite
		seen   int
	)
	for it.Seek(cursor); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		if seen == maintenanceChunk {
			return writes, item.KeyCopy(nil), nil
		}
		seen++

		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, nil, fmt.Errorf("read interest value: %w", err)
		}
		v, err := decodeScore(raw)
		if err != nil {
			return nil, nil, err
		}
		nv, keep := fn(v)
		if keep && nv == v {
			continue
		}
		writes = append(writes, pendingWrite{key: item.KeyCopy(nil), value: nv, keep: keep})
	}
	return writes, nil, nil
}
