// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/recommend"
)

const feedPrefix = "feed:"

// ErrInvalidFeed is returned by Upsert for records that break feed invariants.
var ErrInvalidFeed = errors.New("invalid feed")

// FeedStore keeps one precomputed feed per user. A feed is valid until
// ComputedAt plus the validity window; validity is derived on read and
// never stored.
type FeedStore struct {
	db      *DB
	window  time.Duration
	maxSize int
	now     func() time.Time

	// afterScan runs between the scan and the deletes of DeleteOlderThan.
	afterScan func()
}

// NewFeedStore creates a feed store on db.
func NewFeedStore(db *DB, window time.Duration, maxSize int) *FeedStore {
	if window <= 0 {
		window = time.Hour
	}
	if maxSize <= 0 {
		maxSize = 50
	}
	return &FeedStore{db: db, window: window, maxSize: maxSize, now: time.Now}
}

// WithClock replaces the time source used for validity and ComputedAt.
func (s *FeedStore) WithClock(now func() time.Time) *FeedStore {
	s.now = now
	return s
}

// Window returns the validity window.
func (s *FeedStore) Window() time.Duration {
	return s.window
}

func feedKey(userID string) []byte {
	return []byte(feedPrefix + userID)
}

// feedHeader is the part of a stored record needed for scans.
type feedHeader struct {
	UserID     string    `json:"user_id"`
	ComputedAt time.Time `json:"computed_at"`
}

func (s *FeedStore) derive(f *recommend.Feed, now time.Time) {
	f.ExpiresAt = f.ComputedAt.Add(s.window)
	f.Valid = now.Before(f.ExpiresAt)
}

// GetFeed returns the stored feed with Valid and ExpiresAt filled in, or
// recommend.ErrFeedNotFound.
func (s *FeedStore) GetFeed(ctx context.Context, userID string) (*recommend.Feed, error) {
	start := time.Now()
	var feed recommend.Feed

	err := s.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(feedKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return recommend.ErrFeedNotFound
		}
		if err != nil {
			return fmt.Errorf("get feed: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &feed)
		})
	})
	switch {
	case errors.Is(err, recommend.ErrFeedNotFound):
		metrics.RecordDBQuery("feed_get", time.Since(start), nil)
		return nil, err
	case err != nil:
		metrics.RecordDBQuery("feed_get", time.Since(start), err)
		return nil, err
	}
	metrics.RecordDBQuery("feed_get", time.Since(start), nil)

	s.derive(&feed, s.now())
	return &feed, nil
}

// Upsert replaces the user's feed with postIDs and scores, stamped with the
// current time and algorithmVersion. The lists must have equal length and
// scores must never increase. Lists longer than the maximum feed size are
// truncated.
func (s *FeedStore) Upsert(ctx context.Context, userID string, postIDs []string, scores []float64, algorithmVersion string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("feed_upsert", time.Since(start), err) }()

	if userID == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidFeed)
	}
	if len(postIDs) != len(scores) {
		return fmt.Errorf("%w: %d post IDs but %d scores", ErrInvalidFeed, len(postIDs), len(scores))
	}
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[i-1] {
			return fmt.Errorf("%w: score at %d (%v) exceeds its predecessor (%v)", ErrInvalidFeed, i, scores[i], scores[i-1])
		}
	}
	if len(postIDs) > s.maxSize {
		postIDs, scores = postIDs[:s.maxSize], scores[:s.maxSize]
	}

	feed := recommend.Feed{
		UserID:           userID,
		PostIDs:          slices.Clone(postIDs),
		Scores:           slices.Clone(scores),
		ComputedAt:       s.now().UTC(),
		AlgorithmVersion: algorithmVersion,
	}
	if feed.PostIDs == nil {
		feed.PostIDs, feed.Scores = []string{}, []float64{}
	}
	data, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}

	return s.db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(feedKey(userID), data)
	})
}

// UpsertScored stores a ranked list as returned by Recommender.ComputeFeed.
func (s *FeedStore) UpsertScored(ctx context.Context, userID string, items []recommend.ScoredPost, algorithmVersion string) error {
	ids := make([]string, len(items))
	scores := make([]float64, len(items))
	for i, it := range items {
		ids[i] = it.Post.ID
		scores[i] = it.Score
	}
	return s.Upsert(ctx, userID, ids, scores, algorithmVersion)
}

// scan calls fn with the header of every stored feed.
func (s *FeedStore) scan(ctx context.Context, op string, fn func(h feedHeader)) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(op, time.Since(start), err) }()

	return s.db.db.View(func(txn *badger.Txn) error {
		prefix := []byte(feedPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var h feedHeader
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &h)
			}); err != nil {
				return fmt.Errorf("decode feed %s: %w", it.Item().Key(), err)
			}
			fn(h)
		}
		return nil
	})
}

// ListExpired returns users whose stored feed is no longer valid.
func (s *FeedStore) ListExpired(ctx context.Context) ([]string, error) {
	now := s.now()
	var users []string
	err := s.scan(ctx, "feed_list_expired", func(h feedHeader) {
		if !now.Before(h.ComputedAt.Add(s.window)) {
			users = append(users, h.UserID)
		}
	})
	return users, err
}

// ListExpiringWithin returns users whose feed is still valid but expires
// within horizon.
func (s *FeedStore) ListExpiringWithin(ctx context.Context, horizon time.Duration) ([]string, error) {
	now := s.now()
	var users []string
	err := s.scan(ctx, "feed_list_expiring", func(h feedHeader) {
		expires := h.ComputedAt.Add(s.window)
		if now.Before(expires) && expires.Sub(now) <= horizon {
			users = append(users, h.UserID)
		}
	})
	return users, err
}

// ListUsersWithoutFeed returns the members of allUsers that have no stored
// feed, in input order.
func (s *FeedStore) ListUsersWithoutFeed(ctx context.Context, allUsers []string) (missing []string, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("feed_list_missing", time.Since(start), err) }()

	err = s.db.db.View(func(txn *badger.Txn) error {
		for _, userID := range allUsers {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := txn.Get(feedKey(userID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				missing = append(missing, userID)
				continue
			}
			if err != nil {
				return fmt.Errorf("check feed for %s: %w", userID, err)
			}
		}
		return nil
	})
	return missing, err
}

// deleteChunk bounds the keys one purge transaction touches.
const deleteChunk = 500

// DeleteOlderThan removes feeds computed more than age ago and returns how
// many were removed. Each candidate is read again inside the deleting
// transaction, so a feed replaced after the scan survives.
func (s *FeedStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := s.now().Add(-age)
	var stale []string
	if err := s.scan(ctx, "feed_scan_old", func(h feedHeader) {
		if h.ComputedAt.Before(cutoff) {
			stale = append(stale, h.UserID)
		}
	}); err != nil {
		return 0, err
	}
	if s.afterScan != nil {
		s.afterScan()
	}

	deleted := 0
	for chunk := range slices.Chunk(stale, deleteChunk) {
		var n int
		err := s.db.updateWithRetry(ctx, func(txn *badger.Txn) error {
			n = 0
			for _, userID := range chunk {
				item, err := txn.Get(feedKey(userID))
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				if err != nil {
					return fmt.Errorf("get feed %s: %w", userID, err)
				}
				var h feedHeader
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &h)
				}); err != nil {
					return fmt.Errorf("decode feed %s: %w", userID, err)
				}
				if !h.ComputedAt.Before(cutoff) {
					continue
				}
				if err := txn.Delete(feedKey(userID)); err != nil {
					return fmt.Errorf("delete feed %s: %w", userID, err)
				}
				n++
			}
			return nil
		})
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

// Stats counts stored feeds by validity.
func (s *FeedStore) Stats(ctx context.Context) (recommend.FeedStats, error) {
	now := s.now()
	var st recommend.FeedStats
	err := s.scan(ctx, "feed_stats", func(h feedHeader) {
		st.Total++
		if now.Before(h.ComputedAt.Add(s.window)) {
			st.Valid++
		} else {
			st.Expired++
		}
	})
	return st, err
}
