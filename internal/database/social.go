// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/curator/internal/database/query"
	"github.com/tomtom215/curator/internal/recommend"
)

// FriendIDs returns the user's friends, sorted.
func (db *DB) FriendIDs(ctx context.Context, userID string) (ids []string, err error) {
	defer func(start time.Time) { observe("friend_ids", start, err) }(time.Now())

	rows, err := db.conn.QueryContext(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = ? ORDER BY friend_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query friends: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}
	return ids, nil
}

// AddFriendship links two users in both directions. Both users are created
// if needed and repeating the call is a no-op.
func (db *DB) AddFriendship(ctx context.Context, a, b string) (err error) {
	defer func(start time.Time) { observe("add_friendship", start, err) }(time.Now())

	if a == b {
		return fmt.Errorf("cannot befriend self: %s", a)
	}
	for _, id := range []string{a, b} {
		if err = db.EnsureUser(ctx, id); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO friendships (user_id, friend_id, created_at)
		VALUES (?, ?, ?), (?, ?, ?)
		ON CONFLICT DO NOTHING`, a, b, now, b, a, now)
	if err != nil {
		return fmt.Errorf("failed to add friendship: %w", err)
	}
	return nil
}

// FriendActivity returns saves by the given users since the cutoff, plus
// their ratings of at least minRating, newest first. Each row carries the
// post's tags so callers never need a second lookup.
func (db *DB) FriendActivity(ctx context.Context, friendIDs []string, since time.Time, minRating int) (out []recommend.FriendActivity, err error) {
	defer func(start time.Time) { observe("friend_activity", start, err) }(time.Now())

	if len(friendIDs) == 0 {
		return nil, nil
	}

	saves := query.NewWhereBuilder().
		AddIn("s.user_id", friendIDs).
		AddSince("s.saved_at", since)
	savesWhere, savesArgs := saves.Build()

	ratings := query.NewWhereBuilder().
		AddIn("r.user_id", friendIDs).
		AddSince("r.rated_at", since).
		AddClause("r.rating >= ?", minRating)
	ratingsWhere, ratingsArgs := ratings.Build()

	q := fmt.Sprintf(`
		SELECT s.user_id, s.post_id, p.tags, %d AS kind, 0 AS rating, s.saved_at AS occurred_at
		FROM saves s JOIN posts p ON p.id = s.post_id
		WHERE %s
		UNION ALL
		SELECT r.user_id, r.post_id, p.tags, %d AS kind, r.rating, r.rated_at AS occurred_at
		FROM ratings r JOIN posts p ON p.id = r.post_id
		WHERE %s
		ORDER BY occurred_at DESC, post_id ASC`,
		recommend.FriendSaved, savesWhere, recommend.FriendRated, ratingsWhere)

	rows, err := db.conn.QueryContext(ctx, q, append(savesArgs, ratingsArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query friend activity: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			a    recommend.FriendActivity
			tags string
			kind int
		)
		if err = rows.Scan(&a.UserID, &a.PostID, &tags, &kind, &a.Rating, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend activity: %w", err)
		}
		a.Kind = recommend.FriendActivityKind(kind)
		a.Tags = splitTags(tags)
		a.OccurredAt = a.OccurredAt.UTC()
		out = append(out, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friend activity: %w", err)
	}
	return out, nil
}
