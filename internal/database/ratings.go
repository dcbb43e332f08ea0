// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"fmt"
	"time"
)

// AverageRating returns the mean rating of a post, or 0 when it has none.
func (db *DB) AverageRating(ctx context.Context, postID string) (avg float64, err error) {
	defer func(start time.Time) { observe("average_rating", start, err) }(time.Now())

	err = db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(avg(rating), 0)::DOUBLE FROM ratings WHERE post_id = ?`, postID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to average ratings: %w", err)
	}
	return avg, nil
}

// TotalRatings returns the number of ratings a post has received.
func (db *DB) TotalRatings(ctx context.Context, postID string) (n int, err error) {
	defer func(start time.Time) { observe("total_ratings", start, err) }(time.Now())

	err = db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM ratings WHERE post_id = ?`, postID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return n, nil
}

// Rate records or replaces a user's 1..5 rating of a post. The user row is
// created on first use.
func (db *DB) Rate(ctx context.Context, userID, postID string, rating int, at time.Time) (err error) {
	defer func(start time.Time) { observe("rate", start, err) }(time.Now())

	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	if err = db.requirePost(ctx, postID); err != nil {
		return err
	}
	if err = db.EnsureUser(ctx, userID); err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO ratings (post_id, user_id, rating, rated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (post_id, user_id) DO UPDATE SET
			rating = excluded.rating,
			rated_at = excluded.rated_at`,
		postID, userID, rating, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}
	return nil
}
