// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/curator/internal/recommend"
)

// InteractedPostIDs returns the posts a user has saved or rated, sorted.
func (db *DB) InteractedPostIDs(ctx context.Context, userID string) (ids []string, err error) {
	defer func(start time.Time) { observe("interacted_post_ids", start, err) }(time.Now())

	rows, err := db.conn.QueryContext(ctx, `
		SELECT post_id FROM saves WHERE user_id = ?
		UNION
		SELECT post_id FROM ratings WHERE user_id = ?
		ORDER BY post_id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return ids, nil
}

// Save bookmarks a post for a user. Saving twice is a no-op.
func (db *DB) Save(ctx context.Context, userID, postID string, at time.Time) (err error) {
	defer func(start time.Time) { observe("save", start, err) }(time.Now())

	if err = db.requirePost(ctx, postID); err != nil {
		return err
	}
	if err = db.EnsureUser(ctx, userID); err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO saves (post_id, user_id, saved_at) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`, postID, userID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record save: %w", err)
	}
	return nil
}

// ApplyInteraction persists the content side of an interaction: views bump
// the view count, saves and ratings are stored, and every interaction makes
// the user known to the directory.
func (db *DB) ApplyInteraction(ctx context.Context, in recommend.Interaction) error {
	at := in.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	switch in.Type {
	case recommend.InteractionView:
		if err := db.IncrementViews(ctx, in.PostID); err != nil {
			return err
		}
		return db.EnsureUser(ctx, in.UserID)
	case recommend.InteractionSave:
		return db.Save(ctx, in.UserID, in.PostID, at)
	case recommend.InteractionRate:
		return db.Rate(ctx, in.UserID, in.PostID, in.Rating, at)
	case recommend.InteractionComment, recommend.InteractionShare:
		if err := db.requirePost(ctx, in.PostID); err != nil {
			return err
		}
		return db.EnsureUser(ctx, in.UserID)
	default:
		return fmt.Errorf("unsupported interaction type %d", int(in.Type))
	}
}

// requirePost returns recommend.ErrPostNotFound unless postID exists,
// published or not.
func (db *DB) requirePost(ctx context.Context, postID string) error {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM posts WHERE id = ?`, postID).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up post: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", recommend.ErrPostNotFound, postID)
	}
	return nil
}
