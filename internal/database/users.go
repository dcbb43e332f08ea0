// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UserIDs returns every known user, sorted.
func (db *DB) UserIDs(ctx context.Context) (ids []string, err error) {
	defer func(start time.Time) { observe("user_ids", start, err) }(time.Now())

	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return ids, nil
}

// CreateUser adds a user, or updates the display name of an existing one.
func (db *DB) CreateUser(ctx context.Context, userID, displayName string) (err error) {
	defer func(start time.Time) { observe("create_user", start, err) }(time.Now())

	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO users (id, display_name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name`,
		userID, displayName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// EnsureUser adds a user with no display name if it does not exist yet.
func (db *DB) EnsureUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, created_at) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}
