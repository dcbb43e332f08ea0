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

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the content tables and their indexes. Every statement
// is idempotent so reopening an existing file is safe.
//
// Tags are stored as a comma separated string; see joinTags.
// Friendships are stored in both directions. posts.view_count carries no
// index because DuckDB rewrites updates of indexed columns as delete plus
// insert, which trips the primary key inside one transaction.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR PRIMARY KEY,
			display_name VARCHAR NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id VARCHAR PRIMARY KEY,
			author_id VARCHAR NOT NULL,
			title VARCHAR NOT NULL DEFAULT '',
			tags VARCHAR NOT NULL DEFAULT '',
			view_count BIGINT NOT NULL DEFAULT 0,
			published BOOLEAN NOT NULL DEFAULT true,
			published_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			post_id VARCHAR NOT NULL,
			user_id VARCHAR NOT NULL,
			rating INTEGER NOT NULL,
			rated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (post_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS saves (
			post_id VARCHAR NOT NULL,
			user_id VARCHAR NOT NULL,
			saved_at TIMESTAMP NOT NULL,
			PRIMARY KEY (post_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			user_id VARCHAR NOT NULL,
			friend_id VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, friend_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_user ON ratings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_saves_user ON saves(user_id)`,
	}

	for _, q := range queries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
