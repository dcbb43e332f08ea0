// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/recommend"
)

type demoPost struct {
	id, author, title string
	tags              []string
	views             int64
	ageDays           int
}

var demoUsers = []struct{ id, name string }{
	{"alice", "Alice"},
	{"bob", "Bob"},
	{"carol", "Carol"},
	{"dave", "Dave"},
	{"erin", "Erin"},
}

var demoPosts = []demoPost{
	{"post-001", "alice", "Goroutines without tears", []string{"go", "concurrency"}, 840, 2},
	{"post-002", "bob", "Indexing strategies for OLAP", []string{"databases", "duckdb"}, 610, 5},
	{"post-003", "carol", "Borrow checker field notes", []string{"rust"}, 430, 1},
	{"post-004", "dave", "Sourdough at altitude", []string{"baking"}, 990, 12},
	{"post-005", "erin", "Trail running in the rain", []string{"running", "outdoors"}, 120, 3},
	{"post-006", "alice", "Context cancellation patterns", []string{"go"}, 305, 8},
	{"post-007", "bob", "LSM trees explained", []string{"databases", "storage"}, 512, 20},
	{"post-008", "carol", "Async Rust in production", []string{"rust", "concurrency"}, 270, 4},
	{"post-009", "dave", "Laminated dough basics", []string{"baking"}, 75, 30},
	{"post-010", "erin", "Packing light for the alps", []string{"outdoors", "travel"}, 660, 6},
	{"post-011", "alice", "Profiling Go services", []string{"go", "performance"}, 150, 0},
	{"post-012", "bob", "Columnar formats compared", []string{"databases", "performance"}, 390, 9},
}

// SeedDemoData inserts a small demo corpus with users, friendships, saves and
// ratings. It does nothing when posts already exist and reports whether it
// seeded.
func (db *DB) SeedDemoData(ctx context.Context, now time.Time) (bool, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM posts`).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count posts: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	for _, u := range demoUsers {
		if err := db.CreateUser(ctx, u.id, u.name); err != nil {
			return false, err
		}
	}
	for _, p := range demoPosts {
		post := recommend.Post{
			ID:          p.id,
			AuthorID:    p.author,
			Title:       p.title,
			Tags:        p.tags,
			ViewCount:   p.views,
			PublishedAt: now.AddDate(0, 0, -p.ageDays),
		}
		if err := db.UpsertPost(ctx, post, true); err != nil {
			return false, err
		}
	}

	for _, pair := range [][2]string{{"alice", "bob"}, {"alice", "carol"}, {"bob", "dave"}, {"carol", "erin"}} {
		if err := db.AddFriendship(ctx, pair[0], pair[1]); err != nil {
			return false, err
		}
	}

	for _, s := range []struct{ user, post string }{
		{"bob", "post-001"}, {"carol", "post-002"}, {"dave", "post-010"}, {"erin", "post-003"},
	} {
		if err := db.Save(ctx, s.user, s.post, now.Add(-24*time.Hour)); err != nil {
			return false, err
		}
	}

	for _, r := range []struct {
		user, post string
		rating     int
	}{
		{"bob", "post-007", 5}, {"carol", "post-008", 4}, {"alice", "post-004", 3},
		{"dave", "post-004", 5}, {"erin", "post-010", 4}, {"alice", "post-012", 2},
	} {
		if err := db.Rate(ctx, r.user, r.post, r.rating, now.Add(-48*time.Hour)); err != nil {
			return false, err
		}
	}

	logging.Info().Int("posts", len(demoPosts)).Int("users", len(demoUsers)).Msg("Seeded demo content")
	return true, nil
}
