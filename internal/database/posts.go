// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/curator/internal/database/query"
	"github.com/tomtom215/curator/internal/recommend"
)

const postColumns = `id, author_id, title, tags, view_count, published_at`

// PublishedCount returns the number of published posts.
func (db *DB) PublishedCount(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { observe("published_count", start, err) }(time.Now())

	err = db.conn.QueryRowContext(ctx, `SELECT count(*) FROM posts WHERE published`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// CandidatePosts returns published posts ordered by view count, most viewed
// first, with ties broken by ID.
func (db *DB) CandidatePosts(ctx context.Context, filter recommend.CandidateFilter) (posts []recommend.Post, err error) {
	defer func(start time.Time) { observe("candidate_posts", start, err) }(time.Now())

	wb := query.NewWhereBuilder().
		AddClause("published").
		AddNotIn("author_id", filter.ExcludeAuthorIDs)
	where, args := wb.BuildWithPrefix()

	q := fmt.Sprintf(`SELECT %s FROM posts %s ORDER BY view_count DESC, id ASC`, postColumns, where)
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate posts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		p, scanErr := scanPost(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidate posts: %w", err)
	}
	return posts, nil
}

// PostByID returns a published post, or recommend.ErrPostNotFound.
func (db *DB) PostByID(ctx context.Context, postID string) (p recommend.Post, err error) {
	defer func(start time.Time) {
		if errors.Is(err, recommend.ErrPostNotFound) {
			observe("post_by_id", start, nil)
			return
		}
		observe("post_by_id", start, err)
	}(time.Now())

	row := db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM posts WHERE id = ? AND published`, postColumns), postID)
	p, err = scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return recommend.Post{}, fmt.Errorf("%w: %s", recommend.ErrPostNotFound, postID)
	}
	return p, err
}

// UpsertPost inserts or replaces a post. A zero PublishedAt becomes now.
// The view count of an existing post is kept unless p.ViewCount is larger.
func (db *DB) UpsertPost(ctx context.Context, p recommend.Post, published bool) (err error) {
	defer func(start time.Time) { observe("upsert_post", start, err) }(time.Now())

	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.AuthorID) == "" {
		return fmt.Errorf("post id and author id are required")
	}
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now()
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, title, tags, view_count, published, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			author_id = excluded.author_id,
			title = excluded.title,
			tags = excluded.tags,
			view_count = greatest(posts.view_count, excluded.view_count),
			published = excluded.published,
			published_at = excluded.published_at`,
		p.ID, p.AuthorID, p.Title, joinTags(p.Tags), p.ViewCount, published, p.PublishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert post %s: %w", p.ID, err)
	}
	return nil
}

// IncrementViews adds one view to a post.
func (db *DB) IncrementViews(ctx context.Context, postID string) (err error) {
	defer func(start time.Time) { observe("increment_views", start, err) }(time.Now())

	res, err := db.conn.ExecContext(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", recommend.ErrPostNotFound, postID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (recommend.Post, error) {
	var (
		p    recommend.Post
		tags string
	)
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &tags, &p.ViewCount, &p.PublishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return recommend.Post{}, err
		}
		return recommend.Post{}, fmt.Errorf("failed to scan post: %w", err)
	}
	p.Tags = splitTags(tags)
	p.PublishedAt = p.PublishedAt.UTC()
	return p, nil
}

// joinTags normalizes tags into the stored form: trimmed, deduplicated,
// comma separated. Commas inside a tag are dropped.
func joinTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
