// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package query provides SQL query building utilities for the database package.
//
// The WhereBuilder offers a fluent interface for parameterized WHERE clauses:
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("p.published")
//	wb.AddNotIn("p.author_id", filter.ExcludeAuthorIDs)
//	wb.AddSince("s.saved_at", since)
//	whereClause, args := wb.Build()
//
//	sql := fmt.Sprintf(`SELECT id FROM posts p WHERE %s LIMIT ?`, whereClause)
//	args = append(args, limit)
//
// Values are always bound, never interpolated. Column names are trusted
// input supplied by the database package itself.
package query
