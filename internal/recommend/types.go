// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"fmt"
	"strings"
	"time"
)

// InteractionType classifies the ways a user can engage with a post.
type InteractionType int

const (
	InteractionView InteractionType = iota + 1
	InteractionSave
	InteractionRate
	InteractionComment
	InteractionShare
)

// String returns the wire name of the interaction type.
func (t InteractionType) String() string {
	switch t {
	case InteractionView:
		return "view"
	case InteractionSave:
		return "save"
	case InteractionRate:
		return "rate"
	case InteractionComment:
		return "comment"
	case InteractionShare:
		return "share"
	default:
		return "unknown"
	}
}

// ParseInteractionType parses a wire name into an InteractionType.
func ParseInteractionType(s string) (InteractionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "view":
		return InteractionView, nil
	case "save":
		return InteractionSave, nil
	case "rate":
		return InteractionRate, nil
	case "comment":
		return InteractionComment, nil
	case "share":
		return InteractionShare, nil
	default:
		return 0, fmt.Errorf("unknown interaction type %q", s)
	}
}

// MarshalText encodes the type by name so stored events stay readable.
func (t InteractionType) MarshalText() ([]byte, error) {
	if t < InteractionView || t > InteractionShare {
		return nil, fmt.Errorf("invalid interaction type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *InteractionType) UnmarshalText(b []byte) error {
	v, err := ParseInteractionType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// BaseWeight is the interest increment a single interaction contributes to
// each of the post's tags before any rating adjustment.
func (t InteractionType) BaseWeight() float64 {
	switch t {
	case InteractionView:
		return 0.1
	case InteractionSave:
		return 0.8
	case InteractionRate:
		return 0.6
	case InteractionComment:
		return 0.4
	case InteractionShare:
		return 0.5
	default:
		return 0
	}
}

// Increment returns the per-tag interest delta for this interaction.
// Ratings only affect InteractionRate: a 1-star rating keeps 20% of the base
// weight and a 5-star rating keeps all of it. Ratings outside 1..5 are clamped.
func (t InteractionType) Increment(rating int) float64 {
	base := t.BaseWeight()
	if t != InteractionRate {
		return base
	}
	r := min(max(rating, 1), 5)
	return base * (float64(r-1)/4*0.8 + 0.2)
}

// Interaction is a single user action on a post, as delivered to the
// interest tracker.
type Interaction struct {
	UserID string          `json:"user_id"`
	PostID string          `json:"post_id"`
	Type   InteractionType `json:"type"`
	// Rating is 1..5 for InteractionRate and ignored otherwise.
	Rating int `json:"rating,omitempty"`
	// Tags may be supplied by the caller; when empty they are looked up.
	Tags       []string  `json:"tags,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Post is the subset of a content item the ranker needs.
type Post struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Title       string    `json:"title"`
	Tags        []string  `json:"tags"`
	ViewCount   int64     `json:"view_count"`
	PublishedAt time.Time `json:"published_at"`
}

// RatingSummary is the externally aggregated quality of a post.
type RatingSummary struct {
	Average float64 `json:"average"`
	Total   int     `json:"total"`
}

// InterestVector maps tag to accumulated interest. Absent tags mean zero.
type InterestVector map[string]float64

// SocialSignals maps tag to a [0,1] affinity derived from friends' recent
// activity. Nil means no auth context was available.
type SocialSignals map[string]float64

// ScoreBreakdown holds the normalized components that made up a score.
type ScoreBreakdown struct {
	Interest   float64 `json:"interest"`
	Social     float64 `json:"social"`
	Popularity float64 `json:"popularity"`
	Quality    float64 `json:"quality"`
	Recency    float64 `json:"recency"`
	Engagement float64 `json:"engagement"`
}

// ScoredPost is a post with its ranking score.
type ScoredPost struct {
	Post      Post           `json:"post"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Feed is a precomputed ranked list for one user.
type Feed struct {
	UserID           string    `json:"user_id"`
	PostIDs          []string  `json:"post_ids"`
	Scores           []float64 `json:"scores"`
	ComputedAt       time.Time `json:"computed_at"`
	AlgorithmVersion string    `json:"algorithm_version"`

	// Valid and ExpiresAt are derived when the feed is read and never stored.
	Valid     bool      `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// FeedStats summarizes the feed cache.
type FeedStats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Expired int `json:"expired"`
}

// Tier identifies which strategy served a recommendation response.
type Tier string

const (
	TierPrecomputed Tier = "precomputed"
	TierRealtime    Tier = "realtime"
	TierPopularity  Tier = "popularity"
)

// Request is a personalized recommendation request.
type Request struct {
	UserID string
	// Count defaults to Config.Limits.DefaultCount and is capped at MaxCount.
	Count int
	// ExcludeAuthorID drops posts by this author from the response.
	ExcludeAuthorID string
	// AuthToken, when present, enables social signals.
	AuthToken string
}

// Response is the result of GetPersonalized.
type Response struct {
	UserID      string       `json:"user_id"`
	Tier        Tier         `json:"tier"`
	Items       []ScoredPost `json:"items"`
	GeneratedAt time.Time    `json:"generated_at"`
}
