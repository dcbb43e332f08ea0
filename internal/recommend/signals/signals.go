// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package signals computes the normalized score components used by the
// ranker. Every function is pure and returns a value in [0, 1].
//
// # Components
//
//   - TagMatch: mean affinity over a post's tags (interest and social match)
//   - Popularity: log-scaled view count, saturating at 999 views
//   - Quality: average rating on a 0..5 scale
//   - Recency: exponential decay with a 14 day time constant
//   - Engagement: rating count, saturating at 50
package signals

import (
	"math"
	"time"
)

const (
	// PopularitySaturation is the view count at which Popularity reaches 1.
	PopularitySaturation = 999

	// MaxRating is the top of the rating scale.
	MaxRating = 5.0

	// RecencyTimeConstant is the age at which Recency falls to 1/e.
	RecencyTimeConstant = 14 * 24 * time.Hour

	// EngagementSaturation is the rating count at which Engagement reaches 1.
	EngagementSaturation = 50
)

var popularityDenominator = math.Log10(PopularitySaturation + 2)

// TagMatch returns the sum of affinities of the post's tags divided by the
// post's total tag count. Tags absent from affinities count as zero, so a
// post with half its tags matched at 1.0 scores 0.5. A post without tags
// scores 0.
func TagMatch(tags []string, affinities map[string]float64) float64 {
	if len(tags) == 0 || len(affinities) == 0 {
		return 0
	}
	var sum float64
	for _, tag := range tags {
		sum += affinities[tag]
	}
	return clamp01(sum / float64(len(tags)))
}

// NormalizeMax scales values so that the largest becomes 1. Negative and
// zero entries are dropped. The input is not modified.
func NormalizeMax(values map[string]float64) map[string]float64 {
	var top float64
	for _, v := range values {
		top = max(top, v)
	}
	out := make(map[string]float64, len(values))
	if top <= 0 {
		return out
	}
	for k, v := range values {
		if v > 0 {
			out[k] = v / top
		}
	}
	return out
}

// CapAtOne scales values down only when some value exceeds 1, keeping
// relative order. Values already within [0,1] are returned as is.
func CapAtOne(values map[string]float64) map[string]float64 {
	var top float64
	for _, v := range values {
		top = max(top, v)
	}
	if top <= 1 {
		return values
	}
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v / top
	}
	return out
}

// Popularity maps a view count onto [0,1] logarithmically:
// log10(views+2) / log10(1001). Negative counts are treated as zero.
func Popularity(views int64) float64 {
	if views < 0 {
		views = 0
	}
	return clamp01(math.Log10(float64(views)+2) / popularityDenominator)
}

// Quality maps an average rating on the 0..5 scale onto [0,1].
func Quality(averageRating float64) float64 {
	return clamp01(averageRating / MaxRating)
}

// Recency decays exponentially with age: exp(-days/14). Posts published in
// the future score 1; a zero publish time scores 0.
func Recency(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return 0
	}
	age := now.Sub(publishedAt)
	if age <= 0 {
		return 1
	}
	return math.Exp(-float64(age) / float64(RecencyTimeConstant))
}

// Engagement saturates linearly at EngagementSaturation ratings.
func Engagement(totalRatings int) float64 {
	return clamp01(float64(totalRatings) / EngagementSaturation)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return min(v, 1)
}
