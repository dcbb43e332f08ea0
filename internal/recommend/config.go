// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"fmt"
	"math"
	"time"
)

// WeightScheme chooses between the social and basic weight sets.
type WeightScheme string

const (
	// SchemeAuto uses SocialWeights when the request has an auth context
	// and BasicWeights otherwise.
	SchemeAuto   WeightScheme = "auto"
	SchemeSocial WeightScheme = "social"
	SchemeBasic  WeightScheme = "basic"
)

// ScoringWeights are the coefficients of the six score components.
// A usable set sums to 1.0.
type ScoringWeights struct {
	Interest   float64 `json:"interest"`
	Social     float64 `json:"social"`
	Popularity float64 `json:"popularity"`
	Quality    float64 `json:"quality"`
	Recency    float64 `json:"recency"`
	Engagement float64 `json:"engagement"`
}

// SocialWeights is used when friends' activity is part of the score.
func SocialWeights() ScoringWeights {
	return ScoringWeights{
		Interest:   0.25,
		Social:     0.20,
		Popularity: 0.15,
		Quality:    0.20,
		Recency:    0.12,
		Engagement: 0.08,
	}
}

// BasicWeights is used without social context.
func BasicWeights() ScoringWeights {
	return ScoringWeights{
		Interest:   0.30,
		Popularity: 0.20,
		Quality:    0.25,
		Recency:    0.15,
		Engagement: 0.10,
	}
}

// Sum returns the total of all coefficients.
func (w ScoringWeights) Sum() float64 {
	return w.Interest + w.Social + w.Popularity + w.Quality + w.Recency + w.Engagement
}

// Normalize returns a copy scaled to sum to 1.0. A zero set is returned unchanged.
func (w ScoringWeights) Normalize() ScoringWeights {
	sum := w.Sum()
	if sum == 0 {
		return w
	}
	return ScoringWeights{
		Interest:   w.Interest / sum,
		Social:     w.Social / sum,
		Popularity: w.Popularity / sum,
		Quality:    w.Quality / sum,
		Recency:    w.Recency / sum,
		Engagement: w.Engagement / sum,
	}
}

// Apply combines a breakdown into a single score.
func (w ScoringWeights) Apply(b ScoreBreakdown) float64 {
	return w.Interest*b.Interest +
		w.Social*b.Social +
		w.Popularity*b.Popularity +
		w.Quality*b.Quality +
		w.Recency*b.Recency +
		w.Engagement*b.Engagement
}

// Validate checks that no coefficient is negative and the set sums to 1.
func (w ScoringWeights) Validate() error {
	for name, v := range map[string]float64{
		"interest": w.Interest, "social": w.Social, "popularity": w.Popularity,
		"quality": w.Quality, "recency": w.Recency, "engagement": w.Engagement,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %v", w.Sum())
	}
	return nil
}

// Config holds the ranking and serving parameters.
type Config struct {
	Scheme WeightScheme `json:"scheme"`

	Weights WeightSets `json:"weights"`

	// AlgorithmVersion is stamped on every stored feed.
	AlgorithmVersion string `json:"algorithm_version"`

	Limits LimitsConfig `json:"limits"`
	Social SocialConfig `json:"social"`

	// CollaboratorTimeout bounds every datastore and social graph call.
	CollaboratorTimeout time.Duration `json:"collaborator_timeout"`
}

// WeightSets are the two weight sets a WeightScheme chooses between.
type WeightSets struct {
	Social ScoringWeights `json:"social"`
	Basic  ScoringWeights `json:"basic"`
}

// LimitsConfig contains result and corpus limits.
type LimitsConfig struct {
	// MinCorpusSize is the published post count below which personalized
	// scoring is skipped in favor of plain popularity.
	MinCorpusSize int `json:"min_corpus_size"`
	MaxFeedSize   int `json:"max_feed_size"`
	DefaultCount  int `json:"default_count"`
	MaxCount      int `json:"max_count"`
	MaxCandidates int `json:"max_candidates"`
}

// SocialConfig controls how friends' activity becomes social signals.
type SocialConfig struct {
	Lookback            time.Duration `json:"lookback"`
	HighRatingThreshold int           `json:"high_rating_threshold"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Scheme:           SchemeAuto,
		Weights:          WeightSets{Social: SocialWeights(), Basic: BasicWeights()},
		AlgorithmVersion: "v2",
		Limits: LimitsConfig{
			MinCorpusSize: 5,
			MaxFeedSize:   50,
			DefaultCount:  20,
			MaxCount:      50,
			MaxCandidates: 500,
		},
		Social: SocialConfig{
			Lookback:            7 * 24 * time.Hour,
			HighRatingThreshold: 4,
		},
		CollaboratorTimeout: 2 * time.Second,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Scheme {
	case SchemeAuto, SchemeSocial, SchemeBasic:
	default:
		return fmt.Errorf("unknown weight scheme %q", c.Scheme)
	}
	if err := c.Weights.Social.Validate(); err != nil {
		return fmt.Errorf("social weights: %w", err)
	}
	if err := c.Weights.Basic.Validate(); err != nil {
		return fmt.Errorf("basic weights: %w", err)
	}
	if c.AlgorithmVersion == "" {
		return fmt.Errorf("algorithm version is required")
	}
	if c.Limits.MaxFeedSize < 1 {
		return fmt.Errorf("max feed size must be at least 1, got %d", c.Limits.MaxFeedSize)
	}
	if c.Limits.DefaultCount < 1 || c.Limits.DefaultCount > c.Limits.MaxCount {
		return fmt.Errorf("default count must be between 1 and %d, got %d", c.Limits.MaxCount, c.Limits.DefaultCount)
	}
	if c.Limits.MaxCandidates < 1 {
		return fmt.Errorf("max candidates must be at least 1, got %d", c.Limits.MaxCandidates)
	}
	if c.CollaboratorTimeout <= 0 {
		return fmt.Errorf("collaborator timeout must be positive, got %v", c.CollaboratorTimeout)
	}
	return nil
}

// WeightsFor returns the weight set for a request with or without social context.
func (c *Config) WeightsFor(hasSocialContext bool) ScoringWeights {
	switch c.Scheme {
	case SchemeSocial:
		return c.Weights.Social
	case SchemeBasic:
		return c.Weights.Basic
	default:
		if hasSocialContext {
			return c.Weights.Social
		}
		return c.Weights.Basic
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
