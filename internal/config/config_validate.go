// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package config

import (
	"fmt"
	"math"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	return c.validateEvents()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", c.Server.RequestTimeout)
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("security.token_ttl must be positive, got %v", c.Security.TokenTTL)
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("security.rate_limit_requests must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("security.rate_limit_window must be positive, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := &c.Recommend
	switch r.WeightScheme {
	case "auto", "social", "basic":
	default:
		return fmt.Errorf("recommend.weight_scheme must be auto, social or basic, got %q", r.WeightScheme)
	}
	if err := validateWeights("recommend.weights.social", r.Weights.Social); err != nil {
		return err
	}
	if err := validateWeights("recommend.weights.basic", r.Weights.Basic); err != nil {
		return err
	}
	if r.AlgorithmVersion == "" {
		return fmt.Errorf("recommend.algorithm_version is required")
	}
	if r.FeedWindow <= 0 {
		return fmt.Errorf("recommend.feed_window must be positive, got %v", r.FeedWindow)
	}
	if r.MaxFeedSize < 1 {
		return fmt.Errorf("recommend.max_feed_size must be at least 1, got %d", r.MaxFeedSize)
	}
	if r.MinCorpusSize < 0 {
		return fmt.Errorf("recommend.min_corpus_size must be non-negative, got %d", r.MinCorpusSize)
	}
	if r.DefaultCount < 1 || r.DefaultCount > r.MaxCount {
		return fmt.Errorf("recommend.default_count must be between 1 and max_count (%d), got %d", r.MaxCount, r.DefaultCount)
	}
	if r.MaxCandidates < r.MaxFeedSize {
		return fmt.Errorf("recommend.max_candidates must be at least max_feed_size (%d), got %d", r.MaxFeedSize, r.MaxCandidates)
	}
	if r.CollaboratorTimeout <= 0 {
		return fmt.Errorf("recommend.collaborator_timeout must be positive, got %v", r.CollaboratorTimeout)
	}
	if r.SocialLookback <= 0 {
		return fmt.Errorf("recommend.social_lookback must be positive, got %v", r.SocialLookback)
	}
	if r.HighRatingThreshold < 1 || r.HighRatingThreshold > 5 {
		return fmt.Errorf("recommend.high_rating_threshold must be between 1 and 5, got %d", r.HighRatingThreshold)
	}
	if r.BreakerFailures == 0 {
		return fmt.Errorf("recommend.breaker_failures must be at least 1")
	}
	return nil
}

func validateWeights(path string, w WeightsConfig) error {
	for name, v := range map[string]float64{
		"interest": w.Interest, "social": w.Social, "popularity": w.Popularity,
		"quality": w.Quality, "recency": w.Recency, "engagement": w.Engagement,
	} {
		if v < 0 {
			return fmt.Errorf("%s.%s must be non-negative, got %v", path, name, v)
		}
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return fmt.Errorf("%s must sum to 1.0, got %v", path, w.Sum())
	}
	return nil
}

func (c *Config) validateScheduler() error {
	s := &c.Scheduler
	if !s.Enabled {
		return nil
	}
	if s.Interval <= 0 || s.Backoff <= 0 {
		return fmt.Errorf("scheduler.interval and scheduler.backoff must be positive, got %v and %v", s.Interval, s.Backoff)
	}
	if s.Parallelism < 1 {
		return fmt.Errorf("scheduler.parallelism must be at least 1, got %d", s.Parallelism)
	}
	if s.ComputeRate < 0 {
		return fmt.Errorf("scheduler.compute_rate must be non-negative, got %v", s.ComputeRate)
	}
	if s.UserTimeout <= 0 {
		return fmt.Errorf("scheduler.user_timeout must be positive, got %v", s.UserTimeout)
	}
	if s.DecayFactor <= 0 || s.DecayFactor >= 1 {
		return fmt.Errorf("scheduler.decay_factor must be in (0, 1), got %v", s.DecayFactor)
	}
	if s.CleanupFloor < 0 {
		return fmt.Errorf("scheduler.cleanup_floor must be non-negative, got %v", s.CleanupFloor)
	}
	if s.PurgeAge <= 0 {
		return fmt.Errorf("scheduler.purge_age must be positive, got %v", s.PurgeAge)
	}
	for name, spec := range map[string]string{
		"scheduler.decay_schedule":   s.DecaySchedule,
		"scheduler.cleanup_schedule": s.CleanupSchedule,
		"scheduler.purge_schedule":   s.PurgeSchedule,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s is not a valid cron expression %q: %w", name, spec, err)
		}
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.BufferSize < 0 {
		return fmt.Errorf("events.buffer_size must be non-negative, got %d", c.Events.BufferSize)
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required")
	}
	return nil
}
