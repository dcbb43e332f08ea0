// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package config loads Curator's configuration.
//
// Values are layered with Koanf: struct defaults first, then an optional YAML
// file (CONFIG_PATH, ./config.yaml or /etc/curator/config.yaml), then a fixed
// table of environment variables. See LoadWithKoanf.
package config

import (
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Store     StoreConfig     `koanf:"store"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Recommend RecommendConfig `koanf:"recommend"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Default: 0.0.0.0
	Host string `koanf:"host"`

	// Default: 8080
	Port int `koanf:"port"`

	// Timeout bounds reads and writes of a single request.
	// Default: 30s
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout is how long in-flight requests get to finish on stop.
	// Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestTimeout bounds a single recommendation request end to end.
	// Default: 10s
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// DatabaseConfig holds the DuckDB content datastore settings.
type DatabaseConfig struct {
	// Path to the DuckDB file. Empty opens an in-memory database.
	// Default: /data/curator.duckdb
	Path string `koanf:"path"`

	// MaxMemory is passed to DuckDB's max_memory setting.
	// Default: 1GB
	MaxMemory string `koanf:"max_memory"`

	// Threads limits DuckDB worker threads. 0 lets DuckDB decide.
	// Default: 0
	Threads int `koanf:"threads"`

	// SeedDemoData inserts a small demo corpus when the posts table is empty.
	// Default: false
	SeedDemoData bool `koanf:"seed_demo_data"`
}

// StoreConfig holds the BadgerDB settings for interests, feeds and the
// maintenance ledger.
type StoreConfig struct {
	// Default: /data/store
	Path string `koanf:"path"`

	// InMemory keeps the store in RAM only. Useful for development.
	// Default: false
	InMemory bool `koanf:"in_memory"`

	// GCInterval is how often value log garbage collection runs.
	// Default: 10m
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SecurityConfig holds token verification and HTTP protection settings.
type SecurityConfig struct {
	// JWTSecret verifies HS256 bearer tokens used to resolve a viewer's friends.
	// When empty, requests are always served without social signals.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the lifetime of tokens minted by the token command.
	// Default: 24h
	TokenTTL time.Duration `koanf:"token_ttl"`

	// Default: 100
	RateLimitReqs int `koanf:"rate_limit_requests"`

	// Default: 1m
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// Default: false
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`

	// Default: ["*"]
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	// Default: info
	Level string `koanf:"level"`

	// Default: json
	Format string `koanf:"format"`

	// Default: false
	Caller bool `koanf:"caller"`
}

// RecommendConfig holds ranking and serving settings.
type RecommendConfig struct {
	// WeightScheme selects the scoring weights: auto, social or basic.
	// auto uses social weights when the request carries an auth token.
	// Default: auto
	WeightScheme string `koanf:"weight_scheme"`

	// Weights are the coefficients of the two sets WeightScheme chooses
	// between. Each set must sum to 1.
	Weights WeightSetsConfig `koanf:"weights"`

	// AlgorithmVersion is stamped on every precomputed feed.
	// Default: v2
	AlgorithmVersion string `koanf:"algorithm_version"`

	// FeedWindow is how long a precomputed feed stays valid.
	// Default: 1h
	FeedWindow time.Duration `koanf:"feed_window"`

	// Default: 50
	MaxFeedSize int `koanf:"max_feed_size"`

	// MinCorpusSize is the number of published posts required before
	// personalized scoring is attempted.
	// Default: 5
	MinCorpusSize int `koanf:"min_corpus_size"`

	// Default: 20
	DefaultCount int `koanf:"default_count"`

	// Default: 50
	MaxCount int `koanf:"max_count"`

	// MaxCandidates bounds the posts scored per request.
	// Default: 500
	MaxCandidates int `koanf:"max_candidates"`

	// CollaboratorTimeout bounds each call to the datastore or social graph.
	// Default: 2s
	CollaboratorTimeout time.Duration `koanf:"collaborator_timeout"`

	// SocialLookback is how far back friends' activity is considered.
	// Default: 168h
	SocialLookback time.Duration `koanf:"social_lookback"`

	// HighRatingThreshold is the minimum friend rating counted as a social signal.
	// Default: 4
	HighRatingThreshold int `koanf:"high_rating_threshold"`

	// MetricsCacheTTL caches per-post rating summaries.
	// Default: 5m
	MetricsCacheTTL time.Duration `koanf:"metrics_cache_ttl"`

	// Default: 10000
	MetricsCacheSize int `koanf:"metrics_cache_size"`

	// BreakerFailures consecutive failures open a collaborator circuit breaker.
	// Default: 5
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerTimeout is how long an open breaker waits before probing.
	// Default: 30s
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// WeightSetsConfig holds the social and basic scoring weight sets.
type WeightSetsConfig struct {
	// Default: 0.25/0.20/0.15/0.20/0.12/0.08
	Social WeightsConfig `koanf:"social"`

	// Default: 0.30/0/0.20/0.25/0.15/0.10
	Basic WeightsConfig `koanf:"basic"`
}

// WeightsConfig are the coefficients of the six score components.
type WeightsConfig struct {
	Interest   float64 `koanf:"interest"`
	Social     float64 `koanf:"social"`
	Popularity float64 `koanf:"popularity"`
	Quality    float64 `koanf:"quality"`
	Recency    float64 `koanf:"recency"`
	Engagement float64 `koanf:"engagement"`
}

// Sum returns the total of all coefficients.
func (w WeightsConfig) Sum() float64 {
	return w.Interest + w.Social + w.Popularity + w.Quality + w.Recency + w.Engagement
}

// SchedulerConfig holds background precomputation and maintenance settings.
type SchedulerConfig struct {
	// Default: true
	Enabled bool `koanf:"enabled"`

	// Default: 20m
	Interval time.Duration `koanf:"interval"`

	// Backoff replaces Interval after a failed cycle.
	// Default: 5m
	Backoff time.Duration `koanf:"backoff"`

	// ExpiringHorizon selects still-valid feeds that expire within this window.
	// Default: 5m
	ExpiringHorizon time.Duration `koanf:"expiring_horizon"`

	// Parallelism bounds concurrent per-user computations.
	// Default: 4
	Parallelism int `koanf:"parallelism"`

	// ComputeRate caps per-user computations per second. 0 disables the limit.
	// Default: 20
	ComputeRate float64 `koanf:"compute_rate"`

	// UserTimeout bounds a single user's feed computation.
	// Default: 30s
	UserTimeout time.Duration `koanf:"user_timeout"`

	// Default: 0.98
	DecayFactor float64 `koanf:"decay_factor"`

	// CleanupFloor removes interest scores below this value.
	// Default: 0.01
	CleanupFloor float64 `koanf:"cleanup_floor"`

	// PurgeAge deletes feeds computed longer ago than this.
	// Default: 168h
	PurgeAge time.Duration `koanf:"purge_age"`

	// Day schedules use standard cron syntax; only the day fields matter.
	// Defaults: "@daily", "0 0 * * 0" (Sunday), "0 0 * * 3" (Wednesday)
	DecaySchedule   string `koanf:"decay_schedule"`
	CleanupSchedule string `koanf:"cleanup_schedule"`
	PurgeSchedule   string `koanf:"purge_schedule"`

	// Timezone for the day schedules.
	// Default: UTC
	Timezone string `koanf:"timezone"`
}

// EventsConfig holds the in-process interaction event bus settings.
type EventsConfig struct {
	// Default: 1024
	BufferSize int64 `koanf:"buffer_size"`

	// Default: interactions
	Topic string `koanf:"topic"`
}
