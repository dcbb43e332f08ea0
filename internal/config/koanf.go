// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/curator/config.yaml",
	"/etc/curator/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/curator.duckdb",
			MaxMemory: "1GB",
		},
		Store: StoreConfig{
			Path:       "/data/store",
			GCInterval: 10 * time.Minute,
		},
		Security: SecurityConfig{
			TokenTTL:        24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Recommend: RecommendConfig{
			WeightScheme:        "auto",
			Weights: WeightSetsConfig{
				Social: WeightsConfig{Interest: 0.25, Social: 0.20, Popularity: 0.15, Quality: 0.20, Recency: 0.12, Engagement: 0.08},
				Basic:  WeightsConfig{Interest: 0.30, Popularity: 0.20, Quality: 0.25, Recency: 0.15, Engagement: 0.10},
			},
			AlgorithmVersion:    "v2",
			FeedWindow:          time.Hour,
			MaxFeedSize:         50,
			MinCorpusSize:       5,
			DefaultCount:        20,
			MaxCount:            50,
			MaxCandidates:       500,
			CollaboratorTimeout: 2 * time.Second,
			SocialLookback:      7 * 24 * time.Hour,
			HighRatingThreshold: 4,
			MetricsCacheTTL:     5 * time.Minute,
			MetricsCacheSize:    10000,
			BreakerFailures:     5,
			BreakerTimeout:      30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			Interval:        20 * time.Minute,
			Backoff:         5 * time.Minute,
			ExpiringHorizon: 5 * time.Minute,
			Parallelism:     4,
			ComputeRate:     20,
			UserTimeout:     30 * time.Second,
			DecayFactor:     0.98,
			CleanupFloor:    0.01,
			PurgeAge:        7 * 24 * time.Hour,
			DecaySchedule:   "@daily",
			CleanupSchedule: "0 0 * * 0",
			PurgeSchedule:   "0 0 * * 3",
			Timezone:        "UTC",
		},
		Events: EventsConfig{
			BufferSize: 1024,
			Topic:      "interactions",
		},
	}
}

// DefaultConfig returns the built-in defaults, before any file or env overrides.
func DefaultConfig() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration from defaults, an optional YAML file and
// environment variables, in that order of increasing priority, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are list-valued keys that env vars supply comma-separated.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"request_timeout":       "server.request_timeout",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_demo_data":    "database.seed_demo_data",

	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_gc_interval": "store.gc_interval",

	"jwt_secret":          "security.jwt_secret",
	"token_ttl":           "security.token_ttl",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"recommend_weight_scheme":        "recommend.weight_scheme",
	"recommend_algorithm_version":    "recommend.algorithm_version",
	"recommend_feed_window":          "recommend.feed_window",
	"recommend_max_feed_size":        "recommend.max_feed_size",
	"recommend_min_corpus_size":      "recommend.min_corpus_size",
	"recommend_default_count":        "recommend.default_count",
	"recommend_max_count":            "recommend.max_count",
	"recommend_max_candidates":       "recommend.max_candidates",
	"recommend_collaborator_timeout": "recommend.collaborator_timeout",
	"recommend_social_lookback":      "recommend.social_lookback",
	"recommend_high_rating":          "recommend.high_rating_threshold",
	"recommend_metrics_cache_ttl":    "recommend.metrics_cache_ttl",
	"recommend_metrics_cache_size":   "recommend.metrics_cache_size",
	"recommend_breaker_failures":     "recommend.breaker_failures",
	"recommend_breaker_timeout":      "recommend.breaker_timeout",

	"weight_social_interest":   "recommend.weights.social.interest",
	"weight_social_social":     "recommend.weights.social.social",
	"weight_social_popularity": "recommend.weights.social.popularity",
	"weight_social_quality":    "recommend.weights.social.quality",
	"weight_social_recency":    "recommend.weights.social.recency",
	"weight_social_engagement": "recommend.weights.social.engagement",
	"weight_basic_interest":    "recommend.weights.basic.interest",
	"weight_basic_social":      "recommend.weights.basic.social",
	"weight_basic_popularity":  "recommend.weights.basic.popularity",
	"weight_basic_quality":     "recommend.weights.basic.quality",
	"weight_basic_recency":     "recommend.weights.basic.recency",
	"weight_basic_engagement":  "recommend.weights.basic.engagement",

	"scheduler_enabled":          "scheduler.enabled",
	"scheduler_interval":         "scheduler.interval",
	"scheduler_backoff":          "scheduler.backoff",
	"scheduler_expiring_horizon": "scheduler.expiring_horizon",
	"scheduler_parallelism":      "scheduler.parallelism",
	"scheduler_compute_rate":     "scheduler.compute_rate",
	"scheduler_user_timeout":     "scheduler.user_timeout",
	"interest_decay_factor":      "scheduler.decay_factor",
	"interest_cleanup_floor":     "scheduler.cleanup_floor",
	"feed_purge_age":             "scheduler.purge_age",
	"decay_schedule":             "scheduler.decay_schedule",
	"cleanup_schedule":           "scheduler.cleanup_schedule",
	"purge_schedule":             "scheduler.purge_schedule",
	"scheduler_timezone":         "scheduler.timezone",

	"events_buffer_size": "events.buffer_size",
	"events_topic":       "events.topic",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
