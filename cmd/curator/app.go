// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/curator/internal/api"
	"github.com/tomtom215/curator/internal/auth"
	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/database"
	"github.com/tomtom215/curator/internal/events"
	"github.com/tomtom215/curator/internal/recommend"
	"github.com/tomtom215/curator/internal/recommend/scheduler"
	"github.com/tomtom215/curator/internal/recommend/storage"
)

// app holds every component built from the configuration. Commands pick
// the parts they need; Close releases all of them.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	db        *database.DB
	store     *storage.DB
	feeds     *storage.FeedStore
	interests *storage.InterestStore

	ratings     *recommend.CachedRatings
	recommender *recommend.Recommender
	tracker     *recommend.InterestTracker
	scheduler   *scheduler.Scheduler

	bus       *gochannel.GoChannel
	publisher *events.Publisher
	consumer  *events.Consumer
}

// newApp opens both datastores and wires the ranking pipeline. On error
// everything opened so far is closed again.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			if closeErr := a.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("cleanup after failed startup")
			}
		}
	}()

	a.db, err = database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open content database: %w", err)
	}
	if cfg.Database.SeedDemoData {
		seeded, seedErr := a.db.SeedDemoData(ctx, time.Now())
		if seedErr != nil {
			return nil, fmt.Errorf("seed demo data: %w", seedErr)
		}
		logger.Info().Bool("inserted", seeded).Msg("demo data seeding checked")
	}

	a.store, err = storage.Open(storage.Options{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		GCInterval: cfg.Store.GCInterval,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.feeds = storage.NewFeedStore(a.store, cfg.Recommend.FeedWindow, cfg.Recommend.MaxFeedSize)
	a.interests = storage.NewInterestStore(a.store)

	rcfg := recommendConfig(&cfg.Recommend)
	a.ratings = ratingSource(a.db, &cfg.Recommend, logger)
	deps := recommend.Dependencies{
		Posts:        a.db,
		Ratings:      a.ratings,
		Interests:    a.interests,
		Interactions: a.db,
		Feeds:        a.feeds,
	}
	if cfg.Security.JWTSecret != "" {
		jwtManager, jwtErr := auth.NewJWTManager(&cfg.Security)
		if jwtErr != nil {
			return nil, fmt.Errorf("create token verifier: %w", jwtErr)
		}
		deps.Social = recommend.NewGuardedSocialGraph(
			auth.NewSocialGraph(jwtManager, a.db),
			breakerConfig("social-graph", &cfg.Recommend),
			logger,
		)
		deps.FriendActivity = a.db
	} else {
		logger.Info().Msg("no JWT secret configured, social signals disabled")
	}

	a.recommender, err = recommend.NewRecommender(rcfg, deps, logger)
	if err != nil {
		return nil, fmt.Errorf("create recommender: %w", err)
	}
	a.tracker = recommend.NewInterestTracker(a.interests, a.db, cfg.Recommend.CollaboratorTimeout, logger)

	scfg, err := schedulerConfig(&cfg.Scheduler, &cfg.Recommend)
	if err != nil {
		return nil, err
	}
	a.scheduler, err = scheduler.New(scfg, scheduler.Deps{
		Computer:  a.recommender,
		Feeds:     a.feeds,
		Users:     a.db,
		Interests: a.interests,
		Ledger:    storage.NewLedger(a.store),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	a.bus = events.NewBus(cfg.Events, logger)
	a.publisher = events.NewPublisher(a.bus, cfg.Events.Topic)
	a.consumer = events.NewConsumer(a.bus, a.bus, events.DefaultConsumerConfig(cfg.Events.Topic), a.tracker, a.db, logger).
		WithRatingsCache(a.ratings)

	return a, nil
}

// Close releases the bus and both datastores.
func (a *app) Close() error {
	var errs []error
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// handler builds the HTTP API. includeScheduler is false when the
// scheduler is not running, so the status endpoint reports it disabled.
func (a *app) handler(includeScheduler bool) http.Handler {
	deps := api.Deps{
		Recommender:    a.recommender,
		Publisher:      a.publisher,
		Feeds:          a.feeds,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		Checks: []api.ReadinessCheck{
			{Name: "database", Check: a.db.Ping},
			{Name: "store", Check: a.store.Ping},
		},
	}
	if includeScheduler {
		deps.Scheduler = a.scheduler
	}
	h := api.NewHandler(deps, a.logger)
	return api.NewRouter(h, api.NewChiMiddleware(api.NewChiMiddlewareConfig(&a.cfg.Security)))
}

func recommendConfig(c *config.RecommendConfig) *recommend.Config {
	rcfg := recommend.DefaultConfig()
	rcfg.Scheme = recommend.WeightScheme(c.WeightScheme)
	rcfg.Weights = recommend.WeightSets{
		Social: scoringWeights(c.Weights.Social),
		Basic:  scoringWeights(c.Weights.Basic),
	}
	rcfg.AlgorithmVersion = c.AlgorithmVersion
	rcfg.Limits = recommend.LimitsConfig{
		MinCorpusSize: c.MinCorpusSize,
		MaxFeedSize:   c.MaxFeedSize,
		DefaultCount:  c.DefaultCount,
		MaxCount:      c.MaxCount,
		MaxCandidates: c.MaxCandidates,
	}
	rcfg.Social = recommend.SocialConfig{
		Lookback:            c.SocialLookback,
		HighRatingThreshold: c.HighRatingThreshold,
	}
	rcfg.CollaboratorTimeout = c.CollaboratorTimeout
	return rcfg
}

func scoringWeights(w config.WeightsConfig) recommend.ScoringWeights {
	return recommend.ScoringWeights{
		Interest:   w.Interest,
		Social:     w.Social,
		Popularity: w.Popularity,
		Quality:    w.Quality,
		Recency:    w.Recency,
		Engagement: w.Engagement,
	}
}

func breakerConfig(name string, c *config.RecommendConfig) recommend.BreakerConfig {
	return recommend.BreakerConfig{
		Name:             name,
		FailureThreshold: c.BreakerFailures,
		OpenTimeout:      c.BreakerTimeout,
	}
}

// ratingSource caches rating summaries in front of a circuit breaker, so
// cached posts keep their quality signal while the datastore is down.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ratingSource(db *database.DB, c *config.RecommendConfig, logger zerolog.Logger) *recommend.CachedRatings {
	guarded := recommend.NewGuardedRatings(recommend.NewAggregatedRatings(db), breakerConfig("ratings", c), logger)
	return recommend.NewCachedRatings(guarded, c.MetricsCacheSize, c.MetricsCacheTTL)
}

func schedulerConfig(c *config.SchedulerConfig, rc *config.RecommendConfig) (scheduler.Config, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("load scheduler timezone: %w", err)
	}
	return scheduler.Config{
		Interval:         c.Interval,
		Backoff:          c.Backoff,
		ExpiringHorizon:  c.ExpiringHorizon,
		Parallelism:      c.Parallelism,
		ComputeRate:      c.ComputeRate,
		UserTimeout:      c.UserTimeout,
		AlgorithmVersion: rc.AlgorithmVersion,
		DecayFactor:      c.DecayFactor,
		CleanupFloor:     c.CleanupFloor,
		PurgeAge:         c.PurgeAge,
		DecaySchedule:    c.DecaySchedule,
		CleanupSchedule:  c.CleanupSchedule,
		PurgeSchedule:    c.PurgeSchedule,
		Location:         loc,
	}, nil
}
