// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/curator/internal/metrics"
)

// BreakerConfig configures a collaborator circuit breaker.
type BreakerConfig struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// CallTimeout bounds each guarded call.
	CallTimeout time.Duration
}

func newBreaker[T any](cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[T] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation, missing posts and bad tokens do not count as failures.
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, ErrPostNotFound) ||
				errors.Is(err, ErrInvalidAuthToken)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// GuardedRatings wraps a RatingSource with a per-call timeout and a circuit
// breaker. While the breaker is open calls fail fast with
// gobreaker.ErrOpenState.
type GuardedRatings struct {
	next    RatingSource
	cb      *gobreaker.CircuitBreaker[RatingSummary]
	timeout time.Duration
}

// NewGuardedRatings wraps next.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewGuardedRatings(next RatingSource, cfg BreakerConfig, logger zerolog.Logger) *GuardedRatings {
	if cfg.Name == "" {
		cfg.Name = "ratings"
	}
	return &GuardedRatings{
		next:    next,
		cb:      newBreaker[RatingSummary](cfg, logger),
		timeout: cfg.CallTimeout,
	}
}

// Summary calls the wrapped source through the breaker.
func (g *GuardedRatings) Summary(ctx context.Context, postID string) (RatingSummary, error) {
	return g.cb.Execute(func() (RatingSummary, error) {
		cctx, cancel := withOptionalTimeout(ctx, g.timeout)
		defer cancel()
		return g.next.Summary(cctx, postID)
	})
}

// State reports the breaker state.
func (g *GuardedRatings) State() gobreaker.State {
	return g.cb.State()
}

// GuardedSocialGraph wraps a SocialGraph with a timeout and circuit breaker.
type GuardedSocialGraph struct {
	next    SocialGraph
	cb      *gobreaker.CircuitBreaker[[]string]
	timeout time.Duration
}

// NewGuardedSocialGraph wraps next.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewGuardedSocialGraph(next SocialGraph, cfg BreakerConfig, logger zerolog.Logger) *GuardedSocialGraph {
	if cfg.Name == "" {
		cfg.Name = "social-graph"
	}
	return &GuardedSocialGraph{
		next:    next,
		cb:      newBreaker[[]string](cfg, logger),
		timeout: cfg.CallTimeout,
	}
}

// Friends calls the wrapped graph through the breaker. Empty tokens bypass
// the breaker entirely.
func (g *GuardedSocialGraph) Friends(ctx context.Context, authToken string) ([]string, error) {
	if authToken == "" {
		return nil, nil
	}
	return g.cb.Execute(func() ([]string, error) {
		cctx, cancel := withOptionalTimeout(ctx, g.timeout)
		defer cancel()
		return g.next.Friends(cctx, authToken)
	})
}

// State reports the breaker state.
func (g *GuardedSocialGraph) State() gobreaker.State {
	return g.cb.State()
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
