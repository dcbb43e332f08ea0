// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package metrics holds Curator's Prometheus collectors. Collectors are
// registered on the default registry at init and served from /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// Recommendation Metrics
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_recommendations_served_total",
			Help: "Recommendation responses by the tier that produced them",
		},
		[]string{"tier"}, // precomputed, realtime, popularity
	)

	RecommendationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_recommendation_fallbacks_total",
			Help: "Strategies that failed and handed over to the next tier",
		},
		[]string{"tier"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "curator_recommendation_duration_seconds",
			Help:    "End to end duration of GetPersonalized",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RatingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_rating_cache_hits_total",
			Help: "Rating summary lookups served from the in-process cache",
		},
	)

	RatingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_rating_cache_misses_total",
			Help: "Rating summary lookups that reached the datastore",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_circuit_breaker_state",
			Help: "Collaborator circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Interest Metrics
	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_interactions_recorded_total",
			Help: "Interactions applied to interest vectors",
		},
		[]string{"type", "result"}, // result: ok, error
	)

	InteractionEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_interaction_events_published_total",
			Help: "Interaction events published to the event bus",
		},
		[]string{"result"},
	)

	// Scheduler Metrics
	SchedulerCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "curator_scheduler_cycle_duration_seconds",
			Help:    "Duration of feed scheduler cycles",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600},
		},
	)

	SchedulerCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_scheduler_cycles_total",
			Help: "Feed scheduler cycles by outcome",
		},
		[]string{"result"}, // ok, error
	)

	FeedComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_feed_computations_total",
			Help: "Per-user feed computations by outcome",
		},
		[]string{"result"}, // ok, error
	)

	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_maintenance_runs_total",
			Help: "Maintenance task executions",
		},
		[]string{"task", "result"},
	)

	FeedCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_feed_cache_entries",
			Help: "Stored feeds by validity at the end of the last scheduler cycle",
		},
		[]string{"state"}, // valid, expired
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordDBQuery records the duration and outcome of a datastore query.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordInteraction records an interest update.
func RecordInteraction(kind string, err error) {
	InteractionsRecorded.WithLabelValues(kind, resultLabel(err)).Inc()
}

// RecordSchedulerCycle records a finished scheduler cycle.
func RecordSchedulerCycle(duration time.Duration, err error) {
	SchedulerCycleDuration.Observe(duration.Seconds())
	SchedulerCycles.WithLabelValues(resultLabel(err)).Inc()
}

// RecordFeedComputation records one user's feed computation.
func RecordFeedComputation(err error) {
	FeedComputations.WithLabelValues(resultLabel(err)).Inc()
}

// RecordMaintenance records a maintenance task execution.
func RecordMaintenance(task string, err error) {
	MaintenanceRuns.WithLabelValues(task, resultLabel(err)).Inc()
}

// SetFeedCacheEntries updates the feed cache gauges.
func SetFeedCacheEntries(valid, expired int) {
	FeedCacheEntries.WithLabelValues("valid").Set(float64(valid))
	FeedCacheEntries.WithLabelValues("expired").Set(float64(expired))
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
