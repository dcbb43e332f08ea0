// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/recommend"
)

// State is the scheduler's current phase.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateComputing
	StateMaintaining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateComputing:
		return "computing"
	case StateMaintaining:
		return "maintaining"
	default:
		return "unknown"
	}
}

var (
	// ErrCycleInProgress is returned by RunCycle while another cycle runs.
	ErrCycleInProgress = errors.New("scheduler cycle already in progress")

	// ErrUnknownTask is returned by RunTask for unregistered task names.
	ErrUnknownTask = errors.New("unknown maintenance task")
)

// FeedComputer ranks posts for one user. *recommend.Recommender implements it.
type FeedComputer interface {
	ComputeFeed(ctx context.Context, userID string) ([]recommend.ScoredPost, error)
	CorpusReady(ctx context.Context) (bool, error)
}

// FeedStore is the feed cache as seen by the scheduler.
// *storage.FeedStore implements it.
type FeedStore interface {
	UpsertScored(ctx context.Context, userID string, items []recommend.ScoredPost, algorithmVersion string) error
	ListExpired(ctx context.Context) ([]string, error)
	ListExpiringWithin(ctx context.Context, horizon time.Duration) ([]string, error)
	ListUsersWithoutFeed(ctx context.Context, allUsers []string) ([]string, error)
	DeleteOlderThan(ctx context.Context, age time.Duration) (int, error)
	Stats(ctx context.Context) (recommend.FeedStats, error)
}

// InterestMaintainer ages and prunes interest vectors.
// *storage.InterestStore implements it.
type InterestMaintainer interface {
	Decay(ctx context.Context, factor float64) (int, error)
	Cleanup(ctx context.Context, floor float64) (int, error)
}

// RunLedger records maintenance runs. *storage.Ledger implements it.
type RunLedger interface {
	RanOn(ctx context.Context, task string, day time.Time) (bool, error)
	MarkRun(ctx context.Context, task string, at time.Time) error
}

// Config controls cycle timing, concurrency and maintenance.
type Config struct {
	Interval        time.Duration
	Backoff         time.Duration
	ExpiringHorizon time.Duration

	// Parallelism bounds concurrent per-user computations.
	Parallelism int
	// ComputeRate caps computations per second; 0 means unlimited.
	ComputeRate float64
	UserTimeout time.Duration

	AlgorithmVersion string

	DecayFactor  float64
	CleanupFloor float64
	PurgeAge     time.Duration

	DecaySchedule   string
	CleanupSchedule string
	PurgeSchedule   string

	// Location is the timezone for maintenance days. Nil means UTC.
	Location *time.Location
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:         20 * time.Minute,
		Backoff:          5 * time.Minute,
		ExpiringHorizon:  5 * time.Minute,
		Parallelism:      4,
		ComputeRate:      20,
		UserTimeout:      30 * time.Second,
		AlgorithmVersion: "v2",
		DecayFactor:      0.98,
		CleanupFloor:     0.01,
		PurgeAge:         7 * 24 * time.Hour,
		DecaySchedule:    "@daily",
		CleanupSchedule:  "0 0 * * 0",
		PurgeSchedule:    "0 0 * * 3",
		Location:         time.UTC,
	}
}

// Deps are the scheduler's collaborators. All are required.
type Deps struct {
	Computer  FeedComputer
	Feeds     FeedStore
	Users     recommend.UserDirectory
	Interests InterestMaintainer
	Ledger    RunLedger
}

// CycleReport summarizes one scheduler cycle.
type CycleReport struct {
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    time.Time           `json:"finished_at"`
	Candidates    int                 `json:"candidates"`
	Computed      int                 `json:"computed"`
	Failed        int                 `json:"failed"`
	CorpusSkipped bool                `json:"corpus_skipped"`
	Maintenance   []TaskResult        `json:"maintenance,omitempty"`
	Feeds         recommend.FeedStats `json:"feeds"`
	Error         string              `json:"error,omitempty"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State     string       `json:"state"`
	LastCycle *CycleReport `json:"last_cycle,omitempty"`
}

// Scheduler keeps precomputed feeds fresh and runs interest maintenance.
// It implements suture.Service.
type Scheduler struct {
	cfg     Config
	deps    Deps
	tasks   []Task
	limiter *rate.Limiter

	state   atomic.Int32
	running atomic.Bool

	mu   sync.RWMutex
	last *CycleReport

	now    func() time.Time
	logger zerolog.Logger
}

// New validates cfg and builds the maintenance task list from its day
// schedules.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, deps Deps, logger zerolog.Logger) (*Scheduler, error) {
	if deps.Computer == nil || deps.Feeds == nil || deps.Users == nil || deps.Interests == nil || deps.Ledger == nil {
		return nil, errors.New("scheduler requires computer, feeds, users, interests and ledger")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", cfg.Interval)
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = cfg.Interval
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &Scheduler{
		cfg:    cfg,
		deps:   deps,
		now:    time.Now,
		logger: logger.With().Str("component", "feed-scheduler").Logger(),
	}
	if cfg.ComputeRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ComputeRate), cfg.Parallelism)
	}

	schedules := []struct {
		name string
		spec string
		run  func(ctx context.Context) (int, error)
	}{
		{TaskDecay, cfg.DecaySchedule, func(ctx context.Context) (int, error) {
			return deps.Interests.Decay(ctx, cfg.DecayFactor)
		}},
		{TaskCleanup, cfg.CleanupSchedule, func(ctx context.Context) (int, error) {
			return deps.Interests.Cleanup(ctx, cfg.CleanupFloor)
		}},
		{TaskPurge, cfg.PurgeSchedule, func(ctx context.Context) (int, error) {
			return deps.Feeds.DeleteOlderThan(ctx, cfg.PurgeAge)
		}},
	}
	for _, sc := range schedules {
		due, err := CronDays(sc.spec)
		if err != nil {
			return nil, fmt.Errorf("%s schedule: %w", sc.name, err)
		}
		s.tasks = append(s.tasks, Task{Name: sc.name, Due: due, Run: sc.run})
	}
	return s, nil
}

// WithClock replaces the time source used for cycle timestamps and
// maintenance days.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// State returns the current phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// Status returns the current phase and the last completed cycle.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{State: s.State().String()}
	if s.last != nil {
		last := *s.last
		st.LastCycle = &last
	}
	return st
}

// Serve runs a cycle immediately and then every Interval, or after Backoff
// when a cycle fails, until ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Int("parallelism", s.cfg.Parallelism).
		Msg("feed scheduler starting")

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info().Msg("feed scheduler stopped")
			return err
		}

		wait := s.cfg.Interval
		if _, err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.logger.Error().Err(err).Dur("backoff", s.cfg.Backoff).Msg("feed scheduler cycle failed")
			wait = s.cfg.Backoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Scheduler) String() string {
	return "feed-scheduler"
}

// RunCycle scans for stale feeds, recomputes them, runs due maintenance and
// records feed statistics. Per-user failures are counted, not returned; an
// error means the scan or the corpus check failed.
func (s *Scheduler) RunCycle(ctx context.Context) (report CycleReport, err error) {
	if !s.running.CompareAndSwap(false, true) {
		return CycleReport{}, ErrCycleInProgress
	}
	defer s.running.Store(false)

	began := time.Now()
	report.StartedAt = s.now()
	defer func() {
		s.setState(StateIdle)
		report.FinishedAt = s.now()
		if err != nil {
			report.Error = err.Error()
		}
		metrics.RecordSchedulerCycle(time.Since(began), err)

		s.mu.Lock()
		r := report
		s.last = &r
		s.mu.Unlock()
	}()

	s.setState(StateScanning)
	users, err := s.scan(ctx)
	if err != nil {
		return report, fmt.Errorf("scan feeds: %w", err)
	}
	report.Candidates = len(users)

	s.setState(StateComputing)
	ready, err := s.deps.Computer.CorpusReady(ctx)
	if err != nil {
		return report, fmt.Errorf("check corpus: %w", err)
	}
	if !ready {
		report.CorpusSkipped = true
		s.logger.Info().Int("candidates", len(users)).Msg("corpus below minimum, skipping feed computation")
	} else if len(users) > 0 {
		report.Computed, report.Failed = s.computeAll(ctx, users)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	s.setState(StateMaintaining)
	report.Maintenance = s.runMaintenance(ctx, report.StartedAt)

	stats, statsErr := s.deps.Feeds.Stats(ctx)
	if statsErr != nil {
		s.logger.Warn().Err(statsErr).Msg("feed statistics unavailable")
	} else {
		report.Feeds = stats
		metrics.SetFeedCacheEntries(stats.Valid, stats.Expired)
	}

	s.logger.Info().
		Int("candidates", report.Candidates).
		Int("computed", report.Computed).
		Int("failed", report.Failed).
		Int("feeds_total", report.Feeds.Total).
		Int("feeds_valid", report.Feeds.Valid).
		Int("feeds_expired", report.Feeds.Expired).
		Dur("duration", time.Since(began)).
		Msg("feed scheduler cycle complete")
	return report, nil
}

// scan returns the deduplicated union of users with an expired feed, a feed
// expiring soon and no feed at all, in that order.
func (s *Scheduler) scan(ctx context.Context) ([]string, error) {
	expired, err := s.deps.Feeds.ListExpired(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	expiring, err := s.deps.Feeds.ListExpiringWithin(ctx, s.cfg.ExpiringHorizon)
	if err != nil {
		return nil, fmt.Errorf("list expiring: %w", err)
	}
	all, err := s.deps.Users.UserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	missing, err := s.deps.Feeds.ListUsersWithoutFeed(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("list users without feed: %w", err)
	}

	n := len(expired) + len(expiring) + len(missing)
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for _, group := range [][]string{expired, expiring, missing} {
		for _, id := range group {
			if _, dup := seen[id]; dup || id == "" {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Scheduler) computeAll(ctx context.Context, users []string) (computed, failed int) {
	var ok, bad atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.cfg.Parallelism)

	for _, userID := range users {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := s.computeUser(ctx, userID); err != nil {
				bad.Add(1)
				if ctx.Err() == nil {
					s.logger.Warn().Err(err).Str("user_id", userID).Msg("feed computation failed")
				}
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load()), int(bad.Load())
}

func (s *Scheduler) computeUser(ctx context.Context, userID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic computing feed: %v", r)
		}
		metrics.RecordFeedComputation(err)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UserTimeout)
	defer cancel()

	items, err := s.deps.Computer.ComputeFeed(ctx, userID)
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}
	if err := s.deps.Feeds.UpsertScored(ctx, userID, items, s.cfg.AlgorithmVersion); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// runMaintenance runs every task that is due today and has not yet run
// today.
func (s *Scheduler) runMaintenance(ctx context.Context, now time.Time) []TaskResult {
	day := now.In(s.cfg.Location)
	var results []TaskResult
	for _, t := range s.tasks {
		if ctx.Err() != nil {
			break
		}
		if !t.Due(day) {
			continue
		}
		ran, err := s.deps.Ledger.RanOn(ctx, t.Name, day)
		if err != nil {
			s.logger.Warn().Err(err).Str("task", t.Name).Msg("maintenance ledger unavailable")
			continue
		}
		if ran {
			continue
		}
		res, _ := s.runTask(ctx, t, now)
		results = append(results, res)
	}
	return results
}

func (s *Scheduler) runTask(ctx context.Context, t Task, now time.Time) (TaskResult, error) {
	start := time.Now()
	n, err := t.Run(ctx)
	metrics.RecordMaintenance(t.Name, err)
	res := TaskResult{Task: t.Name, Affected: n, Duration: time.Since(start)}
	if err != nil {
		res.Error = err.Error()
		s.logger.Warn().Err(err).Str("task", t.Name).Msg("maintenance task failed")
		return res, fmt.Errorf("%s: %w", t.Name, err)
	}
	if err := s.deps.Ledger.MarkRun(ctx, t.Name, now); err != nil {
		s.logger.Warn().Err(err).Str("task", t.Name).Msg("could not record maintenance run")
	}
	s.logger.Info().
		Str("task", t.Name).
		Int("affected", n).
		Dur("duration", res.Duration).
		Msg("maintenance task complete")
	return res, nil
}

// RunTask runs the named maintenance task now, ignoring its day schedule
// and the ledger. The run is still recorded.
func (s *Scheduler) RunTask(ctx context.Context, name string) (TaskResult, error) {
	for _, t := range s.tasks {
		if t.Name == name {
			prev := s.State()
			s.setState(StateMaintaining)
			defer s.setState(prev)
			return s.runTask(ctx, t, s.now())
		}
	}
	return TaskResult{}, fmt.Errorf("%w: %q", ErrUnknownTask, name)
}
