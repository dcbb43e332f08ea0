// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package supervisor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/curator/internal/logging"
)

// testService runs until cancelled, optionally failing its first few starts.
type testService struct {
	name     string
	failures int32
	starts   atomic.Int32
}

func (s *testService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *testService) String() string { return s.name }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestTree(t *testing.T, cfg TreeConfig) (*Tree, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	logger := slog.New(logging.NewSlogHandler(logging.NewTestLogger(out)))
	return NewTree(logger, cfg), out
}

func TestNewTreeDefaults(t *testing.T) {
	t.Parallel()

	tree, _ := newTestTree(t, TreeConfig{})
	assert.Equal(t, DefaultTreeConfig(), tree.Config())

	tree, _ = newTestTree(t, TreeConfig{FailureThreshold: 2, FailureBackoff: time.Second})
	cfg := tree.Config()
	assert.InDelta(t, 2.0, cfg.FailureThreshold, 1e-9)
	assert.Equal(t, time.Second, cfg.FailureBackoff)
	assert.InDelta(t, 30.0, cfg.FailureDecay, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestTreeStartsEveryLayer(t *testing.T) {
	t.Parallel()

	tree, _ := newTestTree(t, TreeConfig{ShutdownTimeout: time.Second})
	gc := &testService{name: "badger-gc"}
	sched := &testService{name: "feed-scheduler"}
	http := &testService{name: "http-server"}
	tree.AddStorageService(gc)
	tree.AddPipelineService(sched)
	tree.AddAPIService(http)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*testService{gc, sched, http} {
		assert.Eventually(t, func() bool { return svc.starts.Load() >= 1 }, 2*time.Second, 10*time.Millisecond, svc.name)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not shut down")
	}

	report, err := tree.UnstoppedServiceReport()
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestTreeRestartsFailingServiceInIsolation(t *testing.T) {
	t.Parallel()

	tree, logs := newTestTree(t, TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	flaky := &testService{name: "interaction-consumer", failures: 2}
	stable := &testService{name: "http-server"}
	tree.AddPipelineService(flaky)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	assert.Eventually(t, func() bool { return flaky.starts.Load() >= 3 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), stable.starts.Load())
	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "interaction-consumer")
	}, 2*time.Second, 10*time.Millisecond, "supervisor events are logged through zerolog")

	cancel()
	<-errCh
}
