// Curator - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/curator/internal/config"
	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/middleware"
	"github.com/tomtom215/curator/internal/recommend"
	"github.com/tomtom215/curator/internal/recommend/scheduler"
	"github.com/tomtom215/curator/internal/validation"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeRecommender struct {
	mu   sync.Mutex
	last recommend.Request
	resp *recommend.Response
	err  error
}

func (f *fakeRecommender) GetPersonalized(_ context.Context, req recommend.Request) (*recommend.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeRecommender) lastRequest() recommend.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakePublisher struct {
	mu        sync.Mutex
	published []recommend.Interaction
	err       error
}

func (f *fakePublisher) PublishInteraction(_ context.Context, in recommend.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, in)
	return nil
}

type fakeFeeds struct {
	feeds map[string]*recommend.Feed
	stats recommend.FeedStats
	err   error
}

func (f *fakeFeeds) GetFeed(_ context.Context, userID string) (*recommend.Feed, error) {
	if f.err != nil {
		return nil, f.err
	}
	feed, ok := f.feeds[userID]
	if !ok {
		return nil, recommend.ErrFeedNotFound
	}
	return feed, nil
}

func (f *fakeFeeds) Stats(context.Context) (recommend.FeedStats, error) {
	return f.stats, f.err
}

type fakeScheduler struct{ status scheduler.Status }

func (f fakeScheduler) Status() scheduler.Status { return f.status }

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Metadata Metadata `json:"metadata"`
}

type testServer struct {
	rec       *fakeRecommender
	pub       *fakePublisher
	feeds     *fakeFeeds
	handler   http.Handler
	secConfig config.SecurityConfig
}

func newTestServer(t *testing.T, deps Deps) *testServer {
	t.Helper()
	ts := &testServer{
		rec: &fakeRecommender{resp: &recommend.Response{
			UserID: "alice",
			Tier:   recommend.TierRealtime,
			Items: []recommend.ScoredPost{
				{Post: recommend.Post{ID: "p1", Title: "First", AuthorID: "bob", Tags: []string{"go"}}, Score: 0.9,
					Breakdown: recommend.ScoreBreakdown{Interest: 0.5, Popularity: 0.4}},
				{Post: recommend.Post{ID: "p2", Title: "Second", AuthorID: "carol"}, Score: 0.4},
			},
			GeneratedAt: testNow,
		}},
		pub:   &fakePublisher{},
		feeds: &fakeFeeds{feeds: map[string]*recommend.Feed{}},
		secConfig: config.SecurityConfig{
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
		},
	}
	if deps.Recommender == nil {
		deps.Recommender = ts.rec
	}
	if deps.Publisher == nil {
		deps.Publisher = ts.pub
	}
	if deps.Feeds == nil {
		deps.Feeds = ts.feeds
	}
	h := NewHandler(deps, logging.NewTestLogger(io.Discard))
	ts.handler = NewRouter(h, NewChiMiddleware(NewChiMiddlewareConfig(&ts.secConfig)))
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func TestRecommendations(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})

	rr, env := ts.do(t, http.MethodGet, "/api/v1/recommendations/alice?count=5&exclude_author=dave", "",
		map[string]string{"Authorization": "Bearer tok-123"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "success", env.Status)

	var data RecommendationsResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "alice", data.UserID)
	assert.Equal(t, recommend.TierRealtime, data.Tier)
	assert.Equal(t, 2, data.Count)
	require.Len(t, data.Items, 2)
	assert.Equal(t, RecommendationItem{PostID: "p1", Score: 0.9, Title: "First", AuthorID: "bob", Tags: []string{"go"}}, data.Items[0])
	assert.Equal(t, "p2", data.Items[1].PostID)
	assert.Nil(t, data.Items[0].Breakdown)

	assert.Equal(t, recommend.Request{
		UserID:          "alice",
		Count:           5,
		ExcludeAuthorID: "dave",
		AuthToken:       "tok-123",
	}, ts.rec.lastRequest())
}

func TestRecommendationsAliasAndDefaults(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})

	rr, _ := ts.do(t, http.MethodGet, "/recommendations/alice", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, recommend.Request{UserID: "alice"}, ts.rec.lastRequest())
}

func TestRecommendationsExplain(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})

	rr, env := ts.do(t, http.MethodGet, "/api/v1/recommendations/alice?explain=true", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var data RecommendationsResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotNil(t, data.Items[0].Breakdown)
	assert.InDelta(t, 0.5, data.Items[0].Breakdown.Interest, 1e-9)
	assert.InDelta(t, 0.4, data.Items[0].Breakdown.Popularity, 1e-9)
}

func TestRecommendationsBadQuery(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})

	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"non-integer count", "/api/v1/recommendations/alice?count=many", CodeBadRequest},
		{"negative count", "/api/v1/recommendations/alice?count=-1", validation.ErrorCode},
		{"huge count", "/api/v1/recommendations/alice?count=5000", validation.ErrorCode},
		{"long exclude", "/api/v1/recommendations/alice?exclude_author=" + strings.Repeat("x", 200), validation.ErrorCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr, env := ts.do(t, http.MethodGet, tt.target, "", nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "error", env.Status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestRecommendationsContextEnded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"deadline", context.DeadlineExceeded, CodeTimeout},
		{"cancelled", context.Canceled, CodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t, Deps{Recommender: &fakeRecommender{err: tt.err}})
			rr, env := ts.do(t, http.MethodGet, "/api/v1/recommendations/alice", "", nil)
			assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestRecordInteraction(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})

	rr, env := ts.do(t, http.MethodPost, "/api/v1/interactions",
		`{"user_id":"alice","post_id":"p1","type":"RATE","rating":4,"tags":["go","db"]}`, nil)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Equal(t, "success", env.Status)

	var data InteractionAccepted
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, InteractionAccepted{UserID: "alice", PostID: "p1", Type: "rate"}, data)

	require.Len(t, ts.pub.published, 1)
	assert.Equal(t, recommend.Interaction{
		UserID: "alice",
		PostID: "p1",
		Type:   recommend.InteractionRate,
		Rating: 4,
		Tags:   []string{"go", "db"},
	}, ts.pub.published[0])
}

func TestRecordInteractionRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		code  string
		field string
	}{
		{"malformed", `{"user_id":`, CodeBadRequest, ""},
		{"unknown field", `{"user_id":"a","post_id":"p","type":"view","extra":1}`, CodeBadRequest, ""},
		{"missing user", `{"post_id":"p","type":"view"}`, validation.ErrorCode, "user_id"},
		{"unknown type", `{"user_id":"a","post_id":"p","type":"like"}`, validation.ErrorCode, "type"},
		{"rating out of range", `{"user_id":"a","post_id":"p","type":"rate","rating":9}`, validation.ErrorCode, "rating"},
		{"rate without rating", `{"user_id":"a","post_id":"p","type":"rate"}`, validation.ErrorCode, "rating"},
		{"empty tag", `{"user_id":"a","post_id":"p","type":"save","tags":[""]}`, validation.ErrorCode, "tags[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t, Deps{})
			rr, env := ts.do(t, http.MethodPost, "/api/v1/interactions", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			if tt.field != "" {
				var fields []validation.FieldError
				require.NoError(t, json.Unmarshal(env.Error.Details, &fields))
				require.NotEmpty(t, fields)
				assert.Equal(t, tt.field, fields[0].Field)
			}
			assert.Empty(t, ts.pub.published)
		})
	}
}

func TestRecordInteractionPublishFailure(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{Publisher: &fakePublisher{err: errors.New("bus closed")}})

	rr, env := ts.do(t, http.MethodPost, "/api/v1/interactions", `{"user_id":"a","post_id":"p","type":"view"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeUnavailable, env.Error.Code)
	assert.NotContains(t, env.Error.Message, "bus closed")
}

func TestFeed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})
	ts.feeds.feeds["alice"] = &recommend.Feed{
		UserID:           "alice",
		PostIDs:          []string{"p1", "p2"},
		Scores:           []float64{0.8, 0.3},
		ComputedAt:       testNow,
		AlgorithmVersion: "v2",
		Valid:            true,
		ExpiresAt:        testNow.Add(time.Hour),
	}

	rr, env := ts.do(t, http.MethodGet, "/api/v1/feeds/alice", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var data FeedResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, FeedResponse{
		UserID:           "alice",
		PostIDs:          []string{"p1", "p2"},
		Scores:           []float64{0.8, 0.3},
		ComputedAt:       testNow,
		ExpiresAt:        testNow.Add(time.Hour),
		Valid:            true,
		AlgorithmVersion: "v2",
	}, data)

	rr, env = ts.do(t, http.MethodGet, "/api/v1/feeds/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeNotFound, env.Error.Code)
}

func TestFeedStats(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})
	ts.feeds.stats = recommend.FeedStats{Total: 3, Valid: 2, Expired: 1}

	rr, env := ts.do(t, http.MethodGet, "/api/v1/feeds/stats", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var data recommend.FeedStats
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, recommend.FeedStats{Total: 3, Valid: 2, Expired: 1}, data)
}

func TestFeedStoreFailure(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{Feeds: &fakeFeeds{err: errors.New("badger closed")}})

	rr, _ := ts.do(t, http.MethodGet, "/api/v1/feeds/alice", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	rr, _ = ts.do(t, http.MethodGet, "/api/v1/feeds/stats", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSchedulerStatus(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t, Deps{})
		rr, env := ts.do(t, http.MethodGet, "/api/v1/scheduler/status", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var data scheduler.Status
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "disabled", data.State)
		assert.Nil(t, data.LastCycle)
	})

	t.Run("running", func(t *testing.T) {
		t.Parallel()
		report := &scheduler.CycleReport{StartedAt: testNow, FinishedAt: testNow.Add(time.Second), Candidates: 4, Computed: 3, Failed: 1}
		ts := newTestServer(t, Deps{Scheduler: fakeScheduler{status: scheduler.Status{State: "idle", LastCycle: report}}})
		rr, env := ts.do(t, http.MethodGet, "/api/v1/scheduler/status", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var data scheduler.Status
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "idle", data.State)
		require.NotNil(t, data.LastCycle)
		assert.Equal(t, 3, data.LastCycle.Computed)
		assert.Equal(t, 1, data.LastCycle.Failed)
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ok := ReadinessCheck{Name: "duckdb", Check: func(context.Context) error { return nil }}
	broken := ReadinessCheck{Name: "badger", Check: func(context.Context) error { return errors.New("closed") }}

	ts := newTestServer(t, Deps{Checks: []ReadinessCheck{ok}})
	rr, _ := ts.do(t, http.MethodGet, "/api/v1/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, env := ts.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var data HealthStatus
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, HealthStatus{Status: "ready", Checks: map[string]string{"duckdb": "ok"}}, data)

	ts = newTestServer(t, Deps{Checks: []ReadinessCheck{ok, broken}})
	rr, env = ts.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.NotNil(t, env.Error)
	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.Equal(t, map[string]string{"duckdb": "ok", "badger": "closed"}, details)
}

func TestRouterFallbacks(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})

	rr, env := ts.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeNotFound, env.Error.Code)

	rr, env = ts.do(t, http.MethodDelete, "/api/v1/interactions", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeMethodNotAllowed, env.Error.Code)
}

func TestRequestIDInMetadata(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})

	rr, env := ts.do(t, http.MethodGet, "/api/v1/health/live", "", map[string]string{middleware.RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", rr.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "req-42", env.Metadata.RequestID)
	assert.False(t, env.Metadata.Timestamp.IsZero())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})

	ts.do(t, http.MethodGet, "/api/v1/feeds/stats", "", nil)
	rr, _ := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "curator_api_requests_total")
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	sec := &config.SecurityConfig{RateLimitReqs: 1, RateLimitWindow: time.Minute, CORSOrigins: []string{"*"}}
	h := NewHandler(Deps{Feeds: &fakeFeeds{}}, logging.NewTestLogger(io.Discard))
	router := NewRouter(h, NewChiMiddleware(NewChiMiddlewareConfig(sec)))

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, get("/api/v1/feeds/stats").Code)
	limited := get("/api/v1/feeds/stats")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), CodeRateLimited)

	// Probes bypass the limiter.
	assert.Equal(t, http.StatusOK, get("/api/v1/health/live").Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, Deps{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/interactions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
