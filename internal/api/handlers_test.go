// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/streamrelay/streamrelay/internal/analytics"
	"github.com/streamrelay/streamrelay/internal/cache"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/eventlog"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/resolver"
	"github.com/streamrelay/streamrelay/internal/stream"
	"github.com/streamrelay/streamrelay/internal/watchlist"
)

// stubResolver returns a canned payload or error and counts invocations.
type stubResolver struct {
	payload *resolver.RawPayload
	err     error
	calls   int
}

func (s *stubResolver) Resolve(_ context.Context, _, _ string) (*resolver.RawPayload, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

type testServer struct {
	handler   http.Handler
	stub      *stubResolver
	analytics *eventlog.Log
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	analyticsLog, err := eventlog.Open("analytics", filepath.Join(dir, "viewing_log.jsonl"))
	if err != nil {
		t.Fatalf("open analytics log: %v", err)
	}
	watchlistLog, err := eventlog.Open("watchlist", filepath.Join(dir, "watchlist.jsonl"))
	if err != nil {
		t.Fatalf("open watchlist log: %v", err)
	}
	t.Cleanup(func() {
		analyticsLog.Close()
		watchlistLog.Close()
	})

	stub := &stubResolver{
		payload: &resolver.RawPayload{
			Title:  "Test Trailer",
			Height: 720,
			RequestedFormats: []resolver.Format{
				{URL: "https://cdn.example/stream", ACodec: "mp4a", VCodec: "avc1", Height: 720},
			},
		},
	}

	svc := stream.NewService(cache.New(time.Hour), stub, rate.NewLimiter(rate.Inf, 1), time.Second)
	handler := NewHandler(
		svc,
		analytics.NewRecorder(analyticsLog),
		analytics.NewAggregator(analyticsLog),
		watchlist.New(watchlistLog),
	)

	cfg := config.ServerConfig{
		Host:        "127.0.0.1",
		Port:        5000,
		Timeout:     30 * time.Second,
		CORSOrigins: []string{"*"},
	}
	return &testServer{
		handler:   NewRouter(cfg, handler).Setup(),
		stub:      stub,
		analytics: analyticsLog,
	}
}

func (ts *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "192.168.1.10:52000"
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (ts *testServer) exportedEvents(t *testing.T) []models.EventRecord {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/analytics/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	var resp struct {
		TotalEvents int                  `json:"total_events"`
		Events      []models.EventRecord `json:"events"`
	}
	decodeResponse(t, rec, &resp)
	return resp.Events
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Status    string   `json:"status"`
		Service   string   `json:"service"`
		Qualities []string `json:"qualities"`
	}
	decodeResponse(t, rec, &resp)
	if resp.Status != "ok" || resp.Service != ServiceName {
		t.Errorf("descriptor = %+v", resp)
	}
	if len(resp.Qualities) != 5 {
		t.Errorf("qualities = %v", resp.Qualities)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Status        string `json:"status"`
		UptimeSeconds *int64 `json:"uptime_seconds"`
	}
	decodeResponse(t, rec, &resp)
	if resp.Status != "ok" || resp.UptimeSeconds == nil {
		t.Errorf("health = %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/metrics", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("streamrelay_")) {
		t.Error("exposition missing streamrelay collectors")
	}
}

func TestStreamResolvesAndCaches(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/stream/dQw4w9WgXcQ?quality=720", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var first streamResponse
	decodeResponse(t, rec, &first)
	if first.URL != "https://cdn.example/stream" {
		t.Errorf("url = %q", first.URL)
	}
	if first.Quality != 720 {
		t.Errorf("quality = %d, want 720", first.Quality)
	}
	if first.CacheHit {
		t.Error("first request reported cache_hit")
	}

	rec = ts.do(t, http.MethodGet, "/stream/dQw4w9WgXcQ?quality=720", nil)
	var second streamResponse
	decodeResponse(t, rec, &second)
	if !second.CacheHit {
		t.Error("second request missed the cache")
	}
	if second.URL != first.URL {
		t.Errorf("cached url = %q, want %q", second.URL, first.URL)
	}
	if ts.stub.calls != 1 {
		t.Errorf("adapter invoked %d times, want 1", ts.stub.calls)
	}

	// Both requests were logged, cache hit included.
	events := ts.exportedEvents(t)
	if len(events) != 2 {
		t.Fatalf("logged %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.EventType != models.EventStreamRequest {
			t.Errorf("event_type = %q", e.EventType)
		}
	}
	if events[1].CacheHit == nil || !*events[1].CacheHit {
		t.Error("second event not marked as cache hit")
	}
}

func TestStreamRecordsMediaMetadata(t *testing.T) {
	ts := newTestServer(t)

	target := "/stream/dQw4w9WgXcQ?quality=best&session_id=s-1&media_id=603&media_type=movie" +
		"&media_title=The+Matrix&media_year=1999&media_genres=Action,Sci-Fi&is_official=true&trailer_index=0"
	rec := ts.do(t, http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	events := ts.exportedEvents(t)
	if len(events) != 1 {
		t.Fatalf("logged %d events, want 1", len(events))
	}
	e := events[0]
	if e.SessionID != "s-1" || e.MediaID != "603" || e.MediaType != "movie" {
		t.Errorf("media fields = %+v", e)
	}
	if e.MediaYear == nil || *e.MediaYear != 1999 {
		t.Errorf("MediaYear = %v", e.MediaYear)
	}
	if len(e.MediaGenres) != 2 || e.MediaGenres[0] != "Action" {
		t.Errorf("MediaGenres = %v", e.MediaGenres)
	}
	if e.IsOfficial == nil || !*e.IsOfficial {
		t.Errorf("IsOfficial = %v", e.IsOfficial)
	}
	if e.SourceIP != "192.168.1.10" {
		t.Errorf("SourceIP = %q", e.SourceIP)
	}
}

func TestStreamRejectsShortID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/stream/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ts.stub.calls != 0 {
		t.Errorf("adapter invoked %d times for invalid ID", ts.stub.calls)
	}
	if events := ts.exportedEvents(t); len(events) != 0 {
		t.Errorf("validation failure appended %d events", len(events))
	}
}

func TestStreamAdapterFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.stub.err = &resolver.AdapterError{ContentID: "dQw4w9WgXcQ", Reason: "ERROR: Video unavailable"}

	rec := ts.do(t, http.MethodGet, "/stream/dQw4w9WgXcQ", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp errorResponse
	decodeResponse(t, rec, &resp)
	if resp.Error != "ERROR: Video unavailable" {
		t.Errorf("error = %q", resp.Error)
	}

	events := ts.exportedEvents(t)
	if len(events) != 1 || events[0].EventType != models.EventStreamError {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Error != "ERROR: Video unavailable" {
		t.Errorf("event error = %q", events[0].Error)
	}
}

func TestAnalyticsEvent(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]interface{}{
		"event":            "play_end",
		"session_id":       "s-1",
		"video_id":         "dQw4w9WgXcQ",
		"watch_time":       114.0,
		"video_duration":   120.0,
		"watch_percentage": 95.0,
	}
	rec := ts.do(t, http.MethodPost, "/analytics/event", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	decodeResponse(t, rec, &resp)
	if resp["status"] != "logged" || resp["event"] != "play_end" {
		t.Errorf("response = %v", resp)
	}

	events := ts.exportedEvents(t)
	if len(events) != 1 {
		t.Fatalf("logged %d events", len(events))
	}
	e := events[0]
	if e.EventType != "playback_play_end" {
		t.Errorf("event_type = %q", e.EventType)
	}
	if e.EngagementLevel != models.EngagementCompleted {
		t.Errorf("engagement_level = %q", e.EngagementLevel)
	}
	if e.CompletionRate == nil || *e.CompletionRate != 95.0 {
		t.Errorf("completion_rate = %v", e.CompletionRate)
	}
}

func TestAnalyticsEventRequiresBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/analytics/event", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp errorResponse
	decodeResponse(t, rec, &resp)
	if resp.Error != "No JSON data provided" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestAnalyticsSession(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{
		"device_id":    "device-1",
		"app_version":  "1.0.0",
		"device_model": "Apple TV 4K",
	}
	rec := ts.do(t, http.MethodPost, "/analytics/session", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]string
	decodeResponse(t, rec, &resp)
	if resp["session_id"] == "" || resp["started_at"] == "" {
		t.Errorf("response = %v", resp)
	}

	events := ts.exportedEvents(t)
	if len(events) != 1 || events[0].EventType != models.EventSessionStart {
		t.Fatalf("events = %+v", events)
	}
	if events[0].SessionID != resp["session_id"] {
		t.Error("logged session ID differs from response")
	}
}

func TestAnalyticsStats(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodGet, "/stream/dQw4w9WgXcQ?quality=720&media_id=603&media_type=movie", nil)

	rec := ts.do(t, http.MethodGet, "/analytics/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats models.StatsSummary
	decodeResponse(t, rec, &stats)
	if stats.TotalEvents != 1 {
		t.Errorf("total_events = %d, want 1", stats.TotalEvents)
	}
	if stats.UniqueVideos != 1 || stats.UniqueMedia != 1 {
		t.Errorf("unique counts = %d videos, %d media", stats.UniqueVideos, stats.UniqueMedia)
	}
	if stats.QualitiesRequested["720"] != 1 {
		t.Errorf("qualities_requested = %v", stats.QualitiesRequested)
	}
	if len(stats.HourlyDistribution) != 24 {
		t.Errorf("hourly buckets = %d", len(stats.HourlyDistribution))
	}
}

func TestWatchlistFlow(t *testing.T) {
	ts := newTestServer(t)

	add := map[string]interface{}{
		"media_id":    42,
		"media_type":  "movie",
		"device_id":   "d1",
		"media_title": "Blade Runner",
	}
	rec := ts.do(t, http.MethodPost, "/watchlist/add", add)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var addResp map[string]interface{}
	decodeResponse(t, rec, &addResp)
	if addResp["status"] != "added" {
		t.Errorf("add response = %v", addResp)
	}

	rec = ts.do(t, http.MethodGet, "/watchlist/check/movie/42?device_id=d1", nil)
	var checkResp struct {
		IsOnWatchlist bool `json:"is_on_watchlist"`
	}
	decodeResponse(t, rec, &checkResp)
	if !checkResp.IsOnWatchlist {
		t.Error("item not on watchlist after add")
	}

	rec = ts.do(t, http.MethodGet, "/watchlist/list?device_id=d1", nil)
	var listResp struct {
		TotalItems int                    `json:"total_items"`
		Items      []models.WatchlistItem `json:"items"`
	}
	decodeResponse(t, rec, &listResp)
	if listResp.TotalItems != 1 || listResp.Items[0].MediaTitle != "Blade Runner" {
		t.Errorf("list = %+v", listResp)
	}

	rec = ts.do(t, http.MethodDelete, "/watchlist/movie/42?device_id=d1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/watchlist/list?device_id=d1", nil)
	decodeResponse(t, rec, &listResp)
	if listResp.TotalItems != 0 {
		t.Errorf("list after remove = %+v", listResp)
	}

	// Other devices see nothing.
	rec = ts.do(t, http.MethodGet, "/watchlist/list?device_id=d2", nil)
	decodeResponse(t, rec, &listResp)
	if listResp.TotalItems != 0 {
		t.Errorf("d2 list = %+v", listResp)
	}
}

func TestWatchlistAddValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing device_id", map[string]interface{}{"media_id": 1, "media_type": "movie"}},
		{"bad media_type", map[string]interface{}{"media_id": 1, "media_type": "music", "device_id": "d1"}},
		{"missing media_id", map[string]interface{}{"media_type": "tv", "device_id": "d1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/watchlist/add", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestWatchlistRemoveValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodDelete, "/watchlist/movie/42", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing device_id: status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodDelete, "/watchlist/music/42?device_id=d1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad media_type: status = %d, want 400", rec.Code)
	}
}

func TestClearCache(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodGet, "/stream/dQw4w9WgXcQ", nil)

	rec := ts.do(t, http.MethodGet, "/clear-cache", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	decodeResponse(t, rec, &resp)
	if resp["status"] != "cache cleared" {
		t.Errorf("response = %v", resp)
	}

	ts.do(t, http.MethodGet, "/stream/dQw4w9WgXcQ", nil)
	if ts.stub.calls != 2 {
		t.Errorf("adapter invoked %d times, want 2 after clear", ts.stub.calls)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}
