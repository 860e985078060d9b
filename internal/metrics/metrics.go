// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package metrics provides Prometheus instrumentation for Streamrelay.
//
// Collectors cover:
//   - API endpoint latency and throughput
//   - Resolution cache efficiency
//   - Resolver subprocess outcomes and duration
//   - Event log appends and skipped (malformed) replay lines
//   - Watchlist actions
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamrelay_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamrelay_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Resolution Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamrelay_cache_hits_total",
			Help: "Total number of resolution cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamrelay_cache_misses_total",
			Help: "Total number of resolution cache misses (absent or expired)",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamrelay_cache_evictions_total",
			Help: "Total number of resolution cache evictions (expiry, clear, sweep)",
		},
	)

	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamrelay_cache_entries",
			Help: "Current number of resolution cache entries",
		},
	)

	// Resolver Metrics
	ResolverRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_resolver_requests_total",
			Help: "Total number of resolver invocations",
		},
		[]string{"tier", "outcome"}, // outcome: success, timeout, not_found, adapter_error
	)

	ResolverDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streamrelay_resolver_duration_seconds",
			Help:    "Resolver invocation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	// Event Log Metrics
	EventlogAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_eventlog_appends_total",
			Help: "Total number of records appended per log",
		},
		[]string{"log"},
	)

	EventlogSkippedLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_eventlog_skipped_lines_total",
			Help: "Total number of malformed lines skipped during replay per log",
		},
		[]string{"log"},
	)

	// Watchlist Metrics
	WatchlistActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamrelay_watchlist_actions_total",
			Help: "Total number of recorded watchlist actions",
		},
		[]string{"action"},
	)

	// Analytics Metrics
	StatsComputationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamrelay_stats_computations_total",
			Help: "Total number of full-replay stats computations",
		},
	)
)

// Resolver outcome label values.
const (
	OutcomeSuccess      = "success"
	OutcomeTimeout      = "timeout"
	OutcomeNotFound     = "not_found"
	OutcomeAdapterError = "adapter_error"
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheHit records a resolution cache hit.
func RecordCacheHit() {
	CacheHits.Inc()
}

// RecordCacheMiss records a resolution cache miss.
func RecordCacheMiss() {
	CacheMisses.Inc()
}

// RecordCacheEvictions records n evicted entries.
func RecordCacheEvictions(n int) {
	CacheEvictions.Add(float64(n))
}

// SetCacheSize updates the cache entry gauge.
func SetCacheSize(n int) {
	CacheSize.Set(float64(n))
}

// RecordResolverRequest records a resolver invocation.
func RecordResolverRequest(tier, outcome string, duration time.Duration) {
	ResolverRequestsTotal.WithLabelValues(tier, outcome).Inc()
	ResolverDuration.Observe(duration.Seconds())
}

// RecordEventlogAppend records one appended record for the named log.
func RecordEventlogAppend(log string) {
	EventlogAppendsTotal.WithLabelValues(log).Inc()
}

// RecordEventlogSkippedLine records one malformed replay line for the named log.
func RecordEventlogSkippedLine(log string) {
	EventlogSkippedLines.WithLabelValues(log).Inc()
}

// RecordWatchlistAction records one watchlist add/remove append.
func RecordWatchlistAction(action string) {
	WatchlistActionsTotal.WithLabelValues(action).Inc()
}

// RecordStatsComputation records one full-replay stats computation.
func RecordStatsComputation() {
	StatsComputationsTotal.Inc()
}
