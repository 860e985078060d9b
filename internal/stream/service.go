// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package stream orchestrates stream resolution: identifier validation,
// cache lookup, rate-limited adapter invocation, and candidate selection.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/streamrelay/streamrelay/internal/cache"
	"github.com/streamrelay/streamrelay/internal/logging"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/resolver"
)

// Identifier length bounds. Anything outside is rejected before the cache
// or the adapter is touched.
const (
	MinIdentifierLen = 5
	MaxIdentifierLen = 20
)

// DefaultTimeout bounds a single adapter invocation.
const DefaultTimeout = 30 * time.Second

// ValidationError rejects a malformed resolution request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Result is a completed resolution.
type Result struct {
	Media    models.ResolvedMedia
	CacheHit bool
}

// Service resolves identifiers through a TTL cache backed by a resolver
// adapter. Adapter invocations pass through a rate limiter so subprocess
// spawns stay bounded; the limiter waits rather than rejecting.
type Service struct {
	cache    *cache.Cache
	resolver resolver.Resolver
	limiter  *rate.Limiter
	timeout  time.Duration
}

// NewService wires a stream service. A non-positive timeout falls back to
// DefaultTimeout; a nil limiter means unlimited adapter invocations.
func NewService(c *cache.Cache, r resolver.Resolver, limiter *rate.Limiter, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{cache: c, resolver: r, limiter: limiter, timeout: timeout}
}

// FormatSelector maps a quality tier to the adapter's format selector.
// Accepted tiers are best, 1080, 720 and 480; anything else falls through
// to the worst tier.
func FormatSelector(quality string) string {
	switch quality {
	case "best":
		return "best[ext=mp4]/best"
	case "1080":
		return "best[height<=1080][ext=mp4]/best[height<=1080]/best"
	case "720":
		return "best[height<=720][ext=mp4]/best[height<=720]/best"
	case "480":
		return "best[height<=480][ext=mp4]/best[height<=480]/best"
	default:
		return "worst[ext=mp4]/worst"
	}
}

// Resolve returns the stream for (identifier, quality), consulting the
// cache first. Successful resolutions are cached; failures never are, so
// every failing call re-invokes the adapter.
func (s *Service) Resolve(ctx context.Context, identifier, quality string) (*Result, error) {
	if len(identifier) < MinIdentifierLen || len(identifier) > MaxIdentifierLen {
		return nil, &ValidationError{
			Message: fmt.Sprintf("invalid video ID: length must be between %d and %d characters",
				MinIdentifierLen, MaxIdentifierLen),
		}
	}

	key := cache.Key(identifier, quality)
	if media, ok := s.cache.Get(key); ok {
		logging.Debug().Str("video_id", identifier).Str("quality", quality).Msg("Cache hit")
		return &Result{Media: media, CacheHit: true}, nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &resolver.TimeoutError{ContentID: identifier}
		}
	}

	resolveCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	payload, err := s.resolver.Resolve(resolveCtx, identifier, FormatSelector(quality))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &resolver.TimeoutError{ContentID: identifier}
		}
		metrics.RecordResolverRequest(quality, outcomeFor(err), time.Since(start))
		return nil, err
	}

	url := payload.BestURL()
	if url == "" {
		metrics.RecordResolverRequest(quality, metrics.OutcomeNotFound, time.Since(start))
		return nil, &resolver.NotFoundError{ContentID: identifier}
	}
	metrics.RecordResolverRequest(quality, metrics.OutcomeSuccess, time.Since(start))

	media := payload.ToMedia(url)
	s.cache.Put(key, media)

	logging.Info().
		Str("video_id", identifier).
		Str("quality", models.FormatQuality(media.Quality)).
		Msg("Resolved stream")

	return &Result{Media: media, CacheHit: false}, nil
}

// ClearCache empties the resolution cache and returns how many entries
// were dropped.
func (s *Service) ClearCache() int {
	n := s.cache.Len()
	s.cache.Clear()
	return n
}

// CacheStats exposes the cache's hit/miss/eviction counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.GetStats()
}

func outcomeFor(err error) string {
	var timeoutErr *resolver.TimeoutError
	var notFoundErr *resolver.NotFoundError
	switch {
	case errors.As(err, &timeoutErr):
		return metrics.OutcomeTimeout
	case errors.As(err, &notFoundErr):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeAdapterError
	}
}
