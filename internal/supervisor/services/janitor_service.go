// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package services

import (
	"context"
	"time"

	"github.com/streamrelay/streamrelay/internal/cache"
)

// CacheJanitorService runs the cache's periodic expiry sweep under
// supervision. Serve blocks until the context is canceled, so suture
// only restarts it if the sweep loop panics.
type CacheJanitorService struct {
	cache    *cache.Cache
	interval time.Duration
}

// NewCacheJanitorService wraps the cache sweep loop as a suture service.
func NewCacheJanitorService(c *cache.Cache, interval time.Duration) *CacheJanitorService {
	return &CacheJanitorService{cache: c, interval: interval}
}

// Serve implements suture.Service.
func (s *CacheJanitorService) Serve(ctx context.Context) error {
	s.cache.Janitor(ctx, s.interval)
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *CacheJanitorService) String() string {
	return "cache-janitor"
}
