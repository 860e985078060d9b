// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package config loads and validates application configuration from
// defaults, an optional YAML file, and environment variables, in that
// order of precedence (env highest). Config is immutable after Load and
// safe for concurrent reads.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Cache    CacheConfig    `koanf:"cache"`
	Resolver ResolverConfig `koanf:"resolver"`
	Storage  StorageConfig  `koanf:"storage"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// CacheConfig configures the resolution cache.
type CacheConfig struct {
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// ResolverConfig configures the stream resolver adapter.
type ResolverConfig struct {
	Path           string        `koanf:"path"`
	Timeout        time.Duration `koanf:"timeout"`
	BaseURL        string        `koanf:"base_url"`
	RateLimitRPS   float64       `koanf:"rate_limit_rps"`
	RateLimitBurst int           `koanf:"rate_limit_burst"`
}

// StorageConfig locates the append-only logs.
type StorageConfig struct {
	DataDir       string `koanf:"data_dir"`
	AnalyticsFile string `koanf:"analytics_file"`
	WatchlistFile string `koanf:"watchlist_file"`
}

// AnalyticsPath returns the full path of the analytics log.
func (s StorageConfig) AnalyticsPath() string {
	return filepath.Join(s.DataDir, s.AnalyticsFile)
}

// WatchlistPath returns the full path of the watchlist log.
func (s StorageConfig) WatchlistPath() string {
	return filepath.Join(s.DataDir, s.WatchlistFile)
}

// Validate checks the loaded configuration for values that would fail at
// runtime. Called by Load; exported for tests.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("server.rate_limit_requests must not be negative, got %d", c.Server.RateLimitRequests)
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of trace/debug/info/warn/error/fatal, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.CleanupInterval <= 0 {
		return fmt.Errorf("cache.cleanup_interval must be positive, got %s", c.Cache.CleanupInterval)
	}
	if c.Resolver.Timeout <= 0 {
		return fmt.Errorf("resolver.timeout must be positive, got %s", c.Resolver.Timeout)
	}
	if c.Resolver.RateLimitRPS <= 0 {
		return fmt.Errorf("resolver.rate_limit_rps must be positive, got %g", c.Resolver.RateLimitRPS)
	}
	if c.Resolver.RateLimitBurst < 1 {
		return fmt.Errorf("resolver.rate_limit_burst must be at least 1, got %d", c.Resolver.RateLimitBurst)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if c.Storage.AnalyticsFile == "" || c.Storage.WatchlistFile == "" {
		return fmt.Errorf("storage log file names must not be empty")
	}
	return nil
}
