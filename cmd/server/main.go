// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package main is the entry point for the Streamrelay server.
//
// Streamrelay is a self-hosted relay that resolves video identifiers
// into direct stream URLs via yt-dlp, caches them, and records viewing
// analytics and per-device watchlists in append-only JSONL event logs.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from config files and environment (Koanf v2)
//  2. Event logs: append-only analytics and watchlist JSONL files
//  3. Stream service: yt-dlp adapter behind a TTL cache and rate limiter
//  4. HTTP server: chi router with Prometheus metrics at /metrics
//  5. Supervisor tree: suture keeps the server and cache janitor running
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. CONFIG_PATH points at an explicit config file.
//
// Common settings:
//   - HTTP_HOST / HTTP_PORT: listen address (default 0.0.0.0:5000)
//   - YTDLP_PATH: yt-dlp binary (default "yt-dlp" from PATH)
//   - CACHE_TTL: resolved URL lifetime (default 1h)
//   - DATA_DIR: directory holding the JSONL event logs (default ./data)
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests to complete
// (10s timeout), and closes the event logs.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/streamrelay/streamrelay/internal/analytics"
	"github.com/streamrelay/streamrelay/internal/api"
	"github.com/streamrelay/streamrelay/internal/cache"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/eventlog"
	"github.com/streamrelay/streamrelay/internal/logging"
	"github.com/streamrelay/streamrelay/internal/resolver"
	"github.com/streamrelay/streamrelay/internal/stream"
	"github.com/streamrelay/streamrelay/internal/supervisor"
	"github.com/streamrelay/streamrelay/internal/supervisor/services"
	"github.com/streamrelay/streamrelay/internal/watchlist"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Streamrelay with supervisor tree")
	logging.Info().
		Str("data_dir", cfg.Storage.DataDir).
		Str("ytdlp_path", cfg.Resolver.Path).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("Configuration loaded")

	// Open the append-only event logs
	analyticsLog, err := eventlog.Open("analytics", cfg.Storage.AnalyticsPath())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open analytics log")
	}
	defer func() {
		if err := analyticsLog.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing analytics log")
		}
	}()

	watchlistLog, err := eventlog.Open("watchlist", cfg.Storage.WatchlistPath())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open watchlist log")
	}
	defer func() {
		if err := watchlistLog.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing watchlist log")
		}
	}()

	// Stream resolution: yt-dlp adapter behind a TTL cache and an
	// outbound rate limiter.
	urlCache := cache.New(cfg.Cache.TTL)
	adapter := resolver.NewYtDlp(cfg.Resolver.Path, cfg.Resolver.BaseURL)
	limiter := rate.NewLimiter(rate.Limit(cfg.Resolver.RateLimitRPS), cfg.Resolver.RateLimitBurst)
	streamSvc := stream.NewService(urlCache, adapter, limiter, cfg.Resolver.Timeout)

	handler := api.NewHandler(
		streamSvc,
		analytics.NewRecorder(analyticsLog),
		analytics.NewAggregator(analyticsLog),
		watchlist.New(watchlistLog),
	)
	router := api.NewRouter(cfg.Server, handler)

	addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprintf("%d", cfg.Server.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddMaintenanceService(services.NewCacheJanitorService(urlCache, cfg.Cache.CleanupInterval))

	printBanner(cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// printBanner writes the startup summary to stdout so LAN clients can
// find the server without reading logs.
func printBanner(cfg *config.Config) {
	fmt.Printf("🚀 %s starting...\n", api.ServiceName)
	fmt.Printf("📱 Access from your network: http://%s:%d\n", localIP(), cfg.Server.Port)
	fmt.Printf("📊 Analytics log: %s\n", cfg.Storage.AnalyticsPath())
	fmt.Printf("📋 Watchlist log: %s\n", cfg.Storage.WatchlistPath())
}

// localIP reports the machine's outbound LAN address. Dialing UDP does
// not send packets; it only asks the kernel which interface would route
// to the target.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
