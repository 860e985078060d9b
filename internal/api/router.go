// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to chi's
// func(http.Handler) http.Handler shape.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router builds the HTTP surface.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a router over the given handler.
func NewRouter(cfg config.ServerConfig, handler *Handler) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all routes and middleware and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(chiMiddleware(middleware.RequestLogger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chiMiddleware(middleware.Compression))

	r.Get("/", router.handler.Index)
	r.Get("/health", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API routes carry per-IP rate limiting and prometheus
	// instrumentation on top of the global stack.
	r.Group(func(r chi.Router) {
		if router.cfg.RateLimitRequests > 0 {
			r.Use(httprate.Limit(
				router.cfg.RateLimitRequests,
				router.cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/stream/{video_id}", router.handler.Stream)
		r.Get("/clear-cache", router.handler.ClearCache)

		r.Route("/analytics", func(r chi.Router) {
			r.Post("/event", router.handler.AnalyticsEvent)
			r.Post("/session", router.handler.AnalyticsSession)
			r.Get("/stats", router.handler.AnalyticsStats)
			r.Get("/export", router.handler.AnalyticsExport)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Post("/add", router.handler.WatchlistAdd)
			r.Delete("/{media_type}/{media_id}", router.handler.WatchlistRemove)
			r.Get("/check/{media_type}/{media_id}", router.handler.WatchlistCheck)
			r.Get("/list", router.handler.WatchlistList)
		})
	})

	return r
}
