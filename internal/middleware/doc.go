// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package middleware provides HTTP middleware as http.HandlerFunc
// wrappers: request ID propagation, Prometheus instrumentation, and gzip
// response compression. The router adapts them to chi's middleware shape.
package middleware
