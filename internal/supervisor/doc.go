// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package supervisor builds the suture supervision tree that keeps the
// HTTP server and background maintenance running, restarting them with
// backoff when they fail.
package supervisor
