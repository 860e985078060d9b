// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

/*
Package cache implements the resolution cache: a thread-safe in-memory
key→(value, insertion time) store with expiry-on-read.

Resolved stream URLs are short-lived upstream, so every entry is valid only
while now − inserted_at < TTL (one hour by default). Expired entries are
treated as absent and deleted when observed; an optional background janitor
sweeps the map for memory bounds, but lazy expiry on Get is the correctness
mechanism.

The cache is process-local and never persisted — a restart starts cold.
The clock is injected so tests can advance time deterministically.

Keys are built with Key(identifier, quality), one entry per
(identifier, quality) pair. Put unconditionally overwrites; failures are
never stored.
*/
package cache
