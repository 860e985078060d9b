// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

/*
Package models defines the wire and log records shared across Streamrelay.

This package contains:
  - EventRecord: the single flat record type appended to the analytics log
    (stream requests, playback events, session starts)
  - WatchlistRecord: the action record appended to the watchlist log
  - ResolvedMedia: an immutable resolved-stream descriptor
  - StatsSummary: the aggregate shape returned by the analytics endpoint
  - Flexible JSON scalars (FlexString, StringList) that tolerate the loose
    types clients send (numeric IDs, comma-delimited genre strings)

All payloads are typed tagged records with named optional fields. Optional
fields use pointers or omitempty so absent values never appear on the wire.
Log records are append-only: once written they are never mutated.
*/
package models
