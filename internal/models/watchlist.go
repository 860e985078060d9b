// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package models

import "time"

// Watchlist action constants.
const (
	// ActionAdd puts an item on the watchlist.
	ActionAdd = "add"
	// ActionRemove takes an item off the watchlist.
	ActionRemove = "remove"
)

// WatchlistRecord is one line of the watchlist action log. The tuple
// (media_type, media_id) identifies the item; membership is derived by
// folding these records in append order, never stored separately.
type WatchlistRecord struct {
	Timestamp     string     `json:"timestamp"`
	TimestampUnix float64    `json:"timestamp_unix"`
	Action        string     `json:"action"`
	SourceIP      string     `json:"source_ip,omitempty"`
	DeviceID      string     `json:"device_id"`
	MediaType     string     `json:"media_type"`
	MediaID       FlexString `json:"media_id"`
	MediaTitle    string     `json:"media_title,omitempty"`
}

// Stamp fills the timestamp fields from the given wall-clock time.
func (r *WatchlistRecord) Stamp(now time.Time) {
	r.Timestamp = now.Format(time.RFC3339)
	r.TimestampUnix = float64(now.UnixNano()) / float64(time.Second)
}

// Key returns the media key identifying this record's item.
func (r *WatchlistRecord) Key() string {
	return MediaKey(r.MediaType, string(r.MediaID))
}

// MediaKey builds the composite key for a watchlist-able item.
func MediaKey(mediaType, mediaID string) string {
	return mediaType + "_" + mediaID
}

// Validate checks the required fields before any append happens.
func (r *WatchlistRecord) Validate() error {
	if r.Action != ActionAdd && r.Action != ActionRemove {
		return &ValidationError{Field: "action", Message: "must be 'add' or 'remove'"}
	}
	if r.DeviceID == "" {
		return &ValidationError{Field: "device_id", Message: "required"}
	}
	if !ValidMediaType(r.MediaType) {
		return &ValidationError{Field: "media_type", Message: "must be 'movie' or 'tv'"}
	}
	if r.MediaID == "" {
		return &ValidationError{Field: "media_id", Message: "required"}
	}
	return nil
}

// WatchlistItem is the caller-facing shape of one surviving watchlist entry.
type WatchlistItem struct {
	MediaID    FlexString `json:"media_id"`
	MediaType  string     `json:"media_type"`
	MediaTitle string     `json:"media_title"`
	AddedAt    string     `json:"added_at"`
}
