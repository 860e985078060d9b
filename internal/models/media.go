// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package models

// ResolvedMedia describes a successfully resolved stream. It is immutable
// once produced: the cache stores it by value and handlers never modify it.
type ResolvedMedia struct {
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Duration   *float64 `json:"duration,omitempty"`
	Thumbnail  string   `json:"thumbnail,omitempty"`
	Quality    int      `json:"quality"` // delivered height in pixels, 0 if unreported
	Channel    string   `json:"channel,omitempty"`
	ViewCount  *int64   `json:"view_count,omitempty"`
	LikeCount  *int64   `json:"like_count,omitempty"`
	UploadDate string   `json:"upload_date,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// MediaType constants for watchlist-able media.
const (
	// MediaTypeMovie indicates a movie.
	MediaTypeMovie = "movie"
	// MediaTypeTV indicates a TV show.
	MediaTypeTV = "tv"
)

// ValidMediaType reports whether t is one of the accepted media types.
func ValidMediaType(t string) bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}
