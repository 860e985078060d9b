// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package models

import (
	"math"
	"time"
)

// EventRecord is the single flat record type appended to the analytics log.
// Every line carries the envelope fields; the remaining fields are set per
// event kind (stream request, playback event, session start) and omitted
// from the wire when empty. Records are append-only and never mutated.
type EventRecord struct {
	// Envelope, stamped by the recorder at append time.
	Timestamp     string  `json:"timestamp"`
	TimestampUnix float64 `json:"timestamp_unix"`
	EventType     string  `json:"event_type"`
	DayOfWeek     string  `json:"day_of_week,omitempty"`
	HourOfDay     *int    `json:"hour_of_day,omitempty"`
	SourceIP      string  `json:"source_ip,omitempty"`

	// Stream resolution fields.
	VideoID          string   `json:"video_id,omitempty"`
	QualityRequested string   `json:"quality_requested,omitempty"`
	QualityDelivered *int     `json:"quality_delivered,omitempty"`
	VideoTitle       string   `json:"video_title,omitempty"`
	VideoDuration    *float64 `json:"video_duration,omitempty"`
	VideoChannel     string   `json:"video_channel,omitempty"`
	VideoViewCount   *int64   `json:"video_view_count,omitempty"`
	VideoUploadDate  string   `json:"video_upload_date,omitempty"`
	CacheHit         *bool    `json:"cache_hit,omitempty"`
	Error            string   `json:"error,omitempty"`

	// App-supplied media metadata.
	SessionID     string     `json:"session_id,omitempty"`
	MediaID       FlexString `json:"media_id,omitempty"`
	MediaType     string     `json:"media_type,omitempty"`
	MediaTitle    string     `json:"media_title,omitempty"`
	MediaYear     *int       `json:"media_year,omitempty"`
	MediaGenres   StringList `json:"media_genres,omitempty"`
	MediaRating   *float64   `json:"media_rating,omitempty"`
	TrailerType   string     `json:"trailer_type,omitempty"`
	TrailerName   string     `json:"trailer_name,omitempty"`
	IsOfficial    *bool      `json:"is_official,omitempty"`
	TrailerIndex  *int       `json:"trailer_index,omitempty"`
	TotalTrailers *int       `json:"total_trailers,omitempty"`

	// Playback engagement fields.
	WatchTime        *float64   `json:"watch_time,omitempty"`
	WatchPercentage  *float64   `json:"watch_percentage,omitempty"`
	PlaybackPosition *float64   `json:"playback_position,omitempty"`
	Quality          FlexString `json:"quality,omitempty"`
	Volume           *float64   `json:"volume,omitempty"`
	PlaybackRate     *float64   `json:"playback_rate,omitempty"`
	CompletionRate   *float64   `json:"completion_rate,omitempty"`
	EngagementLevel  string     `json:"engagement_level,omitempty"`

	// Session fields.
	DeviceID    string `json:"device_id,omitempty"`
	AppVersion  string `json:"app_version,omitempty"`
	OSVersion   string `json:"os_version,omitempty"`
	DeviceModel string `json:"device_model,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
}

// StampEnvelope fills the envelope fields from the given wall-clock time.
func (e *EventRecord) StampEnvelope(eventType string, now time.Time, sourceIP string) {
	hour := now.Hour()
	e.Timestamp = now.Format(time.RFC3339)
	e.TimestampUnix = float64(now.UnixNano()) / float64(time.Second)
	e.EventType = eventType
	e.DayOfWeek = now.Weekday().String()
	e.HourOfDay = &hour
	e.SourceIP = sourceIP
}

// Event type constants.
const (
	// EventSessionStart is appended when a client registers a viewing session.
	EventSessionStart = "session_start"
	// EventStreamRequest is appended on every successful stream resolution,
	// cache hits included.
	EventStreamRequest = "stream_request"
	// EventStreamError is appended when stream resolution fails.
	EventStreamError = "stream_error"
	// PlaybackEventPrefix prefixes client playback event names
	// (playback_play_start, playback_skip, ...).
	PlaybackEventPrefix = "playback_"
)

// Engagement level constants, ordered from most to least engaged.
const (
	EngagementCompleted = "completed"
	EngagementHigh      = "high"
	EngagementMedium    = "medium"
	EngagementLow       = "low"
	EngagementSkipped   = "skipped"
)

// ClassifyEngagement buckets a watch percentage into an engagement level.
// Boundary values map to the higher bucket (exactly 90 is "completed").
func ClassifyEngagement(watchPercentage float64) string {
	switch {
	case watchPercentage >= 90:
		return EngagementCompleted
	case watchPercentage >= 50:
		return EngagementHigh
	case watchPercentage >= 25:
		return EngagementMedium
	case watchPercentage >= 10:
		return EngagementLow
	default:
		return EngagementSkipped
	}
}

// CompletionRate computes watch time over video duration as a percentage
// rounded to two decimals.
func CompletionRate(watchTime, videoDuration float64) float64 {
	return math.Round(watchTime/videoDuration*100*100) / 100
}

// ValidationError reports a malformed or missing field on client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
