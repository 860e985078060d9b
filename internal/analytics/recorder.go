// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package analytics records viewing events to the append-only analytics
// log and computes aggregates by replaying it. Derived fields (engagement
// level, completion rate) are stamped at append time so every consumer
// reads the same values.
package analytics

import (
	"time"

	"github.com/google/uuid"

	"github.com/streamrelay/streamrelay/internal/eventlog"
	"github.com/streamrelay/streamrelay/internal/logging"
	"github.com/streamrelay/streamrelay/internal/models"
)

// Recorder appends stamped event records to the analytics log.
type Recorder struct {
	log *eventlog.Log
	now func() time.Time
}

// NewRecorder creates a recorder over the given log.
func NewRecorder(log *eventlog.Log) *Recorder {
	return &Recorder{log: log, now: time.Now}
}

// WithClock overrides the timestamp source. Tests only.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record stamps the envelope on rec and appends it.
func (r *Recorder) Record(eventType, sourceIP string, rec models.EventRecord) error {
	rec.StampEnvelope(eventType, r.now(), sourceIP)
	if err := r.log.Append(rec); err != nil {
		return err
	}

	subject := rec.VideoID
	if subject == "" {
		subject = rec.MediaTitle
	}
	logging.Debug().Str("event_type", eventType).Str("subject", subject).Msg("Analytics event")
	return nil
}

// RecordPlayback derives engagement fields and appends the event under
// the playback_<name> event type. A missing watch percentage classifies
// as skipped; the completion rate is only computed when both duration and
// watch time are present and non-zero.
func (r *Recorder) RecordPlayback(eventName, sourceIP string, rec models.EventRecord) error {
	if rec.VideoDuration != nil && *rec.VideoDuration != 0 &&
		rec.WatchTime != nil && *rec.WatchTime != 0 {
		cr := models.CompletionRate(*rec.WatchTime, *rec.VideoDuration)
		rec.CompletionRate = &cr
	}

	watchPct := 0.0
	if rec.WatchPercentage != nil {
		watchPct = *rec.WatchPercentage
	}
	rec.EngagementLevel = models.ClassifyEngagement(watchPct)

	return r.Record(models.PlaybackEventPrefix+eventName, sourceIP, rec)
}

// StartSession registers a viewing session: it generates the session ID,
// stamps the start time, and appends a session_start event. Returns the
// generated ID and start timestamp for the response.
func (r *Recorder) StartSession(sourceIP string, rec models.EventRecord) (string, string, error) {
	sessionID := uuid.New().String()
	startedAt := r.now().Format(time.RFC3339)

	rec.SessionID = sessionID
	rec.StartedAt = startedAt

	if err := r.Record(models.EventSessionStart, sourceIP, rec); err != nil {
		return "", "", err
	}
	return sessionID, startedAt, nil
}
