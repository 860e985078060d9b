// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package api provides HTTP routing and handlers over the stream,
// analytics, and watchlist services using the chi router.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/streamrelay/streamrelay/internal/analytics"
	"github.com/streamrelay/streamrelay/internal/logging"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/resolver"
	"github.com/streamrelay/streamrelay/internal/stream"
	"github.com/streamrelay/streamrelay/internal/validation"
	"github.com/streamrelay/streamrelay/internal/watchlist"
)

// ServiceName appears in the service descriptor and startup banner.
const ServiceName = "Streamrelay"

// Handler carries the services behind the HTTP surface.
type Handler struct {
	stream     *stream.Service
	recorder   *analytics.Recorder
	aggregator *analytics.Aggregator
	watchlist  *watchlist.Store
	startedAt  time.Time
}

// NewHandler wires a handler over the given services.
func NewHandler(s *stream.Service, rec *analytics.Recorder, agg *analytics.Aggregator, wl *watchlist.Store) *Handler {
	return &Handler{
		stream:     s,
		recorder:   rec,
		aggregator: agg,
		watchlist:  wl,
		startedAt:  time.Now(),
	}
}

// Index reports the service descriptor and usage hints.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": ServiceName,
		"usage": map[string]string{
			"stream":              "/stream/<video_id>",
			"stream_with_quality": "/stream/<video_id>?quality=720",
			"log_event":           "POST /analytics/event",
			"view_stats":          "/analytics/stats",
		},
		"qualities": []string{"best", "1080", "720", "480", "worst"},
	})
}

// Health reports liveness and uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// streamResponse is the resolved stream plus the cache marker.
type streamResponse struct {
	models.ResolvedMedia
	CacheHit bool `json:"cache_hit"`
}

// Stream resolves a video ID into a direct stream URL and records the
// request (or failure) in the analytics log.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "video_id")
	quality := r.URL.Query().Get("quality")
	if quality == "" {
		quality = "best"
	}

	meta := streamMetaFromQuery(r)

	result, err := h.stream.Resolve(r.Context(), videoID, quality)
	if err != nil {
		var verr *stream.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}

		message := resolutionErrorMessage(err)
		failure := models.EventRecord{
			VideoID:          videoID,
			QualityRequested: quality,
			Error:            message,
			MediaID:          meta.MediaID,
			MediaType:        meta.MediaType,
			MediaTitle:       meta.MediaTitle,
		}
		if recErr := h.recorder.Record(models.EventStreamError, clientIP(r), failure); recErr != nil {
			logging.Error().Err(recErr).Msg("Failed to record stream error event")
		}
		respondError(w, http.StatusInternalServerError, message)
		return
	}

	event := meta
	event.VideoID = videoID
	event.QualityRequested = quality
	event.QualityDelivered = &result.Media.Quality
	event.VideoTitle = result.Media.Title
	event.VideoDuration = result.Media.Duration
	event.VideoChannel = result.Media.Channel
	event.VideoViewCount = result.Media.ViewCount
	event.VideoUploadDate = result.Media.UploadDate
	event.CacheHit = &result.CacheHit
	if err := h.recorder.Record(models.EventStreamRequest, clientIP(r), event); err != nil {
		logging.Error().Err(err).Msg("Failed to record stream request event")
	}

	respondJSON(w, http.StatusOK, streamResponse{
		ResolvedMedia: result.Media,
		CacheHit:      result.CacheHit,
	})
}

// streamMetaFromQuery parses the optional analytics query parameters the
// client attaches to stream requests.
func streamMetaFromQuery(r *http.Request) models.EventRecord {
	q := r.URL.Query()
	return models.EventRecord{
		SessionID:     q.Get("session_id"),
		MediaID:       models.FlexString(q.Get("media_id")),
		MediaType:     q.Get("media_type"),
		MediaTitle:    q.Get("media_title"),
		MediaYear:     intParam(r, "media_year"),
		MediaGenres:   models.ParseStringList(q.Get("media_genres")),
		MediaRating:   floatParam(r, "media_rating"),
		TrailerType:   q.Get("trailer_type"),
		TrailerName:   q.Get("trailer_name"),
		IsOfficial:    boolParam(r, "is_official"),
		TrailerIndex:  intParam(r, "trailer_index"),
		TotalTrailers: intParam(r, "total_trailers"),
	}
}

// resolutionErrorMessage maps resolution failures to the messages the
// client displays.
func resolutionErrorMessage(err error) string {
	var timeoutErr *resolver.TimeoutError
	var notFoundErr *resolver.NotFoundError
	var adapterErr *resolver.AdapterError
	switch {
	case errors.As(err, &timeoutErr):
		return "Request timed out"
	case errors.As(err, &notFoundErr):
		return "No video URL found"
	case errors.As(err, &adapterErr):
		return adapterErr.Reason
	default:
		return err.Error()
	}
}

// playbackEventRequest is the POST /analytics/event body: the event name
// plus any playback metadata the client attaches.
type playbackEventRequest struct {
	Event string `json:"event"`
	models.EventRecord
}

// AnalyticsEvent records one playback event with engagement enrichment.
func (h *Handler) AnalyticsEvent(w http.ResponseWriter, r *http.Request) {
	var req playbackEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	eventName := req.Event
	if eventName == "" {
		eventName = "unknown"
	}

	if err := h.recorder.RecordPlayback(eventName, clientIP(r), req.EventRecord); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "logged",
		"event":  eventName,
	})
}

// sessionRequest is the POST /analytics/session body.
type sessionRequest struct {
	DeviceID    string `json:"device_id"`
	AppVersion  string `json:"app_version"`
	OSVersion   string `json:"os_version"`
	DeviceModel string `json:"device_model"`
}

// AnalyticsSession registers a new viewing session. An empty body is
// accepted; every field is optional.
func (h *Handler) AnalyticsSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	body, err := io.ReadAll(r.Body)
	if err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	sessionID, startedAt, err := h.recorder.StartSession(clientIP(r), models.EventRecord{
		DeviceID:    req.DeviceID,
		AppVersion:  req.AppVersion,
		OSVersion:   req.OSVersion,
		DeviceModel: req.DeviceModel,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"started_at": startedAt,
	})
}

// AnalyticsStats computes the aggregate summary by full log replay.
func (h *Handler) AnalyticsStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.aggregator.ComputeStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// AnalyticsExport dumps every recorded event in append order.
func (h *Handler) AnalyticsExport(w http.ResponseWriter, r *http.Request) {
	events, err := h.aggregator.ExportAll()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []models.EventRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_events": len(events),
		"exported_at":  time.Now().Format(time.RFC3339),
		"events":       events,
	})
}

// watchlistAddRequest is the POST /watchlist/add body.
type watchlistAddRequest struct {
	MediaID    models.FlexString `json:"media_id" validate:"required"`
	MediaType  string            `json:"media_type" validate:"required,oneof=movie tv"`
	DeviceID   string            `json:"device_id" validate:"required"`
	MediaTitle string            `json:"media_title"`
}

// WatchlistAdd appends an add action for the device.
func (h *Handler) WatchlistAdd(w http.ResponseWriter, r *http.Request) {
	var req watchlistAddRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.watchlist.RecordAction(models.ActionAdd, clientIP(r), models.WatchlistRecord{
		DeviceID:   req.DeviceID,
		MediaType:  req.MediaType,
		MediaID:    req.MediaID,
		MediaTitle: req.MediaTitle,
	})
	if err != nil {
		respondWatchlistError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "added",
		"media_id":   req.MediaID,
		"media_type": req.MediaType,
	})
}

// WatchlistRemove appends a remove action for the device.
func (h *Handler) WatchlistRemove(w http.ResponseWriter, r *http.Request) {
	mediaType := chi.URLParam(r, "media_type")
	mediaID := chi.URLParam(r, "media_id")

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		respondError(w, http.StatusBadRequest, "device_id query parameter required")
		return
	}
	if !models.ValidMediaType(mediaType) {
		respondError(w, http.StatusBadRequest, "media_type must be 'movie' or 'tv'")
		return
	}

	err := h.watchlist.RecordAction(models.ActionRemove, clientIP(r), models.WatchlistRecord{
		DeviceID:  deviceID,
		MediaType: mediaType,
		MediaID:   models.FlexString(mediaID),
	})
	if err != nil {
		respondWatchlistError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "removed",
		"media_id":   mediaID,
		"media_type": mediaType,
	})
}

// WatchlistCheck reports whether an item is on the device's watchlist.
func (h *Handler) WatchlistCheck(w http.ResponseWriter, r *http.Request) {
	mediaType := chi.URLParam(r, "media_type")
	mediaID := chi.URLParam(r, "media_id")

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		respondError(w, http.StatusBadRequest, "device_id query parameter required")
		return
	}
	if !models.ValidMediaType(mediaType) {
		respondError(w, http.StatusBadRequest, "media_type must be 'movie' or 'tv'")
		return
	}

	member, err := h.watchlist.IsMember(deviceID, mediaType, mediaID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"is_on_watchlist": member,
		"media_id":        mediaID,
		"media_type":      mediaType,
	})
}

// WatchlistList returns the device's surviving items.
func (h *Handler) WatchlistList(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		respondError(w, http.StatusBadRequest, "device_id query parameter required")
		return
	}

	items, err := h.watchlist.List(deviceID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []models.WatchlistItem{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_items": len(items),
		"device_id":   deviceID,
		"items":       items,
	})
}

// ClearCache empties the resolution cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	stats := h.stream.CacheStats()
	n := h.stream.ClearCache()
	logging.Info().
		Int("entries", n).
		Int64("hits", stats.Hits).
		Int64("misses", stats.Misses).
		Msg("Cache cleared")
	respondJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

// decodeBody reads and decodes a required JSON body, responding with 400
// when it is missing or malformed.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		respondError(w, http.StatusBadRequest, "No JSON data provided")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondError(w, http.StatusBadRequest, "No JSON data provided")
		return false
	}
	return true
}

// respondWatchlistError maps store failures: validation errors are client
// faults, anything else is an append failure.
func respondWatchlistError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
