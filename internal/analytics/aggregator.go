// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package analytics

import (
	"strconv"

	"github.com/streamrelay/streamrelay/internal/eventlog"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
)

// Aggregator computes read-side views of the analytics log. Every call is
// a full independent replay; nothing is cached between calls.
type Aggregator struct {
	log *eventlog.Log
}

// NewAggregator creates an aggregator over the given log.
func NewAggregator(log *eventlog.Log) *Aggregator {
	return &Aggregator{log: log}
}

// ComputeStats folds the whole log into a summary. Malformed lines are
// skipped; an empty or missing log yields the pre-seeded zero shape.
func (a *Aggregator) ComputeStats() (*models.StatsSummary, error) {
	stats := models.NewStatsSummary()
	uniqueVideos := make(map[string]struct{})
	uniqueMedia := make(map[string]struct{})

	err := a.log.Replay(func(line []byte) bool {
		var rec models.EventRecord
		if !a.log.DecodeLine(line, &rec) {
			return true
		}

		stats.TotalEvents++

		eventType := rec.EventType
		if eventType == "" {
			eventType = "unknown"
		}
		stats.EventsByType[eventType]++

		if rec.VideoID != "" {
			uniqueVideos[rec.VideoID] = struct{}{}
		}
		if rec.MediaID != "" {
			uniqueMedia[models.MediaKey(rec.MediaType, string(rec.MediaID))] = struct{}{}
		}
		if rec.EngagementLevel != "" {
			stats.EngagementLevels[rec.EngagementLevel]++
		}
		for _, genre := range rec.MediaGenres {
			stats.GenresWatched[genre]++
		}
		if _, tracked := stats.MediaTypes[rec.MediaType]; tracked {
			stats.MediaTypes[rec.MediaType]++
		}
		if rec.QualityRequested != "" {
			stats.QualitiesRequested[rec.QualityRequested]++
		}
		if rec.HourOfDay != nil {
			stats.HourlyDistribution[strconv.Itoa(*rec.HourOfDay)]++
		}
		if rec.DayOfWeek != "" {
			stats.DailyDistribution[rec.DayOfWeek]++
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	stats.UniqueVideos = len(uniqueVideos)
	stats.UniqueMedia = len(uniqueMedia)

	metrics.RecordStatsComputation()
	return stats, nil
}

// ExportAll returns every decodable record in append order.
func (a *Aggregator) ExportAll() ([]models.EventRecord, error) {
	var events []models.EventRecord

	err := a.log.Replay(func(line []byte) bool {
		var rec models.EventRecord
		if a.log.DecodeLine(line, &rec) {
			events = append(events, rec)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
