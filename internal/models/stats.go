// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package models

import "strconv"

// StatsSummary is the aggregate shape computed by a full replay of the
// analytics log. Unique counters are final cardinalities of deduplicating
// sets built during the fold.
type StatsSummary struct {
	TotalEvents        int            `json:"total_events"`
	UniqueVideos       int            `json:"unique_videos"`
	UniqueMedia        int            `json:"unique_media"`
	EventsByType       map[string]int `json:"events_by_type"`
	EngagementLevels   map[string]int `json:"engagement_levels"`
	GenresWatched      map[string]int `json:"genres_watched"`
	MediaTypes         map[string]int `json:"media_types"`
	QualitiesRequested map[string]int `json:"qualities_requested"`
	HourlyDistribution map[string]int `json:"hourly_distribution"`
	DailyDistribution  map[string]int `json:"daily_distribution"`
}

// NewStatsSummary returns a summary with every map initialized. The media
// type counters are pre-seeded with the accepted types and the hourly
// histogram with all 24 buckets, so empty logs still report full shapes.
func NewStatsSummary() *StatsSummary {
	hourly := make(map[string]int, 24)
	for h := 0; h < 24; h++ {
		hourly[strconv.Itoa(h)] = 0
	}
	return &StatsSummary{
		EventsByType:       make(map[string]int),
		EngagementLevels:   make(map[string]int),
		GenresWatched:      make(map[string]int),
		MediaTypes:         map[string]int{MediaTypeMovie: 0, MediaTypeTV: 0},
		QualitiesRequested: make(map[string]int),
		HourlyDistribution: hourly,
		DailyDistribution:  make(map[string]int),
	}
}
