// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package watchlist derives per-device watchlist membership from the
// append-only action log. Every query replays the whole log; no membership
// state is cached, so the log stays the single source of truth.
package watchlist

import (
	"time"

	"github.com/streamrelay/streamrelay/internal/eventlog"
	"github.com/streamrelay/streamrelay/internal/logging"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
)

// Store records watchlist actions and projects current membership.
type Store struct {
	log *eventlog.Log
	now func() time.Time
}

// New creates a store over the given action log.
func New(log *eventlog.Log) *Store {
	return &Store{log: log, now: time.Now}
}

// WithClock overrides the timestamp source. Tests only.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// RecordAction validates and appends one action. The record is stamped
// here; nothing is appended when validation fails.
func (s *Store) RecordAction(action, sourceIP string, record models.WatchlistRecord) error {
	record.Action = action
	record.SourceIP = sourceIP
	if err := record.Validate(); err != nil {
		return err
	}
	record.Stamp(s.now())

	if err := s.log.Append(record); err != nil {
		return err
	}
	metrics.RecordWatchlistAction(action)

	title := record.MediaTitle
	if title == "" {
		title = string(record.MediaID)
	}
	logging.Info().Str("action", action).Str("media", title).Msg("Watchlist action")
	return nil
}

// CurrentState folds the log for one device into its surviving items,
// keyed by media key. Adds overwrite, removes delete; order of application
// is append order, so the last action on a key wins.
func (s *Store) CurrentState(deviceID string) (map[string]models.WatchlistRecord, error) {
	items := make(map[string]models.WatchlistRecord)

	err := s.log.Replay(func(line []byte) bool {
		var rec models.WatchlistRecord
		if !s.log.DecodeLine(line, &rec) {
			return true
		}
		if rec.DeviceID != deviceID {
			return true
		}
		switch rec.Action {
		case models.ActionAdd:
			items[rec.Key()] = rec
		case models.ActionRemove:
			delete(items, rec.Key())
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// IsMember reports whether (mediaType, mediaID) is currently on the
// device's watchlist.
func (s *Store) IsMember(deviceID, mediaType, mediaID string) (bool, error) {
	items, err := s.CurrentState(deviceID)
	if err != nil {
		return false, err
	}
	_, ok := items[models.MediaKey(mediaType, mediaID)]
	return ok, nil
}

// List returns the device's surviving items in insertion order: an add of
// a new key appends, an add of a present key updates in place, and a
// remove followed by a re-add moves the item to the end. Deterministic for
// a fixed log.
func (s *Store) List(deviceID string) ([]models.WatchlistItem, error) {
	var (
		order []string
		items = make(map[string]models.WatchlistRecord)
	)

	err := s.log.Replay(func(line []byte) bool {
		var rec models.WatchlistRecord
		if !s.log.DecodeLine(line, &rec) {
			return true
		}
		if rec.DeviceID != deviceID {
			return true
		}
		key := rec.Key()
		switch rec.Action {
		case models.ActionAdd:
			if _, ok := items[key]; !ok {
				order = append(order, key)
			}
			items[key] = rec
		case models.ActionRemove:
			if _, ok := items[key]; ok {
				delete(items, key)
				for i, k := range order {
					if k == key {
						order = append(order[:i], order[i+1:]...)
						break
					}
				}
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	var out []models.WatchlistItem
	for _, key := range order {
		rec := items[key]
		out = append(out, models.WatchlistItem{
			MediaID:    rec.MediaID,
			MediaType:  rec.MediaType,
			MediaTitle: rec.MediaTitle,
			AddedAt:    rec.Timestamp,
		})
	}
	return out, nil
}
