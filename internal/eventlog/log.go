// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package eventlog implements the append-only JSONL log that is the sole
// durable owner of Streamrelay history.
//
// A Log serializes one record per line and appends it with a single write
// under a writer mutex, so concurrent appends never interleave partial
// lines. Replay is a full, independent scan from the start of the file on
// every call — there is no cursor state and no tailing mode. A reader may
// observe a prefix of an in-flight append but never a torn line.
//
// Records are never rewritten or deleted; replay order equals append order.
// Malformed lines encountered during replay are skipped, debug-logged, and
// counted, never fatal.
package eventlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/streamrelay/streamrelay/internal/logging"
	"github.com/streamrelay/streamrelay/internal/metrics"
)

// maxLineSize bounds a single replayed line (export events carry full
// payloads, but nowhere near this).
const maxLineSize = 1 << 20

// Log is an append-only line-delimited JSON file.
type Log struct {
	name string // metric/log label, e.g. "analytics" or "watchlist"
	path string

	mu sync.Mutex // serializes appends
	f  *os.File
}

// Open creates the parent directory if needed and opens the log file for
// appending. The file is created on first use.
func Open(name, path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	return &Log{name: name, path: path, f: f}, nil
}

// Name returns the log's label.
func (l *Log) Name() string {
	return l.name
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

// Close closes the append handle. Replays remain possible.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// Append serializes record to one line and appends it. The line is written
// with a single Write call under the writer mutex, so concurrent appends
// from multiple requests never produce partial lines.
func (l *Log) Append(record interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return fmt.Errorf("log %s is closed", l.name)
	}
	if _, err := l.f.Write(data); err != nil {
		return fmt.Errorf("append to %s: %w", l.path, err)
	}

	metrics.RecordEventlogAppend(l.name)
	return nil
}

// Replay scans the file start to end and calls fn once per line. Returning
// false from fn stops the scan early. Every call is a fresh, independent
// read; a missing file replays zero records.
func (l *Log) Replay(fn func(line []byte) bool) error {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s for replay: %w", l.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if !fn(line) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", l.path, err)
	}
	return nil
}

// DecodeLine unmarshals one replayed line into v. A line that fails to
// decode is counted, debug-logged, and reported as false so the caller can
// skip it and continue — a single bad line is never fatal.
func (l *Log) DecodeLine(line []byte, v interface{}) bool {
	if err := json.Unmarshal(line, v); err != nil {
		metrics.RecordEventlogSkippedLine(l.name)
		logging.Debug().Str("log", l.name).Err(err).Msg("Skipping malformed log line")
		return false
	}
	return true
}
