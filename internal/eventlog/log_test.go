// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type testRecord struct {
	Seq  int    `json:"seq"`
	Name string `json:"name"`
}

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open("test", filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func replayAll(t *testing.T, l *Log) []testRecord {
	t.Helper()
	var records []testRecord
	err := l.Replay(func(line []byte) bool {
		var rec testRecord
		if l.DecodeLine(line, &rec) {
			records = append(records, rec)
		}
		return true
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	return records
}

func TestAppendReplayRoundTrip(t *testing.T) {
	l := openTestLog(t)

	const n = 25
	for i := 0; i < n; i++ {
		if err := l.Append(testRecord{Seq: i, Name: fmt.Sprintf("rec-%d", i)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records := replayAll(t, l)
	if len(records) != n {
		t.Fatalf("replayed %d records, want %d", len(records), n)
	}
	for i, rec := range records {
		if rec.Seq != i {
			t.Errorf("record %d has seq %d, want %d (replay order must equal append order)", i, rec.Seq, i)
		}
	}
}

func TestReplayIsRestartable(t *testing.T) {
	l := openTestLog(t)

	for i := 0; i < 5; i++ {
		if err := l.Append(testRecord{Seq: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	first := replayAll(t, l)
	second := replayAll(t, l)

	if len(first) != len(second) {
		t.Fatalf("replays differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("replay %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestReplayMissingFile(t *testing.T) {
	l := &Log{name: "test", path: filepath.Join(t.TempDir(), "does-not-exist.jsonl")}

	count := 0
	err := l.Replay(func(line []byte) bool {
		count++
		return true
	})
	if err != nil {
		t.Fatalf("replay of missing file: %v", err)
	}
	if count != 0 {
		t.Errorf("replayed %d records from missing file, want 0", count)
	}
}

func TestMalformedLineSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	content := `{"seq": 0, "name": "good"}
{this is not json
{"seq": 2, "name": "also good"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l, err := Open("test", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	records := replayAll(t, l)
	if len(records) != 2 {
		t.Fatalf("replayed %d records, want 2 (malformed line skipped)", len(records))
	}
	if records[0].Seq != 0 || records[1].Seq != 2 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestReplayEarlyStop(t *testing.T) {
	l := openTestLog(t)

	for i := 0; i < 10; i++ {
		if err := l.Append(testRecord{Seq: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	count := 0
	err := l.Replay(func(line []byte) bool {
		count++
		return count < 3
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if count != 3 {
		t.Errorf("scanned %d lines, want 3", count)
	}
}

func TestConcurrentAppendsNeverTearLines(t *testing.T) {
	l := openTestLog(t)

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := l.Append(testRecord{Seq: w*perWriter + i, Name: "writer"}); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	records := replayAll(t, l)
	if len(records) != writers*perWriter {
		t.Fatalf("replayed %d records, want %d (no torn or lost lines)", len(records), writers*perWriter)
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	l := openTestLog(t)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Append(testRecord{Seq: 1}); err == nil {
		t.Error("append after close should fail")
	}
}

func BenchmarkAppend(b *testing.B) {
	l, err := Open("bench", filepath.Join(b.TempDir(), "events.jsonl"))
	if err != nil {
		b.Fatalf("open: %v", err)
	}
	defer l.Close()

	rec := testRecord{Seq: 1, Name: "bench"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := l.Append(rec); err != nil {
			b.Fatal(err)
		}
	}
}
