// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package resolver

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/streamrelay/streamrelay/internal/logging"
)

const (
	// DefaultBinary is the yt-dlp executable looked up on PATH when no
	// explicit path is configured.
	DefaultBinary = "yt-dlp"

	// DefaultBaseURL is the watch-page prefix the content ID is appended to.
	DefaultBaseURL = "https://www.youtube.com/watch?v="
)

// YtDlp resolves content by shelling out to the yt-dlp executable.
type YtDlp struct {
	binary  string
	baseURL string
}

// NewYtDlp creates a subprocess-backed resolver. Empty arguments fall back
// to DefaultBinary and DefaultBaseURL.
func NewYtDlp(binary, baseURL string) *YtDlp {
	if binary == "" {
		binary = DefaultBinary
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &YtDlp{binary: binary, baseURL: baseURL}
}

// Resolve runs one yt-dlp invocation and parses its single-line JSON
// output. The subprocess inherits ctx, so cancellation or deadline expiry
// kills it; deadline expiry maps to TimeoutError.
func (y *YtDlp) Resolve(ctx context.Context, contentID, formatSelector string) (*RawPayload, error) {
	cmd := exec.CommandContext(ctx, y.binary,
		"-f", formatSelector,
		"-j",
		"--no-playlist",
		"--no-warnings",
		y.baseURL+contentID,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		logging.Warn().Str("content_id", contentID).Msg("Resolver subprocess timed out")
		return nil, &TimeoutError{ContentID: contentID}
	}
	if err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = "unknown error"
		}
		logging.Error().
			Str("content_id", contentID).
			Str("reason", reason).
			Msg("Resolver subprocess failed")
		return nil, &AdapterError{ContentID: contentID, Reason: reason}
	}

	var payload RawPayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		logging.Error().
			Str("content_id", contentID).
			Err(err).
			Msg("Resolver output could not be parsed")
		return nil, &AdapterError{ContentID: contentID, Reason: "failed to parse video info"}
	}

	return &payload, nil
}
