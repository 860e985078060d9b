// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package resolver

import "fmt"

// TimeoutError indicates the adapter exceeded its time bound.
type TimeoutError struct {
	ContentID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("resolution timed out for %s", e.ContentID)
}

// NotFoundError indicates the adapter succeeded but produced no usable
// stream URL.
type NotFoundError struct {
	ContentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no stream URL found for %s", e.ContentID)
}

// AdapterError indicates the adapter process itself failed. Reason carries
// the trimmed stderr of the subprocess, or "unknown error" when it wrote
// nothing.
type AdapterError struct {
	ContentID string
	Reason    string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter failed for %s: %s", e.ContentID, e.Reason)
}
