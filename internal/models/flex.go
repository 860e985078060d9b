// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

package models

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// FlexString is a string that also accepts a JSON number on input.
// Clients send media IDs both ways ("42" and 42); both normalize to "42".
// It always marshals back as a plain JSON string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}

	// Numeric form. Integers keep their exact representation; floats are
	// formatted with the shortest round-trip form.
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = FlexString(num.String())
	return nil
}

// String returns the normalized string value.
func (s FlexString) String() string {
	return string(s)
}

// StringList is a list of trimmed tokens that also accepts a single
// comma-delimited JSON string on input ("Action, Adventure" and
// ["Action", "Adventure"] both normalize to the same two tokens).
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raw []string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*l = normalizeTokens(raw)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*l = normalizeTokens(strings.Split(str, ","))
	return nil
}

// normalizeTokens trims whitespace and drops empty entries.
func normalizeTokens(raw []string) StringList {
	tokens := make(StringList, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// ParseStringList normalizes a comma-delimited string into tokens.
// Used when the value arrives as a query parameter rather than JSON.
func ParseStringList(s string) StringList {
	if s == "" {
		return nil
	}
	return normalizeTokens(strings.Split(s, ","))
}

// FormatQuality renders a delivered quality for counter keys. Zero means
// the resolver did not report a height.
func FormatQuality(height int) string {
	if height <= 0 {
		return "unknown"
	}
	return strconv.Itoa(height)
}
