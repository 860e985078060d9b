// Streamrelay - Personal Media Stream Relay and Viewing Analytics
// Copyright 2026 Streamrelay Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamrelay/streamrelay

// Package resolver turns a content identifier into a playable stream URL
// plus metadata. The default implementation shells out to yt-dlp; callers
// depend only on the Resolver interface so tests can substitute a stub.
package resolver

import (
	"context"

	"github.com/streamrelay/streamrelay/internal/models"
)

// Resolver resolves a content identifier into a raw metadata payload using
// the given format selector. Implementations must honor ctx cancellation.
type Resolver interface {
	Resolve(ctx context.Context, contentID, formatSelector string) (*RawPayload, error)
}

// Format is one candidate stream within a payload.
type Format struct {
	URL    string `json:"url"`
	ACodec string `json:"acodec"`
	VCodec string `json:"vcodec"`
	Height int    `json:"height"`
}

// RawPayload is the adapter's JSON output before candidate selection.
// The top-level URL may be empty with candidates carried in
// RequestedFormats instead.
type RawPayload struct {
	URL              string   `json:"url"`
	Title            string   `json:"title"`
	Duration         *float64 `json:"duration"`
	Thumbnail        string   `json:"thumbnail"`
	Height           int      `json:"height"`
	Channel          string   `json:"channel"`
	ViewCount        *int64   `json:"view_count"`
	LikeCount        *int64   `json:"like_count"`
	UploadDate       string   `json:"upload_date"`
	Categories       []string `json:"categories"`
	Tags             []string `json:"tags"`
	RequestedFormats []Format `json:"requested_formats"`
}

// BestURL picks the stream URL from the payload. Order of preference:
// the top-level URL, then the first candidate carrying both audio and
// video codecs, then the first candidate with any URL. Empty result means
// no usable stream.
func (p *RawPayload) BestURL() string {
	if p.URL != "" {
		return p.URL
	}
	for _, f := range p.RequestedFormats {
		if f.ACodec != "none" && f.VCodec != "none" && f.URL != "" {
			return f.URL
		}
	}
	for _, f := range p.RequestedFormats {
		if f.URL != "" {
			return f.URL
		}
	}
	return ""
}

// ToMedia converts the payload into a ResolvedMedia using url as the
// selected stream URL.
func (p *RawPayload) ToMedia(url string) models.ResolvedMedia {
	title := p.Title
	if title == "" {
		title = "Unknown"
	}
	return models.ResolvedMedia{
		URL:        url,
		Title:      title,
		Duration:   p.Duration,
		Thumbnail:  p.Thumbnail,
		Quality:    p.Height,
		Channel:    p.Channel,
		ViewCount:  p.ViewCount,
		LikeCount:  p.LikeCount,
		UploadDate: p.UploadDate,
		Categories: p.Categories,
		Tags:       p.Tags,
	}
}
