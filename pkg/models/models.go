// Package models holds the domain types shared between fetchers, the
// downloader and the orchestration layer.
package models

import (
	"strings"
	"time"
)

// MediaItem is one downloadable media asset. Carousel children carry their
// 1-based position in Index and share the parent's shortcode, timestamp and
// caption; single posts have Index 0.
type MediaItem struct {
	Shortcode  string    `json:"shortcode"`
	URL        string    `json:"url"`
	IsVideo    bool      `json:"is_video"`
	CapturedAt time.Time `json:"captured_at"`
	Caption    string    `json:"caption,omitempty"`
	Index      int       `json:"index,omitempty"`
}

// Extension returns the on-disk file extension for the item
func (m MediaItem) Extension() string {
	if m.IsVideo {
		return "mp4"
	}
	return "jpg"
}

// CaptionPreview returns the first line of the caption cut to max runes
func (m MediaItem) CaptionPreview(max int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(m.Caption), "\n")
	line = strings.TrimSpace(line)
	runes := []rune(line)
	if max <= 0 || len(runes) <= max {
		return line
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// DownloadResult is the outcome of downloading a single MediaItem
type DownloadResult struct {
	Item     MediaItem
	Path     string
	Success  bool
	Skipped  bool
	Err      error
	Bytes    int64
	Duration time.Duration
}
