package logger

import (
	"time"

	"igdl/pkg/models"
)

// LogAuth records the outcome of a login attempt. The password never reaches the log.
func LogAuth(l Logger, username string, ok bool, err error) {
	entry := l.WithField("username", username)
	switch {
	case err != nil:
		entry.WithError(err).Error("Login request failed")
	case ok:
		entry.Info("Authenticated")
	default:
		entry.Warn("Login rejected")
	}
}

// LogPage records one fetched page
func LogPage(l Logger, page int, items, dropped int, hasNext bool) {
	l.DebugWithFields("Fetched page", map[string]interface{}{
		"page":     page,
		"items":    items,
		"dropped":  dropped,
		"has_next": hasNext,
	})
}

const captionPreviewLen = 80

// LogDownload records the result of one media download
func LogDownload(l Logger, r models.DownloadResult) {
	fields := map[string]interface{}{
		"shortcode": r.Item.Shortcode,
		"index":     r.Item.Index,
		"video":     r.Item.IsVideo,
		"path":      r.Path,
	}
	if caption := r.Item.CaptionPreview(captionPreviewLen); caption != "" {
		fields["caption"] = caption
	}

	switch {
	case r.Skipped:
		l.DebugWithFields("Already on disk, skipped", fields)
	case r.Success:
		fields["bytes"] = r.Bytes
		fields["duration"] = r.Duration
		l.InfoWithFields("Download completed", fields)
	default:
		l.WithError(r.Err).ErrorWithFields("Download failed", fields)
	}
}

// LogRateLimit records a rate-limit backoff
func LogRateLimit(l Logger, attempt int, wait time.Duration) {
	l.WarnWithFields("Rate limit reached, backing off", map[string]interface{}{
		"attempt": attempt,
		"wait":    wait,
	})
}
