package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"igdl/pkg/models"
	"igdl/pkg/scraper"
)

func TestProgressHandle(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)

	p.Handle(scraper.Event{Type: scraper.EventLog, Level: scraper.LevelInfo, Message: "Logging in as me"})
	p.Handle(scraper.Event{Type: scraper.EventItem, Result: &models.DownloadResult{
		Item: models.MediaItem{Shortcode: "A", Caption: "Pier at dusk\n#sunset"},
		Path: "downloads/alice/instagram_A_20231114_221320.jpg", Success: true, Bytes: 2048, Duration: 20 * time.Millisecond,
	}})
	p.Handle(scraper.Event{Type: scraper.EventItem, Result: &models.DownloadResult{
		Path: "downloads/alice/instagram_B_20231114_221320.jpg", Success: true, Skipped: true,
	}})
	p.Handle(scraper.Event{Type: scraper.EventItem, Result: &models.DownloadResult{
		Item: models.MediaItem{Shortcode: "C"}, Err: errors.New("boom"),
	}})
	p.Handle(scraper.Event{Type: scraper.EventDone, Summary: &scraper.Summary{
		Found: 3, Downloaded: 1, Skipped: 1, Failed: 1,
	}})

	out := buf.String()
	assert.Contains(t, out, "Logging in as me")
	assert.Contains(t, out, "instagram_A_20231114_221320.jpg")
	assert.Contains(t, out, "2.0 KB")
	assert.Contains(t, out, `"Pier at dusk"`)
	assert.NotContains(t, out, "#sunset")
	assert.Contains(t, out, "(exists)")
	assert.Contains(t, out, "C: boom")
	assert.Contains(t, out, "Successfully downloaded 2 files")
	assert.Contains(t, out, "found 3 • downloaded 1 • skipped 1 • failed 1")

	done, failed := p.Counts()
	assert.Equal(t, 2, done)
	assert.Equal(t, 1, failed)
}

func TestProgressDoneWithError(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, false)

	p.Handle(scraper.Event{Type: scraper.EventDone, Err: errors.New("login failed")})
	assert.NotContains(t, buf.String(), "Successfully")
}

func TestProgressHidesCaptionOutsideDebug(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, false)

	p.Handle(scraper.Event{Type: scraper.EventItem, Result: &models.DownloadResult{
		Item: models.MediaItem{Shortcode: "A", Caption: "Pier at dusk"},
		Path: "downloads/alice/instagram_A_20231114_221320.jpg", Success: true,
	}})
	assert.Contains(t, buf.String(), "instagram_A_20231114_221320.jpg")
	assert.NotContains(t, buf.String(), "Pier at dusk")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 MB", FormatBytes(1536*1024))
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h1m", FormatDuration(61*time.Minute))
}
