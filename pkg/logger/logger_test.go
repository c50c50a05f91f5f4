package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igdl/pkg/config"
	"igdl/pkg/models"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "chatty"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "igdl.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWriterReceivesFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	l.WithField("shortcode", "ABC").Info("Download completed")

	out := buf.String()
	assert.Contains(t, out, "Download completed")
	assert.Contains(t, out, "shortcode")
	assert.Contains(t, out, "ABC")
}

func TestLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("component", "paginator")

	tl.Info("parent")
	child.Info("child")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Empty(t, msgs[0].Fields)
	assert.Equal(t, "paginator", msgs[1].Fields["component"])
}

func TestLogDownload(t *testing.T) {
	tl := NewTestLogger()
	item := models.MediaItem{Shortcode: "XYZ", Index: 2}

	LogDownload(tl, models.DownloadResult{Item: item, Success: true, Bytes: 10, Duration: time.Millisecond})
	LogDownload(tl, models.DownloadResult{Item: item, Success: true, Skipped: true})
	LogDownload(tl, models.DownloadResult{Item: item, Err: errors.New("boom")})

	assert.True(t, tl.HasMessage("Download completed"))
	assert.True(t, tl.HasMessage("Already on disk, skipped"))

	errs := tl.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Fields["error"])
	assert.Equal(t, "XYZ", errs[0].Fields["shortcode"])
	assert.NotContains(t, errs[0].Fields, "caption")
}

func TestLogDownloadIncludesCaption(t *testing.T) {
	tl := NewTestLogger()
	item := models.MediaItem{Shortcode: "XYZ", Caption: "Golden hour at the pier\n#sunset"}

	LogDownload(tl, models.DownloadResult{Item: item, Success: true, Bytes: 10})

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Golden hour at the pier", msgs[0].Fields["caption"])
}

func TestLogAuthNeverLogsPassword(t *testing.T) {
	tl := NewTestLogger()
	LogAuth(tl, "alice", false, nil)

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "WARN", msgs[0].Level)
	assert.NotContains(t, msgs[0].Fields, "password")
}
