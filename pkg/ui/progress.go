package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"igdl/pkg/scraper"
)

// Progress prints scraper task events as plain lines
type Progress struct {
	mu    sync.Mutex
	w     io.Writer
	start time.Time

	done   int
	failed int
	bytes  int64
	debug  bool
}

// NewProgress writes to w; debug also prints per-file sizes and timings
func NewProgress(w io.Writer, debug bool) *Progress {
	return &Progress{w: w, start: time.Now(), debug: debug}
}

// Handle prints one event
func (p *Progress) Handle(ev scraper.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case scraper.EventItem:
		p.item(ev)
	case scraper.EventDone:
		if ev.Err == nil && ev.Summary != nil {
			p.summary(ev.Summary)
		}
	default:
		fmt.Fprintf(p.w, "%s %s\n", levelMark(ev.Level), ev.Message)
	}
}

func (p *Progress) item(ev scraper.Event) {
	r := ev.Result
	if r == nil {
		return
	}

	switch {
	case r.Skipped:
		p.done++
		fmt.Fprintf(p.w, "%s %s %s\n", Dim("="), filepath.Base(r.Path), Dim("(exists)"))
	case r.Success:
		p.done++
		p.bytes += r.Bytes
		line := fmt.Sprintf("%s %s", Green("✓"), filepath.Base(r.Path))
		if p.debug {
			line += Dim(fmt.Sprintf(" • %s • %s", FormatBytes(r.Bytes), FormatDuration(r.Duration)))
			if caption := r.Item.CaptionPreview(60); caption != "" {
				line += Dim(fmt.Sprintf(" • %q", caption))
			}
		}
		fmt.Fprintln(p.w, line)
	default:
		p.failed++
		fmt.Fprintf(p.w, "%s %s: %v\n", Red("✗"), r.Item.Shortcode, r.Err)
	}
}

func (p *Progress) summary(s *scraper.Summary) {
	elapsed := time.Since(p.start)

	fmt.Fprintf(p.w, "\n%s Successfully downloaded %d files\n", Green("✓"), s.Succeeded())
	fmt.Fprintf(p.w, "  %s found %d • downloaded %d • skipped %d • failed %d\n",
		Dim("•"), s.Found, s.Downloaded, s.Skipped, s.Failed)
	fmt.Fprintf(p.w, "  %s %s in %s\n", Dim("•"), FormatBytes(p.bytes), FormatDuration(elapsed))
	if s.Dropped > 0 {
		fmt.Fprintf(p.w, "  %s %d entries had no downloadable media\n", Dim("•"), s.Dropped)
	}
}

// Counts returns the number of finished and failed items seen so far
func (p *Progress) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

func levelMark(l scraper.Level) string {
	switch l {
	case scraper.LevelSuccess:
		return Green("✓")
	case scraper.LevelWarn:
		return Yellow("⚠")
	case scraper.LevelError:
		return Red("✗")
	default:
		return Cyan("→")
	}
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatBytes formats a byte count in binary units
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
