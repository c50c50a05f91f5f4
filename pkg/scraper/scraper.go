package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"igdl/internal/downloader"
	"igdl/pkg/config"
	errs "igdl/pkg/errors"
	"igdl/pkg/instagram"
	"igdl/pkg/logger"
	"igdl/pkg/models"
	"igdl/pkg/ratelimit"
	"igdl/pkg/retry"
	"igdl/pkg/storage"
)

// Request describes one download job
type Request struct {
	URL      string
	Username string
	Password string
	// Profile forces profile mode. URLs that are not post links are
	// treated as profiles either way.
	Profile bool
	// MaxPosts caps the number of media items of a profile. nil uses the
	// configured limit, 0 downloads nothing and a negative value lifts the
	// limit.
	MaxPosts  *int
	OutputDir string
}

// Scraper runs download jobs against Instagram
type Scraper struct {
	cfg         *config.Config
	store       *storage.Manager
	logger      logger.Logger
	sessionOpts []instagram.SessionOption
}

// Option configures a Scraper
type Option func(*Scraper)

// WithFs sets the filesystem downloads are written to
func WithFs(fs afero.Fs) Option {
	return func(s *Scraper) { s.store = storage.NewManager(fs) }
}

// WithSessionOptions appends options applied to every session the scraper
// creates, after the ones derived from the config
func WithSessionOptions(opts ...instagram.SessionOption) Option {
	return func(s *Scraper) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// WithLogger sets the scraper logger
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// New creates a Scraper from cfg
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Scraper{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = storage.NewManager(afero.NewOsFs())
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	return s, nil
}

// Config returns the scraper configuration
func (s *Scraper) Config() *config.Config {
	return s.cfg
}

func (s *Scraper) retryPolicy() *retry.Policy {
	r := s.cfg.Retry
	p := retry.NewPolicy(r.MaxAttempts, r.BaseDelay, r.MaxDelay, r.Jitter, r.RateLimitDelay)
	p.Logger = s.logger
	return p
}

// NewSession creates an unauthenticated session configured from the
// scraper settings
func (s *Scraper) NewSession() (*instagram.Session, error) {
	opts := []instagram.SessionOption{
		instagram.WithUserAgent(s.cfg.Instagram.UserAgent),
		instagram.WithTimeout(s.cfg.Download.Timeout),
		instagram.WithRetryPolicy(s.retryPolicy()),
		instagram.WithRateLimiter(ratelimit.PerMinute(s.cfg.RateLimit.RequestsPerMinute)),
		instagram.WithLogger(s.logger),
	}
	return instagram.NewSession(append(opts, s.sessionOpts...)...)
}

// Login creates a session and authenticates it
func (s *Scraper) Login(ctx context.Context, username, password string) (*instagram.Session, error) {
	if username == "" || password == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "username and password are required")
	}

	sess, err := s.NewSession()
	if err != nil {
		return nil, err
	}
	if !sess.Authenticate(ctx, username, password) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.New(errs.ErrorTypeAuth, "login failed for %s", username)
	}
	return sess, nil
}

func (s *Scraper) downloader(sess *instagram.Session) *downloader.Downloader {
	return downloader.New(sess, s.store,
		downloader.WithRetryPolicy(s.retryPolicy()),
		downloader.WithCompletionDelay(s.cfg.Download.JitterMin, s.cfg.Download.JitterMax),
		downloader.WithLogger(s.logger),
	)
}

// sink receives progress events; nil discards them
type sink func(Event)

func (f sink) emit(ev Event) {
	if f == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	f(ev)
}

func (f sink) logf(level Level, format string, args ...interface{}) {
	f.emit(Event{Type: EventLog, Level: level, Message: fmt.Sprintf(format, args...)})
}

// DownloadProfile downloads the media of profileURL into
// <outputDir>/<username>/, stopping after limit items. A negative limit
// downloads everything.
func (s *Scraper) DownloadProfile(ctx context.Context, sess *instagram.Session, profileURL, outputDir string, limit int) (*Summary, error) {
	return s.downloadProfile(ctx, sess, profileURL, outputDir, limit, nil)
}

func (s *Scraper) downloadProfile(ctx context.Context, sess *instagram.Session, profileURL, outputDir string, limit int, events sink) (*Summary, error) {
	started := time.Now()

	username, err := instagram.ResolveUsername(profileURL)
	if err != nil {
		return nil, err
	}
	summary := newSummary(username)
	log := s.logger.WithField("username", username)

	events.logf(LevelInfo, "Resolving profile %s", username)
	userID, err := sess.ResolveUserID(ctx, username)
	if err != nil {
		return nil, err
	}

	fetcher := instagram.NewFetcher(s.cfg.Instagram.Fetcher, sess, userID, s.cfg.Instagram.PageSize,
		instagram.WithQueryHash(s.cfg.Instagram.QueryHash))
	pager := instagram.NewPaginator(fetcher,
		instagram.WithPageDelay(s.cfg.RateLimit.PageDelayMin, s.cfg.RateLimit.PageDelayMax),
		instagram.WithPaginatorLogger(log),
	)

	if limit >= 0 {
		events.logf(LevelInfo, "Fetching up to %d media items from %s", limit, username)
	} else {
		events.logf(LevelInfo, "Fetching all media from %s", username)
	}

	dir := filepath.Join(outputDir, username)
	s.sweep(dir, events)
	stream := pager.Stream(ctx, limit)
	results := s.downloader(sess).DownloadBatch(ctx, stream.Items(), dir, s.cfg.Download.Concurrency)
	s.collect(results, summary, events)

	summary.Dropped = stream.Dropped()
	summary.Elapsed = time.Since(started)

	if err := stream.Err(); err != nil {
		if summary.Found == 0 {
			return summary, err
		}
		log.WithError(err).Warn("Pagination stopped early")
		events.emit(Event{Type: EventLog, Level: LevelWarn, Message: "Pagination stopped early: " + err.Error(), Err: err})
	}
	return summary, s.finish(ctx, summary)
}

// DownloadPost downloads every media item of a single post into outputDir
func (s *Scraper) DownloadPost(ctx context.Context, sess *instagram.Session, postURL, outputDir string) (*Summary, error) {
	return s.downloadPost(ctx, sess, postURL, outputDir, nil)
}

func (s *Scraper) downloadPost(ctx context.Context, sess *instagram.Session, postURL, outputDir string, events sink) (*Summary, error) {
	started := time.Now()

	shortcode, err := instagram.ResolveShortcode(postURL)
	if err != nil {
		return nil, err
	}
	summary := newSummary(shortcode)

	events.logf(LevelInfo, "Fetching post %s", shortcode)
	items, dropped, err := sess.FetchPost(ctx, shortcode)
	if err != nil {
		return nil, err
	}
	summary.Dropped = dropped
	if len(items) > 1 {
		events.logf(LevelInfo, "Post %s has %d media items", shortcode, len(items))
	}

	queue := make(chan models.MediaItem, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	s.sweep(outputDir, events)
	results := s.downloader(sess).DownloadBatch(ctx, queue, outputDir, s.cfg.Download.Concurrency)
	s.collect(results, summary, events)
	summary.Elapsed = time.Since(started)

	return summary, s.finish(ctx, summary)
}

// sweep deletes temp files an interrupted earlier run left in dir
func (s *Scraper) sweep(dir string, events sink) {
	parts, err := s.store.PartialFiles(dir)
	if err != nil || len(parts) == 0 {
		return
	}

	removed := 0
	for _, p := range parts {
		if err := s.store.Fs().Remove(p); err != nil {
			s.logger.WithError(err).WithField("path", p).Warn("Failed to remove partial file")
			continue
		}
		removed++
	}
	events.logf(LevelWarn, "Removed %d partial files from an earlier run", removed)
}

func (s *Scraper) collect(results <-chan models.DownloadResult, summary *Summary, events sink) {
	for r := range results {
		r := r
		summary.add(r)

		ev := Event{Type: EventItem, Result: &r}
		switch {
		case r.Skipped:
			ev.Level = LevelInfo
			ev.Message = "Skipped " + filepath.Base(r.Path)
		case r.Success:
			ev.Level = LevelSuccess
			ev.Message = "Downloaded " + filepath.Base(r.Path)
		default:
			ev.Level = LevelError
			ev.Err = r.Err
			ev.Message = fmt.Sprintf("Failed %s: %v", r.Item.Shortcode, r.Err)
		}
		events.emit(ev)
	}
}

// finish maps the tallies to the run's terminal error
func (s *Scraper) finish(ctx context.Context, summary *Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if summary.Found > 0 && summary.Succeeded() == 0 {
		first := summary.Failures()[0].Err
		return errs.Wrap(errs.TypeOf(first), first, fmt.Sprintf("all %d items failed", summary.Found))
	}

	s.logger.WithFields(map[string]interface{}{
		"target":     summary.Target,
		"found":      summary.Found,
		"downloaded": summary.Downloaded,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
		"dropped":    summary.Dropped,
	}).Info("Run finished")
	return nil
}

// Run performs req to completion
func (s *Scraper) Run(ctx context.Context, req Request) (*Summary, error) {
	return s.run(ctx, req, nil)
}

func (s *Scraper) run(ctx context.Context, req Request, events sink) (*Summary, error) {
	target := strings.TrimSpace(req.URL)
	if target == "" {
		return nil, fmt.Errorf("a profile or post URL is required")
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.cfg.Download.OutputDir
	}
	limit := s.cfg.Download.PostLimit()
	if req.MaxPosts != nil {
		limit = *req.MaxPosts
	}

	events.logf(LevelInfo, "Logging in as %s", req.Username)
	sess, err := s.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	events.logf(LevelSuccess, "Logged in as %s", req.Username)

	if req.Profile || !instagram.IsPostURL(target) {
		return s.downloadProfile(ctx, sess, target, outputDir, limit, events)
	}
	return s.downloadPost(ctx, sess, target, outputDir, events)
}
