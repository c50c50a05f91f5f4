// Package downloader fetches media items to disk with bounded concurrency.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	"golang.org/x/sync/errgroup"

	errs "igdl/pkg/errors"
	"igdl/pkg/logger"
	"igdl/pkg/models"
	"igdl/pkg/ratelimit"
	"igdl/pkg/retry"
	"igdl/pkg/storage"
)

// DefaultConcurrency is the pool size when none is given
const DefaultConcurrency = 3

// sniffLen is enough for every matcher filetype ships
const sniffLen = 262

// Source opens a media URL for reading
type Source interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Downloader writes media items into a directory, skipping ones already present
type Downloader struct {
	src    Source
	store  *storage.Manager
	retry  *retry.Policy
	pause  ratelimit.Jitter
	logger logger.Logger
}

// Option configures a Downloader
type Option func(*Downloader)

// WithRetryPolicy sets the retry policy for fetching a file. Its RetryIf is
// replaced by retryMedia.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(d *Downloader) { d.retry = p }
}

// WithCompletionDelay sets the pause a worker takes after each item
func WithCompletionDelay(min, max time.Duration) Option {
	return func(d *Downloader) { d.pause = ratelimit.Jitter{Min: min, Max: max} }
}

// WithLogger sets the downloader logger
func WithLogger(l logger.Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

// New creates a Downloader
func New(src Source, store *storage.Manager, opts ...Option) *Downloader {
	d := &Downloader{
		src:   src,
		store: store,
		retry: retry.DefaultPolicy(),
		pause: ratelimit.Jitter{Min: 500 * time.Millisecond, Max: time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.GetLogger()
	}
	if d.retry == nil {
		d.retry = retry.DefaultPolicy()
	}
	p := *d.retry
	p.RetryIf = retryMedia
	d.retry = &p
	return d
}

// retryMedia retries any failed attempt, HTTP status errors included,
// except cancellation and bodies that are not media.
func retryMedia(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errs.IsType(err, errs.ErrorTypeUnresolvable)
}

// DownloadItem downloads one item into dir. It never returns an error;
// failures are reported in the result.
func (d *Downloader) DownloadItem(ctx context.Context, item models.MediaItem, dir string) models.DownloadResult {
	start := time.Now()
	result := models.DownloadResult{
		Item: item,
		Path: filepath.Join(dir, storage.Filename(item)),
	}
	defer func() {
		result.Duration = time.Since(start)
		logger.LogDownload(d.logger, result)
	}()

	if d.store.Exists(result.Path) {
		result.Success = true
		result.Skipped = true
		return result
	}

	if err := d.store.EnsureDir(dir); err != nil {
		result.Err = err
		return result
	}

	err := d.retry.Do(ctx, func(ctx context.Context) error {
		n, err := d.fetch(ctx, item.URL, result.Path)
		result.Bytes = n
		return err
	})
	if err != nil {
		result.Bytes = 0
		result.Err = err
		return result
	}

	result.Success = true
	return result
}

// fetch makes one attempt at streaming url into path
func (d *Downloader) fetch(ctx context.Context, url, path string) (int64, error) {
	body, err := d.src.Open(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	switch {
	case errors.Is(err, io.EOF):
		return 0, errs.New(errs.ErrorTypeUnresolvable, "empty body from %s", url)
	case err != nil && !errors.Is(err, io.ErrUnexpectedEOF):
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response")
	}
	head = head[:n]

	if err := checkMedia(head); err != nil {
		return 0, err
	}

	written, err := d.store.WriteAtomic(ctx, path, io.MultiReader(bytes.NewReader(head), body))
	if err != nil {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		return written, errs.Wrap(errs.ErrorTypeNetwork, err, "transfer interrupted")
	}
	return written, nil
}

// checkMedia rejects bodies recognised as something other than an image or video
func checkMedia(head []byte) error {
	kind, _ := filetype.Match(head)
	if kind == filetype.Unknown || filetype.IsImage(head) || filetype.IsVideo(head) {
		return nil
	}
	return errs.New(errs.ErrorTypeUnresolvable, "server returned %s instead of media", kind.MIME.Value)
}

// DownloadBatch downloads items from the channel with at most concurrency
// workers. Results arrive in completion order and the returned channel is
// closed once every submitted item has finished. After ctx is cancelled no
// new items are started. Callers must drain the returned channel.
func (d *Downloader) DownloadBatch(ctx context.Context, items <-chan models.MediaItem, dir string, concurrency int) <-chan models.DownloadResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	out := make(chan models.DownloadResult, concurrency)

	go func() {
		defer close(out)

		var g errgroup.Group
		g.SetLimit(concurrency)

	submit:
		for {
			select {
			case <-ctx.Done():
				break submit
			case item, ok := <-items:
				if !ok {
					break submit
				}
				if ctx.Err() != nil {
					break submit
				}
				g.Go(func() error {
					out <- d.DownloadItem(ctx, item, dir)
					_ = d.pause.Wait(ctx)
					return nil
				})
			}
		}

		_ = g.Wait()
		d.logger.Debug("Download batch finished")
	}()

	return out
}
