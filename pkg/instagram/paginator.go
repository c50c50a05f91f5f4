package instagram

import (
	"context"
	"sync"
	"time"

	"igdl/pkg/logger"
	"igdl/pkg/models"
	"igdl/pkg/ratelimit"
)

// NoLimit asks Stream for every item the profile has
const NoLimit = -1

// Paginator turns a PageFetcher into a lazy stream of media items
type Paginator struct {
	fetcher PageFetcher
	delay   ratelimit.Jitter
	logger  logger.Logger
}

// PaginatorOption configures a Paginator
type PaginatorOption func(*Paginator)

// WithPageDelay sets the random delay window between page requests
func WithPageDelay(min, max time.Duration) PaginatorOption {
	return func(p *Paginator) { p.delay = ratelimit.Jitter{Min: min, Max: max} }
}

// WithPaginatorLogger sets the paginator logger
func WithPaginatorLogger(l logger.Logger) PaginatorOption {
	return func(p *Paginator) { p.logger = l }
}

// NewPaginator creates a paginator; pages are spaced 0.5-2s apart by default
func NewPaginator(fetcher PageFetcher, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		fetcher: fetcher,
		delay:   ratelimit.Jitter{Min: 500 * time.Millisecond, Max: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.GetLogger()
	}
	return p
}

// Stream is a running pagination. Err, Dropped and Pages are final once
// Items is closed.
type Stream struct {
	items chan models.MediaItem

	mu      sync.Mutex
	err     error
	dropped int
	pages   int
}

// Items yields media in upstream order and is closed when pagination ends
func (s *Stream) Items() <-chan models.MediaItem {
	return s.items
}

// Err returns the error that stopped pagination early, if any
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns the number of entries skipped for lack of a URL
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Pages returns the number of pages fetched
func (s *Stream) Pages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Stream) addPage(dropped int) {
	s.mu.Lock()
	s.pages++
	s.dropped += dropped
	s.mu.Unlock()
}

// Stream starts walking pages from the first one and yields at most limit
// items; a negative limit means no limit and 0 fetches nothing. The walk
// stops when limit items have been yielded, when the upstream has
// no next cursor, when ctx is done, or on the first fetch error.
func (p *Paginator) Stream(ctx context.Context, limit int) *Stream {
	s := &Stream{items: make(chan models.MediaItem)}
	go p.run(ctx, limit, s)
	return s
}

func (p *Paginator) run(ctx context.Context, limit int, s *Stream) {
	defer close(s.items)
	if limit == 0 {
		return
	}

	cursor := ""
	yielded := 0
	for pageNum := 1; ; pageNum++ {
		if pageNum > 1 {
			if err := p.delay.Wait(ctx); err != nil {
				s.fail(err)
				return
			}
		}

		page, err := p.fetcher.FetchPage(ctx, cursor)
		if err != nil {
			p.logger.WithError(err).WarnWithFields("Pagination stopped", map[string]interface{}{
				"page":    pageNum,
				"yielded": yielded,
			})
			s.fail(err)
			return
		}
		s.addPage(page.Dropped)
		logger.LogPage(p.logger, pageNum, len(page.Items), page.Dropped, page.NextCursor != "")

		for _, item := range page.Items {
			if limit >= 0 && yielded >= limit {
				return
			}
			select {
			case s.items <- item:
				yielded++
			case <-ctx.Done():
				s.fail(ctx.Err())
				return
			}
		}

		if limit >= 0 && yielded >= limit {
			return
		}
		if page.NextCursor == "" || page.NextCursor == cursor {
			return
		}
		if len(page.Items) == 0 && page.Dropped == 0 {
			return
		}
		cursor = page.NextCursor
	}
}
