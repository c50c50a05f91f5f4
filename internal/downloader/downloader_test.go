package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igdl/pkg/errors"
	"igdl/pkg/logger"
	"igdl/pkg/models"
	"igdl/pkg/retry"
	"igdl/pkg/storage"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func jpegBody(size int) []byte {
	return append(append([]byte{}, jpegHeader...), bytes.Repeat([]byte{0x42}, size)...)
}

// fakeSource serves bodies by URL and can fail a URL a number of times
type fakeSource struct {
	mu       sync.Mutex
	bodies   map[string][]byte
	failures map[string]int
	failWith error
	calls    map[string]int
	delay    time.Duration

	active    int32
	maxActive int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bodies:   map[string][]byte{},
		failures: map[string]int{},
		calls:    map[string]int{},
		failWith: errs.New(errs.ErrorTypeNetwork, "connection reset"),
	}
}

func (f *fakeSource) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		max := atomic.LoadInt32(&f.maxActive)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxActive, max, cur) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if f.failures[url] > 0 {
		f.failures[url]--
		return nil, f.failWith
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, errs.FromMediaStatus(404, url)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (f *fakeSource) callsFor(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func testItem(code string, index int) models.MediaItem {
	return models.MediaItem{
		Shortcode:  code,
		URL:        "https://cdn.test/" + code + fmt.Sprint(index),
		CapturedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Index:      index,
	}
}

func newTestDownloader(src Source) (*Downloader, *storage.Manager, *logger.TestLogger) {
	store := storage.NewManager(afero.NewMemMapFs())
	policy := retry.NewPolicy(3, time.Millisecond, 2*time.Millisecond, 0, 0)
	policy.Logger = logger.NewTestLogger()
	log := logger.NewTestLogger()

	d := New(src, store,
		WithRetryPolicy(policy),
		WithCompletionDelay(0, 0),
		WithLogger(log),
	)
	return d, store, log
}

func assertNoPartials(t *testing.T, store *storage.Manager, dir string) {
	t.Helper()
	parts, err := store.PartialFiles(dir)
	if err != nil {
		return
	}
	assert.Empty(t, parts)
}

func TestDownloadItemWritesFile(t *testing.T) {
	src := newFakeSource()
	item := testItem("Cabc", 0)
	body := jpegBody(20000)
	src.bodies[item.URL] = body

	d, store, _ := newTestDownloader(src)
	r := d.DownloadItem(context.Background(), item, "downloads")

	require.True(t, r.Success, "err: %v", r.Err)
	assert.False(t, r.Skipped)
	assert.Equal(t, filepath.Join("downloads", "instagram_Cabc_20240102_030405.jpg"), r.Path)
	assert.Equal(t, int64(len(body)), r.Bytes)

	got, err := afero.ReadFile(store.Fs(), r.Path)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assertNoPartials(t, store, "downloads")
}

func TestDownloadItemSkipsExisting(t *testing.T) {
	src := newFakeSource()
	item := testItem("Cabc", 2)
	src.bodies[item.URL] = jpegBody(10)

	d, _, _ := newTestDownloader(src)

	first := d.DownloadItem(context.Background(), item, "downloads")
	require.True(t, first.Success)
	require.False(t, first.Skipped)

	second := d.DownloadItem(context.Background(), item, "downloads")
	assert.True(t, second.Success)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, 1, src.callsFor(item.URL), "skip must not fetch")
}

func TestDownloadItemRetriesTransientErrors(t *testing.T) {
	src := newFakeSource()
	item := testItem("Cretry", 0)
	src.bodies[item.URL] = jpegBody(10)
	src.failures[item.URL] = 2

	d, _, _ := newTestDownloader(src)
	r := d.DownloadItem(context.Background(), item, "downloads")

	assert.True(t, r.Success)
	assert.Equal(t, 3, src.callsFor(item.URL))
}

func TestDownloadItemGivesUpAfterThreeAttempts(t *testing.T) {
	src := newFakeSource()
	item := testItem("Cdead", 0)
	src.bodies[item.URL] = jpegBody(10)
	src.failures[item.URL] = 10

	d, store, log := newTestDownloader(src)
	r := d.DownloadItem(context.Background(), item, "downloads")

	assert.False(t, r.Success)
	require.Error(t, r.Err)
	assert.True(t, errs.IsType(r.Err, errs.ErrorTypeNetwork))
	assert.Equal(t, 3, src.callsFor(item.URL))
	assert.False(t, store.Exists(r.Path))
	assertNoPartials(t, store, "downloads")
	assert.True(t, log.HasMessage("Download failed"))
}

func TestDownloadItemRejectsNonMedia(t *testing.T) {
	src := newFakeSource()
	item := testItem("Cpdf", 0)
	src.bodies[item.URL] = append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 400)...)

	d, store, _ := newTestDownloader(src)
	r := d.DownloadItem(context.Background(), item, "downloads")

	assert.False(t, r.Success)
	assert.True(t, errs.IsType(r.Err, errs.ErrorTypeUnresolvable))
	assert.Equal(t, 1, src.callsFor(item.URL), "unresolvable media is not retried")
	assert.False(t, store.Exists(r.Path))
}

func TestDownloadItemEmptyBody(t *testing.T) {
	src := newFakeSource()
	item := testItem("Cempty", 0)
	src.bodies[item.URL] = []byte{}

	d, _, _ := newTestDownloader(src)
	r := d.DownloadItem(context.Background(), item, "downloads")

	assert.False(t, r.Success)
	assert.True(t, errs.IsType(r.Err, errs.ErrorTypeUnresolvable))
}

func TestDownloadItemRetriesStatusErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"bad request", errs.FromMediaStatus(400, "https://cdn.test/x")},
		{"forbidden", errs.FromMediaStatus(403, "https://cdn.test/x")},
		{"not found", errs.FromMediaStatus(404, "https://cdn.test/x")},
		{"api not found", errs.FromStatus(404, "https://cdn.test/x")},
		{"api forbidden", errs.FromStatus(403, "https://cdn.test/x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			src.failWith = tt.err
			item := testItem("Cflaky", 0)
			src.bodies[item.URL] = jpegBody(10)
			src.failures[item.URL] = 1

			d, _, _ := newTestDownloader(src)
			r := d.DownloadItem(context.Background(), item, "downloads")

			assert.True(t, r.Success, "err: %v", r.Err)
			assert.Equal(t, 2, src.callsFor(item.URL))
		})
	}
}

func TestDownloadItemMissingFileUsesAllAttempts(t *testing.T) {
	src := newFakeSource()
	item := testItem("Cgone", 0)

	d, _, _ := newTestDownloader(src)
	r := d.DownloadItem(context.Background(), item, "downloads")

	assert.False(t, r.Success)
	assert.Equal(t, 3, src.callsFor(item.URL))
	assert.False(t, errs.IsType(r.Err, errs.ErrorTypeNotFound))
}

func TestNewKeepsCallerPolicy(t *testing.T) {
	policy := retry.NewPolicy(2, time.Millisecond, time.Millisecond, 0, 0)
	d := New(newFakeSource(), storage.NewManager(afero.NewMemMapFs()), WithRetryPolicy(policy))

	assert.Equal(t, 2, d.retry.MaxAttempts)
	assert.NotSame(t, policy, d.retry)
	assert.True(t, policy.RetryIf(errs.FromStatus(500, "x")))
	assert.False(t, policy.RetryIf(errs.FromStatus(404, "x")), "caller policy is left untouched")
}

func feed(items ...models.MediaItem) <-chan models.MediaItem {
	ch := make(chan models.MediaItem, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}

func TestDownloadBatchIsolatesFailures(t *testing.T) {
	src := newFakeSource()
	var items []models.MediaItem
	for i := 1; i <= 6; i++ {
		it := testItem("Cbatch", i)
		items = append(items, it)
		src.bodies[it.URL] = jpegBody(100)
	}
	src.failures[items[2].URL] = 99

	d, store, _ := newTestDownloader(src)

	var results []models.DownloadResult
	for r := range d.DownloadBatch(context.Background(), feed(items...), "downloads/alice", 3) {
		results = append(results, r)
	}

	require.Len(t, results, 6)
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			assert.Equal(t, items[2], r.Item)
		}
	}
	assert.Equal(t, 1, failed)
	written, err := afero.ReadDir(store.Fs(), "downloads/alice")
	require.NoError(t, err)
	assert.Len(t, written, 5)
	assertNoPartials(t, store, "downloads/alice")
}

func TestDownloadBatchRespectsConcurrency(t *testing.T) {
	src := newFakeSource()
	src.delay = 20 * time.Millisecond
	var items []models.MediaItem
	for i := 1; i <= 9; i++ {
		it := testItem("Cpool", i)
		items = append(items, it)
		src.bodies[it.URL] = jpegBody(10)
	}

	d, _, _ := newTestDownloader(src)

	count := 0
	for range d.DownloadBatch(context.Background(), feed(items...), "downloads", 2) {
		count++
	}

	assert.Equal(t, 9, count)
	assert.LessOrEqual(t, atomic.LoadInt32(&src.maxActive), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&src.maxActive), int32(1))
}

func TestDownloadBatchCancellation(t *testing.T) {
	src := newFakeSource()
	src.delay = 50 * time.Millisecond

	items := make(chan models.MediaItem)
	go func() {
		defer close(items)
		for i := 1; i <= 100; i++ {
			it := testItem("Ccancel", i)
			src.mu.Lock()
			src.bodies[it.URL] = jpegBody(10)
			src.mu.Unlock()
			select {
			case items <- it:
			case <-time.After(time.Second):
				return
			}
		}
	}()

	d, store, _ := newTestDownloader(src)
	ctx, cancel := context.WithCancel(context.Background())

	results := d.DownloadBatch(ctx, items, "downloads", 3)
	first := <-results
	assert.Equal(t, "Ccancel", first.Item.Shortcode)
	cancel()

	count := 1
	for range results {
		count++
	}

	assert.Less(t, count, 100)
	assertNoPartials(t, store, "downloads")
}

func TestDownloadBatchDefaultConcurrency(t *testing.T) {
	src := newFakeSource()
	it := testItem("Cdef", 0)
	src.bodies[it.URL] = jpegBody(10)

	d, _, _ := newTestDownloader(src)
	var got []models.DownloadResult
	for r := range d.DownloadBatch(context.Background(), feed(it), "downloads", 0) {
		got = append(got, r)
	}
	require.Len(t, got, 1)
	assert.True(t, got[0].Success)
}
