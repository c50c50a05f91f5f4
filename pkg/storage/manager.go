package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"igdl/pkg/models"
)

const (
	// ChunkSize is the buffer size used when streaming a body to disk
	ChunkSize = 8 * 1024

	// PartSuffix marks in-progress temp files
	PartSuffix = ".part"

	timestampLayout = "20060102_150405"
)

// Filename returns the deterministic file name for an item:
// instagram_<shortcode>_<YYYYmmdd_HHMMSS UTC>[_<index>].<mp4|jpg>
func Filename(item models.MediaItem) string {
	name := fmt.Sprintf("instagram_%s_%s", item.Shortcode, item.CapturedAt.UTC().Format(timestampLayout))
	if item.Index > 0 {
		name = fmt.Sprintf("%s_%d", name, item.Index)
	}
	return name + "." + item.Extension()
}

// Manager handles file storage operations
type Manager struct {
	fs afero.Fs
}

// NewManager creates a storage manager on top of fs
func NewManager(fs afero.Fs) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Manager{fs: fs}
}

// Fs returns the underlying filesystem
func (m *Manager) Fs() afero.Fs {
	return m.fs
}

// EnsureDir creates dir and its parents; an existing directory is not an error
func (m *Manager) EnsureDir(dir string) error {
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether a regular file is present at path
func (m *Manager) Exists(path string) bool {
	info, err := m.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteAtomic streams r into path. The data goes to a temp file in the same
// directory first and is renamed over path once complete. The temp file is
// removed on any error, including ctx cancellation between chunks.
func (m *Manager) WriteAtomic(ctx context.Context, path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := m.EnsureDir(dir); err != nil {
		return 0, err
	}

	tempPath := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+PartSuffix)
	out, err := m.fs.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	written, copyErr := copyChunks(ctx, out, r)
	closeErr := out.Close()

	if copyErr != nil {
		_ = m.fs.Remove(tempPath)
		return written, fmt.Errorf("failed to write %s: %w", filepath.Base(path), copyErr)
	}
	if closeErr != nil {
		_ = m.fs.Remove(tempPath)
		return written, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := m.fs.Rename(tempPath, path); err != nil {
		_ = m.fs.Remove(tempPath)
		return written, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return written, nil
}

func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			total += int64(w)
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// PartialFiles lists leftover temp files in dir
func (m *Manager) PartialFiles(dir string) ([]string, error) {
	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return nil, err
	}

	var parts []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), PartSuffix) {
			parts = append(parts, filepath.Join(dir, e.Name()))
		}
	}
	return parts, nil
}
