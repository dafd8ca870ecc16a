package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Progress is the current state of a download.
type Progress struct {
	TotalBytes int64   // advertised size (0 if unknown)
	Downloaded int64   // bytes received so far
	Percentage float64 // 0-100, only meaningful when TotalBytes > 0
}

// ProgressFunc is called periodically during a download.
type ProgressFunc func(Progress)

// DownloadResult describes a completed download. The file lives in a
// scratch directory owned by the Downloader until CleanupPath or
// CleanupAll removes it.
type DownloadResult struct {
	FilePath    string
	Size        int64
	ContentType string
}

// Downloader streams remote archives into per-download scratch
// directories under its base directory.
type Downloader struct {
	httpClient *http.Client
	baseDir    string
	maxBytes   int64 // 0 disables the cap

	mu      sync.Mutex
	scratch map[string]struct{} // scratch dirs awaiting cleanup
}

// NewDownloader creates a Downloader writing beneath baseDir. maxBytes
// caps a single download; 0 means unlimited. A nil httpClient uses
// http.DefaultClient.
func NewDownloader(httpClient *http.Client, baseDir string, maxBytes int64) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{
		httpClient: httpClient,
		baseDir:    baseDir,
		maxBytes:   maxBytes,
		scratch:    make(map[string]struct{}),
	}
}

// Download fetches rawURL into a fresh scratch directory. The partial
// file and its directory are removed on any failure.
func (d *Downloader) Download(ctx context.Context, rawURL string, progressFn ProgressFunc) (*DownloadResult, error) {
	if rawURL == "" {
		return nil, ErrNoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("%w: advertised %d bytes, limit %d", ErrFileTooLarge, resp.ContentLength, d.maxBytes)
	}

	scratchDir := filepath.Join(d.baseDir, uuid.NewString())
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	d.track(scratchDir)

	destPath := filepath.Join(scratchDir, filenameFromURL(rawURL))
	size, err := d.streamToFile(ctx, resp, destPath, progressFn)
	if err != nil {
		d.CleanupPath(destPath)
		return nil, err
	}

	return &DownloadResult{
		FilePath:    destPath,
		Size:        size,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (d *Downloader) streamToFile(ctx context.Context, resp *http.Response, destPath string, progressFn ProgressFunc) (int64, error) {
	file, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("creating download file: %w", err)
	}
	defer file.Close()

	reader := &progressReader{
		ctx:        ctx,
		reader:     resp.Body,
		totalBytes: resp.ContentLength,
		maxBytes:   d.maxBytes,
		progressFn: progressFn,
	}

	written, err := io.Copy(file, reader)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) || ctx.Err() != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("closing download file: %w", err)
	}
	return written, nil
}

// CleanupPath removes the scratch directory containing filePath, if the
// downloader owns it.
func (d *Downloader) CleanupPath(filePath string) {
	dir := filepath.Dir(filePath)

	d.mu.Lock()
	_, owned := d.scratch[dir]
	if owned {
		delete(d.scratch, dir)
	}
	d.mu.Unlock()

	if owned {
		os.RemoveAll(dir)
	}
}

// CleanupAll removes every tracked scratch directory.
func (d *Downloader) CleanupAll() error {
	d.mu.Lock()
	dirs := make([]string, 0, len(d.scratch))
	for dir := range d.scratch {
		dirs = append(dirs, dir)
	}
	d.scratch = make(map[string]struct{})
	d.mu.Unlock()

	var result *multierror.Error
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			result = multierror.Append(result, fmt.Errorf("removing %s: %w", dir, err))
		}
	}
	return result.ErrorOrNil()
}

// ScratchCount reports how many scratch directories are awaiting cleanup.
func (d *Downloader) ScratchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.scratch)
}

func (d *Downloader) track(dir string) {
	d.mu.Lock()
	d.scratch[dir] = struct{}{}
	d.mu.Unlock()
}

// filenameFromURL derives a local filename from the URL path, falling
// back to a fixed name for opaque CDN URLs.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download.bin"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "download.bin"
	}
	return name
}

// progressReader tracks received bytes, enforces the size cap for
// unknown-length responses, and surfaces cancellation mid-stream.
type progressReader struct {
	ctx        context.Context
	reader     io.Reader
	totalBytes int64
	maxBytes   int64
	downloaded int64
	progressFn ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		if r.maxBytes > 0 && r.downloaded > r.maxBytes {
			return n, fmt.Errorf("%w: exceeded %d bytes", ErrFileTooLarge, r.maxBytes)
		}
		if r.progressFn != nil {
			progress := Progress{
				TotalBytes: r.totalBytes,
				Downloaded: r.downloaded,
			}
			if r.totalBytes > 0 {
				progress.Percentage = float64(r.downloaded) / float64(r.totalBytes) * 100
			}
			r.progressFn(progress)
		}
	}
	return n, err
}
