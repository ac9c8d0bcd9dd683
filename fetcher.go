package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultChunkSize = 8192
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// FetchOptions configures the image fetcher
type FetchOptions struct {
	// OutputDir is the cache directory for downloaded images.
	OutputDir string

	// Timeout bounds a single attempt, connect and body included.
	Timeout time.Duration

	// MaxRetries is the total number of attempts per URL.
	MaxRetries int

	// RetryBackoff is the fixed wait between failed attempts.
	RetryBackoff time.Duration

	UserAgent string
	ChunkSize int
}

// ImageFetcher downloads remote images into a URL-keyed file cache
type ImageFetcher struct {
	client *http.Client
	opts   FetchOptions
	log    zerolog.Logger

	// sleep is swapped in tests to observe backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewImageFetcher creates a fetcher. A nil client uses a default http.Client.
func NewImageFetcher(client *http.Client, opts FetchOptions, log zerolog.Logger) *ImageFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "images"
	}
	return &ImageFetcher{
		client: client,
		opts:   opts,
		log:    log,
		sleep:  sleepContext,
	}
}

// Fetch resolves rawURL to a local file, from cache or by downloading it
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) FetchResult {
	req, err := NewImageRequest(rawURL)
	if err != nil {
		return FetchResult{Request: ImageRequest{URL: rawURL}, Status: StatusFailed, Err: err}
	}

	path := req.CachePath(f.opts.OutputDir)
	if fileNonEmpty(path) {
		f.log.Debug().Str("url", req.URL).Str("path", path).Msg("Image cache hit")
		return FetchResult{Request: req, Status: StatusSuccess, LocalPath: path, CacheHit: true}
	}

	if err := os.MkdirAll(f.opts.OutputDir, 0755); err != nil {
		return FetchResult{Request: req, Status: StatusFailed, Err: fmt.Errorf("creating image directory: %w", err)}
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= f.opts.MaxRetries; attempt++ {
		attempts = attempt
		lastErr = f.download(ctx, req, path)
		if lastErr == nil {
			return FetchResult{Request: req, Status: StatusSuccess, LocalPath: path, Attempts: attempts}
		}

		f.log.Debug().Err(lastErr).Str("url", req.URL).Int("attempt", attempt).Msg("Image download attempt failed")
		if attempt == f.opts.MaxRetries {
			break
		}
		if err := f.sleep(ctx, f.opts.RetryBackoff); err != nil {
			lastErr = err
			break
		}
	}

	return FetchResult{
		Request:  req,
		Status:   StatusFailed,
		Err:      fmt.Errorf("downloading %s after %d attempts: %w", req.URL, attempts, lastErr),
		Attempts: attempts,
	}
}

// download performs one attempt. The body is streamed into a temp file next to
// path and renamed into place only once it is verified non-empty.
func (f *ImageFetcher) download(ctx context.Context, req ImageRequest, path string) error {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, URL: req.URL}
	}

	tmp, err := os.CreateTemp(f.opts.OutputDir, req.CacheKey+"-*.part")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	buf := make([]byte, f.opts.ChunkSize)
	if err := copyChunks(tmp, resp.Body, buf); err != nil {
		tmp.Close()
		return fmt.Errorf("writing body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if !fileNonEmpty(tmpPath) {
		return fmt.Errorf("%w: %s", ErrEmptyDownload, req.URL)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("moving download into cache: %w", err)
	}
	committed = true

	if !fileNonEmpty(path) {
		return fmt.Errorf("%w: %s", ErrEmptyDownload, req.URL)
	}
	return nil
}

// copyChunks copies src to dst in len(buf) sized reads
func copyChunks(dst io.Writer, src io.Reader, buf []byte) error {
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
