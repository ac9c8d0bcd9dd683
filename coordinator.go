package main

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 8

// ImageSource resolves one URL to a local file
type ImageSource interface {
	Fetch(ctx context.Context, rawURL string) FetchResult
}

// ImageDownloader fetches a batch of URLs
type ImageDownloader interface {
	FetchAll(ctx context.Context, urls []string) *DownloadReport
}

// DownloadReport aggregates the outcome of one FetchAll call
type DownloadReport struct {
	// Paths maps each successful URL to its verified local file.
	Paths map[string]string

	// Failed lists failed URLs in order of first occurrence.
	Failed []FailedURL

	Attempted  int
	Succeeded  int
	CacheHits  int
	Duplicates int
}

// DownloadCoordinator fans fetches out over a bounded worker pool
type DownloadCoordinator struct {
	source   ImageSource
	workers  int
	log      zerolog.Logger
	progress io.Writer
}

// NewDownloadCoordinator creates a coordinator. progress may be io.Discard.
func NewDownloadCoordinator(source ImageSource, workers int, progress io.Writer, log zerolog.Logger) *DownloadCoordinator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &DownloadCoordinator{
		source:   source,
		workers:  workers,
		log:      log,
		progress: progress,
	}
}

type indexedResult struct {
	index  int
	url    string
	result FetchResult
}

// FetchAll fetches every distinct URL once and returns after all jobs complete
func (c *DownloadCoordinator) FetchAll(ctx context.Context, urls []string) *DownloadReport {
	distinct, duplicates := dedupe(urls)
	report := &DownloadReport{
		Paths:      make(map[string]string, len(distinct)),
		Attempted:  len(distinct),
		Duplicates: duplicates,
	}
	if len(distinct) == 0 {
		return report
	}

	reporter := NewProgressReporter(c.progress, len(distinct))
	reporter.Start(c.workers)
	defer reporter.Stop()

	results := make(chan indexedResult, len(distinct))
	go func() {
		var g errgroup.Group
		g.SetLimit(c.workers)
		for i, u := range distinct {
			g.Go(func() error {
				results <- indexedResult{index: i, url: u, result: c.fetchOne(ctx, u)}
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	type failure struct {
		index int
		FailedURL
	}
	var failures []failure

	// Only this goroutine touches report, so no lock is needed.
	for r := range results {
		ok := r.result.Status == StatusSuccess
		if ok && !fileNonEmpty(r.result.LocalPath) {
			ok = false
			r.result.Err = fmt.Errorf("local file vanished after download: %s", r.result.LocalPath)
		}

		if ok {
			report.Paths[r.url] = r.result.LocalPath
			report.Succeeded++
			if r.result.CacheHit {
				report.CacheHits++
			}
		} else {
			failures = append(failures, failure{index: r.index, FailedURL: FailedURL{URL: r.url, Err: r.result.Err}})
			c.log.Warn().Err(r.result.Err).Str("url", r.url).Msg("Image download failed")
		}
		reporter.Completed(ok)
	}

	if done, ok, _ := reporter.Counts(); done != report.Attempted || ok != report.Succeeded {
		c.log.Warn().Int("completed", done).Int("succeeded", ok).Int("attempted", report.Attempted).Msg("Progress counters disagree with download report")
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].index < failures[j].index })
	for _, f := range failures {
		report.Failed = append(report.Failed, f.FailedURL)
	}
	return report
}

// fetchOne runs a single job and turns a panic into a failed result
func (c *DownloadCoordinator) fetchOne(ctx context.Context, rawURL string) (res FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Str("url", rawURL).Str("stack", string(debug.Stack())).Msg("Recovered panic in image job")
			res = FetchResult{
				Request: ImageRequest{URL: rawURL},
				Status:  StatusFailed,
				Err:     fmt.Errorf("panic fetching %s: %v", rawURL, r),
			}
		}
	}()
	return c.source.Fetch(ctx, rawURL)
}

// dedupe drops blank and repeated URLs, keeping first-occurrence order.
// The second value counts repeats.
func dedupe(urls []string) ([]string, int) {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	duplicates := 0
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			duplicates++
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, duplicates
}

var _ ImageSource = (*ImageFetcher)(nil)
var _ ImageDownloader = (*DownloadCoordinator)(nil)
