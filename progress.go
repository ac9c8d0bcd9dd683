package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// ProgressReporter prints download counters as jobs complete
type ProgressReporter struct {
	out   io.Writer
	total int

	mu        sync.Mutex
	completed atomic.Int32
	succeeded atomic.Int32
	failed    atomic.Int32
	startTime time.Time
	stopped   bool
}

// NewProgressReporter creates a reporter for total jobs. A nil out writes to stdout.
func NewProgressReporter(out io.Writer, total int) *ProgressReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ProgressReporter{out: out, total: total}
}

// Start prints the header line
func (r *ProgressReporter) Start(workers int) {
	r.startTime = time.Now()
	fmt.Fprintf(r.out, "Downloading %d images (%d workers)...\n", r.total, workers)
}

// Completed records one finished job and refreshes the progress line
func (r *ProgressReporter) Completed(ok bool) {
	if ok {
		r.succeeded.Add(1)
	} else {
		r.failed.Add(1)
	}
	done := r.completed.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	fmt.Fprintf(r.out, "\rProgress: %d/%d (ok: %d, failed: %d)", done, r.total, r.succeeded.Load(), r.failed.Load())
}

// Stop prints the final line. It is safe to call more than once.
func (r *ProgressReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	fmt.Fprintf(r.out, "\nDownload finished in %s: ok %d, failed %d\n",
		time.Since(r.startTime).Round(time.Millisecond), r.succeeded.Load(), r.failed.Load())
}

// Counts returns completed, succeeded and failed totals
func (r *ProgressReporter) Counts() (completed, succeeded, failed int) {
	return int(r.completed.Load()), int(r.succeeded.Load()), int(r.failed.Load())
}
