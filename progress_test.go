package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestProgressReporterCounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewProgressReporter(&buf, 10)
	r.Start(4)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(ok bool) {
			defer wg.Done()
			r.Completed(ok)
		}(i%3 != 0)
	}
	wg.Wait()
	r.Stop()
	r.Stop()

	done, ok, failed := r.Counts()
	if done != 10 || ok != 6 || failed != 4 {
		t.Errorf("Counts() = %d, %d, %d; want 10, 6, 4", done, ok, failed)
	}
	out := buf.String()
	if !strings.Contains(out, "Downloading 10 images (4 workers)") || strings.Count(out, "Download finished") != 1 {
		t.Errorf("unexpected output:\n%s", out)
	}
}
