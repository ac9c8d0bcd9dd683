package main

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, "src.png")
	if err := os.WriteFile(path, pngBytes(t, w, h), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNormalizeFlattensTransparency(t *testing.T) {
	dir := t.TempDir()
	scratch := t.TempDir()
	src := writePNG(t, dir, 40, 20)

	n := NewImageNormalizer(DetectImageCapability(true), NormalizeOptions{}, zerolog.Nop())
	out := n.Normalize(src, scratch)

	if out.ScratchPath == "" || out.EmbedPath != out.ScratchPath {
		t.Fatalf("Normalize() = %+v, want scratch output", out)
	}
	if filepath.Dir(out.ScratchPath) != scratch || filepath.Ext(out.ScratchPath) != ".jpg" {
		t.Errorf("ScratchPath = %q, want .jpg in %q", out.ScratchPath, scratch)
	}
	if out.Width != 40 || out.Height != 20 {
		t.Errorf("size = %dx%d, want 40x20", out.Width, out.Height)
	}

	f, err := os.Open(out.ScratchPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}

	// The transparent half must come out white, not black.
	r, g, b, _ := img.At(35, 10).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("transparent pixel = (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = img.At(5, 10).RGBA()
	if r>>8 < 200 || g>>8 > 60 || b>>8 > 60 {
		t.Errorf("opaque pixel = (%d,%d,%d), want red", r>>8, g>>8, b>>8)
	}

	if _, err := os.Stat(src); err != nil {
		t.Errorf("source removed: %v", err)
	}
}

func TestNormalizeDownscalesThumbnail(t *testing.T) {
	src := writePNG(t, t.TempDir(), 800, 200)
	n := NewImageNormalizer(DetectImageCapability(true), NormalizeOptions{MaxPixels: 400}, zerolog.Nop())
	out := n.Normalize(src, t.TempDir())

	if out.Width != 400 || out.Height != 100 {
		t.Errorf("size = %dx%d, want 400x100", out.Width, out.Height)
	}
	f, _ := os.Open(out.EmbedPath)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width != 400 || cfg.Height != 100 {
		t.Errorf("file size = %dx%d err = %v", cfg.Width, cfg.Height, err)
	}
}

func TestDetectImageCapability(t *testing.T) {
	if c := DetectImageCapability(true); !c.Enabled || c.Reason != "" {
		t.Errorf("DetectImageCapability(true) = %+v, want enabled", c)
	}
	if c := DetectImageCapability(false); c.Enabled || c.Reason == "" {
		t.Errorf("DetectImageCapability(false) = %+v, want disabled with a reason", c)
	}
}

func TestNormalizeDisabledCapability(t *testing.T) {
	src := writePNG(t, t.TempDir(), 10, 10)
	scratch := t.TempDir()
	n := NewImageNormalizer(DetectImageCapability(false), NormalizeOptions{}, zerolog.Nop())

	out := n.Normalize(src, scratch)
	if out.EmbedPath != src || out.ScratchPath != "" {
		t.Errorf("Normalize() = %+v, want passthrough", out)
	}
	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Errorf("scratch dir has %d files, want 0", len(entries))
	}
}

func TestNormalizeCorruptFallsBack(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.jpg")
	os.WriteFile(src, []byte("not an image"), 0644)

	n := NewImageNormalizer(DetectImageCapability(true), NormalizeOptions{}, zerolog.Nop())
	out := n.Normalize(src, t.TempDir())
	if out.EmbedPath != src {
		t.Errorf("EmbedPath = %q, want source %q", out.EmbedPath, src)
	}

	missing := n.Normalize(filepath.Join(dir, "missing.png"), t.TempDir())
	if missing.EmbedPath != filepath.Join(dir, "missing.png") {
		t.Errorf("missing file EmbedPath = %q", missing.EmbedPath)
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, limit  int
		wantW, wantH int
	}{
		{50, 40, 100, 50, 40},
		{100, 100, 100, 100, 100},
		{200, 100, 100, 100, 50},
		{100, 400, 100, 25, 100},
		{300, 300, 100, 100, 100},
		{1000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.limit)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = %d, %d; want %d, %d", tt.w, tt.h, tt.limit, w, h, tt.wantW, tt.wantH)
		}
	}
}
