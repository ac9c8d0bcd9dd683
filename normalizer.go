package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageCapability describes whether images can be decoded and re-encoded in
// this process. It is built once at startup and handed to the normalizer.
type ImageCapability struct {
	Enabled bool

	// Reason explains a disabled capability.
	Reason string
}

// DetectImageCapability checks that the JPEG codec round-trips a pixel.
// enabled false turns normalization off without probing.
func DetectImageCapability(enabled bool) ImageCapability {
	if !enabled {
		return ImageCapability{Reason: "disabled in settings"}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1)), nil); err != nil {
		return ImageCapability{Reason: fmt.Sprintf("jpeg encoder unavailable: %v", err)}
	}
	if _, format, err := image.Decode(&buf); err != nil || format != "jpeg" {
		return ImageCapability{Reason: fmt.Sprintf("jpeg decoder unavailable: %v", err)}
	}
	return ImageCapability{Enabled: true}
}

// Normalizer converts a downloaded image into an embeddable file
type Normalizer interface {
	Normalize(srcPath, scratchDir string) NormalizedImage
}

// NormalizeOptions configures the output of ImageNormalizer
type NormalizeOptions struct {
	// MaxPixels downscales images whose larger side exceeds it. Zero disables.
	MaxPixels int
	Quality   int
}

// ImageNormalizer re-encodes any supported image as an opaque RGB JPEG
type ImageNormalizer struct {
	capability ImageCapability
	opts       NormalizeOptions
	log        zerolog.Logger
}

// NewImageNormalizer creates a normalizer for the given capability
func NewImageNormalizer(capability ImageCapability, opts NormalizeOptions, log zerolog.Logger) *ImageNormalizer {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 90
	}
	return &ImageNormalizer{capability: capability, opts: opts, log: log}
}

// Normalize writes a JPEG copy of srcPath into scratchDir. On any failure, or
// when the capability is disabled, it returns srcPath unchanged. It never
// deletes files; the caller owns ScratchPath.
func (n *ImageNormalizer) Normalize(srcPath, scratchDir string) NormalizedImage {
	fallback := NormalizedImage{SourcePath: srcPath, EmbedPath: srcPath}
	if !n.capability.Enabled {
		return fallback
	}

	out, err := n.convert(srcPath, scratchDir)
	if err != nil {
		n.log.Debug().Err(err).Str("path", srcPath).Msg("Image normalization failed, using original file")
		fallback.ScratchPath = out.ScratchPath
		return fallback
	}
	return out
}

func (n *ImageNormalizer) convert(srcPath, scratchDir string) (NormalizedImage, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("opening image: %w", err)
	}
	img, format, err := image.Decode(src)
	src.Close()
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("decoding image: %w", err)
	}

	canvas := flattenOnWhite(img, n.opts.MaxPixels)

	tmp, err := os.CreateTemp(scratchDir, "thumb-*.jpg")
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("creating scratch file: %w", err)
	}
	scratch := tmp.Name()

	if err := jpeg.Encode(tmp, canvas, &jpeg.Options{Quality: n.opts.Quality}); err != nil {
		tmp.Close()
		return NormalizedImage{ScratchPath: scratch}, fmt.Errorf("encoding %s as jpeg: %w", format, err)
	}
	if err := tmp.Close(); err != nil {
		return NormalizedImage{ScratchPath: scratch}, fmt.Errorf("closing scratch file: %w", err)
	}

	b := canvas.Bounds()
	return NormalizedImage{
		SourcePath:  srcPath,
		ScratchPath: scratch,
		EmbedPath:   scratch,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// flattenOnWhite composites img over an opaque white canvas, scaling it down
// so neither side exceeds maxPixels when maxPixels > 0.
func flattenOnWhite(img image.Image, maxPixels int) *image.RGBA {
	sb := img.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if maxPixels > 0 {
		w, h = fitWithin(w, h, maxPixels)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		xdraw.Draw(canvas, canvas.Bounds(), img, sb.Min, xdraw.Over)
	} else {
		xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), img, sb, xdraw.Over, nil)
	}
	return canvas
}

// fitWithin scales w x h so that neither side exceeds limit, keeping the
// aspect ratio. Sizes already within limit are returned unchanged.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w > h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}
