package main

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL       = errors.New("invalid image URL")
	ErrEmptyDownload    = errors.New("downloaded file is empty")
	ErrNoColumns        = errors.New("no valid columns to export")
	ErrUnsupportedInput = errors.New("unsupported input format")
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// ImageExt is the file extension guessed from an image URL
type ImageExt string

const (
	ExtJPG  ImageExt = "jpg"
	ExtPNG  ImageExt = "png"
	ExtGIF  ImageExt = "gif"
	ExtWEBP ImageExt = "webp"
)

// ImageRequest identifies one distinct remote image
type ImageRequest struct {
	URL       string
	CacheKey  string
	Extension ImageExt
}

// FetchStatus represents the outcome of fetching one image
type FetchStatus string

const (
	StatusSuccess FetchStatus = "success"
	StatusFailed  FetchStatus = "failed"
)

// FetchResult tracks the outcome of fetching each URL
type FetchResult struct {
	Request   ImageRequest
	Status    FetchStatus
	LocalPath string
	Err       error
	CacheHit  bool
	Attempts  int
}

// FailedURL is a URL that could not be materialized locally
type FailedURL struct {
	URL string
	Err error
}

// NormalizedImage is an image ready to be embedded in the workbook.
// ScratchPath is empty when normalization fell back to the source file.
type NormalizedImage struct {
	SourcePath  string
	ScratchPath string
	EmbedPath   string
	Width       int
	Height      int
}
