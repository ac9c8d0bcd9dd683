package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// IsImageURL reports whether raw is an absolute http or https URL
func IsImageURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CacheKey returns the hex SHA-256 of the URL string
func CacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// InferExtension guesses the image extension from the URL path suffix
func InferExtension(rawURL string) ImageExt {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)

	switch {
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return ExtJPG
	case strings.HasSuffix(path, ".png"):
		return ExtPNG
	case strings.HasSuffix(path, ".gif"):
		return ExtGIF
	case strings.HasSuffix(path, ".webp"):
		return ExtWEBP
	default:
		return ExtJPG
	}
}

// NewImageRequest validates rawURL and derives its cache key and extension
func NewImageRequest(rawURL string) (ImageRequest, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !IsImageURL(rawURL) {
		return ImageRequest{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return ImageRequest{
		URL:       rawURL,
		CacheKey:  CacheKey(rawURL),
		Extension: InferExtension(rawURL),
	}, nil
}

// Filename is the cache file name for the request
func (r ImageRequest) Filename() string {
	return r.CacheKey + "." + string(r.Extension)
}

// CachePath is the deterministic location of the request under dir
func (r ImageRequest) CachePath(dir string) string {
	return filepath.Join(dir, r.Filename())
}
