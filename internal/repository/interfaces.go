package repository

import (
	"context"
	"time"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage retrieves the raw bytes of an image from a URL
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(imageURL string) error
}

// AnalysisCache stores finished analyses keyed by image content and options.
type AnalysisCache interface {
	// Get returns the cached analysis and whether it was present
	Get(ctx context.Context, key string) (*CachedAnalysis, bool, error)

	// Set stores an analysis for the configured TTL
	Set(ctx context.Context, key string, analysis *CachedAnalysis) error
}

// CachedEntry is one coverage row as stored in the cache.
type CachedEntry struct {
	Color       [3]uint8 `json:"color"`
	Percentage  float64  `json:"percentage"`
	ColorNumber int      `json:"color_number"`
}

// CachedAnalysis is the serialisable part of an analysis result.
type CachedAnalysis struct {
	Coverage       []CachedEntry `json:"coverage"`
	FilteredPixels int           `json:"filtered_pixels"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	ProcessedImage string        `json:"processed_image,omitempty"`
	CachedAt       time.Time     `json:"cached_at"`
}
