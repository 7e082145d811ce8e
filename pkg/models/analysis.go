package models

import "time"

// CoverageEntry is one row of the coverage table
type CoverageEntry struct {
	Color       [3]uint8 `json:"color" csv:"-"`
	Hex         string   `json:"hex" csv:"hex"`
	Percentage  float64  `json:"percentage" csv:"percentage"`
	ColorNumber int      `json:"color_number" csv:"color_number"`
}

// ImageResult is the outcome of analysing a single image. Exactly one of
// Coverage and Error is meaningful.
type ImageResult struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Timestamp         time.Time       `json:"timestamp"`
	ProcessingTimeSec float64         `json:"processing_time_sec"`
	Width             int             `json:"width,omitempty"`
	Height            int             `json:"height,omitempty"`
	FilteredPixels    int             `json:"filtered_pixels,omitempty"`
	Coverage          []CoverageEntry `json:"coverage,omitempty"`
	ProcessedImage    string          `json:"processed_image,omitempty"`
	Cached            bool            `json:"cached,omitempty"`
	Error             *ErrorResponse  `json:"error,omitempty"`
}

// Failed reports whether the image could not be analysed
func (r *ImageResult) Failed() bool {
	return r.Error != nil
}

// PaletteEntry describes one reference color
type PaletteEntry struct {
	Color       [3]uint8 `json:"color"`
	Hex         string   `json:"hex"`
	ColorNumber int      `json:"color_number"`
}
