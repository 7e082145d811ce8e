package analyzer

import (
	"context"
	"image"
)

// ImageAnalyzer defines the main interface for skin tone coverage analysis
type ImageAnalyzer interface {
	// Analyze runs the pipeline with DefaultOptions
	Analyze(ctx context.Context, img image.Image) (*AnalysisResult, error)

	// AnalyzeWithOptions runs the pipeline with explicit options
	AnalyzeWithOptions(ctx context.Context, img image.Image, options AnalysisOptions) (*AnalysisResult, error)

	// Engine reports the clustering engine in use
	Engine() Clusterer

	// Lifecycle management
	Close() error
}

// Clusterer partitions a filtered pixel set into k clusters.
// Implementations return InsufficientSamplesError when len(pixels) < k.
type Clusterer interface {
	Cluster(ctx context.Context, pixels []PixelColor, k int) ([]ColorCluster, error)
	Name() string
	// Deterministic reports whether equal inputs always give equal clusters
	Deterministic() bool
}
