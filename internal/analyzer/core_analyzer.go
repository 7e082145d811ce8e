package analyzer

import (
	"context"
	"image"
	"time"
)

// AnalysisResult is the outcome of one image analysis pass.
type AnalysisResult struct {
	Timestamp         time.Time
	ProcessingTimeSec float64

	// Coverage is the full table; percentages sum to 100.
	Coverage []CoverageEntry
	// Visible is Coverage after the MinPercentage presentation filter.
	Visible  []CoverageEntry
	Clusters []ColorCluster

	SourceBounds   image.Rectangle
	Processed      *image.NRGBA
	FilteredPixels int
}

// coreAnalyzer implements ImageAnalyzer and wires the quantizer to the mapper
type coreAnalyzer struct {
	clusterer Clusterer
	quantizer *ColorQuantizer
	mapper    *PaletteMapper
}

// NewImageAnalyzer creates an analyzer over the reference palette
func NewImageAnalyzer(clusterer Clusterer) (ImageAnalyzer, error) {
	if clusterer == nil {
		clusterer = NewLloydClusterer()
	}
	return &coreAnalyzer{
		clusterer: clusterer,
		quantizer: NewColorQuantizer(clusterer),
		mapper:    NewReferencePaletteMapper(),
	}, nil
}

// Analyze runs the pipeline with default options
func (ca *coreAnalyzer) Analyze(ctx context.Context, img image.Image) (*AnalysisResult, error) {
	return ca.AnalyzeWithOptions(ctx, img, DefaultOptions())
}

// AnalyzeWithOptions quantizes img and maps the clusters onto the reference palette
func (ca *coreAnalyzer) AnalyzeWithOptions(ctx context.Context, img image.Image, options AnalysisOptions) (*AnalysisResult, error) {
	start := time.Now()
	if err := options.Validate(); err != nil {
		return nil, err
	}

	quantization, err := ca.quantizer.Quantize(ctx, img, options)
	if err != nil {
		return nil, err
	}

	coverage := ca.mapper.Map(quantization.Clusters)
	return &AnalysisResult{
		Timestamp:         start,
		ProcessingTimeSec: time.Since(start).Seconds(),
		Coverage:          coverage,
		Visible:           FilterCoverage(coverage, options.MinPercentage),
		Clusters:          quantization.Clusters,
		SourceBounds:      img.Bounds(),
		Processed:         quantization.Processed,
		FilteredPixels:    quantization.FilteredPixels,
	}, nil
}

// Engine returns the clustering engine
func (ca *coreAnalyzer) Engine() Clusterer {
	return ca.clusterer
}

// Close releases analyzer resources
func (ca *coreAnalyzer) Close() error {
	return nil
}
