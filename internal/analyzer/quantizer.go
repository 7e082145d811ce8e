package analyzer

import (
	"context"
	"image"
	stddraw "image/draw"

	"golang.org/x/image/draw"
)

// ColorCluster is a k-means centroid, truncated to integer channels, and its member count.
type ColorCluster struct {
	Color PixelColor
	Count int
}

// Quantization is the output of ColorQuantizer for one image.
type Quantization struct {
	Clusters []ColorCluster
	// Processed is the downscaled RGB image the clusters were computed from.
	Processed *image.NRGBA
	// FilteredPixels is the number of non-neutral pixels that were clustered.
	FilteredPixels int
}

// ColorQuantizer reduces an image to ClusterCount representative colors.
type ColorQuantizer struct {
	clusterer Clusterer
}

// NewColorQuantizer creates a quantizer backed by the given clustering engine.
func NewColorQuantizer(clusterer Clusterer) *ColorQuantizer {
	if clusterer == nil {
		clusterer = NewLloydClusterer()
	}
	return &ColorQuantizer{clusterer: clusterer}
}

// Quantize converts img to RGB, downscales it, removes neutral pixels and
// clusters what is left.
func (q *ColorQuantizer) Quantize(ctx context.Context, img image.Image, options AnalysisOptions) (*Quantization, error) {
	processed := Downscale(ToNRGBA(img), options.DownscaleFactor)
	pixels := FilterPixels(processed, options.NeutralThreshold)

	clusters, err := q.clusterer.Cluster(ctx, pixels, options.ClusterCount)
	if err != nil {
		return nil, err
	}
	return &Quantization{
		Clusters:       clusters,
		Processed:      processed,
		FilteredPixels: len(pixels),
	}, nil
}

// ToNRGBA returns img as a non-premultiplied RGBA image with bounds starting at (0,0).
func ToNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	stddraw.Draw(dst, dst.Bounds(), img, bounds.Min, stddraw.Src)
	return dst
}

// Downscale divides both dimensions by factor (integer division) using
// nearest-neighbour sampling. A factor below 2 returns src unchanged.
func Downscale(src *image.NRGBA, factor int) *image.NRGBA {
	if factor < 2 {
		return src
	}
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx()/factor, bounds.Dy()/factor))
	if dst.Bounds().Empty() {
		return dst
	}
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst
}
