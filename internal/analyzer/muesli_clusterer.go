package analyzer

import (
	"context"
	"fmt"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// MuesliClusterer partitions pixels with github.com/muesli/kmeans.
// The library seeds itself from the clock, so results vary between runs.
type MuesliClusterer struct {
	km kmeans.Kmeans
}

// NewMuesliClusterer returns the engine with the library defaults.
func NewMuesliClusterer() *MuesliClusterer {
	return &MuesliClusterer{km: kmeans.New()}
}

func (m *MuesliClusterer) Name() string { return string(EngineMuesli) }

func (m *MuesliClusterer) Deterministic() bool { return false }

func (m *MuesliClusterer) Cluster(ctx context.Context, pixels []PixelColor, k int) ([]ColorCluster, error) {
	if k <= 0 {
		return nil, fmt.Errorf("cluster count must be > 0 (got %d)", k)
	}
	if len(pixels) < k {
		return nil, &InsufficientSamplesError{Samples: len(pixels), Clusters: k}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The library draws initial centers from [0,1), so coordinates are normalized.
	dataset := make(clusters.Observations, 0, len(pixels))
	for _, p := range pixels {
		dataset = append(dataset, clusters.Coordinates{
			float64(p.R) / 255.0,
			float64(p.G) / 255.0,
			float64(p.B) / 255.0,
		})
	}

	cc, err := m.km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans partition failed: %w", err)
	}

	// Partition can leave a reassigned point in two clusters on its last
	// iteration, so members are recounted against the final centers.
	centers := make([]point, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		centers = append(centers, point{c.Center[0], c.Center[1], c.Center[2]})
	}
	if len(centers) == 0 {
		return nil, fmt.Errorf("kmeans partition returned no clusters")
	}

	points := make([]point, len(dataset))
	for i, o := range dataset {
		coords := o.Coordinates()
		points[i] = point{coords[0], coords[1], coords[2]}
	}
	labels := make([]int, len(points))
	assignLabels(points, centers, labels)

	out := make([]ColorCluster, len(centers))
	for i, c := range centers {
		out[i].Color = PixelColor{R: denormalize(c[0]), G: denormalize(c[1]), B: denormalize(c[2])}
	}
	for _, l := range labels {
		out[l].Count++
	}
	return out, nil
}

// denormalize maps a [0,1] coordinate back to a channel value; the epsilon
// absorbs float error so exact channel means are not truncated one below.
func denormalize(v float64) uint8 {
	return truncChannel(v*255.0 + 1e-9)
}
