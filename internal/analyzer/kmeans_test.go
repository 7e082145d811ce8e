package analyzer

import (
	"context"
	"errors"
	"testing"
)

// blockPixels returns n copies of each color, in order.
func blockPixels(n int, colors ...PixelColor) []PixelColor {
	out := make([]PixelColor, 0, n*len(colors))
	for _, c := range colors {
		for i := 0; i < n; i++ {
			out = append(out, c)
		}
	}
	return out
}

func totalCount(clusters []ColorCluster) int {
	var total int
	for _, c := range clusters {
		total += c.Count
	}
	return total
}

func TestLloydClusterer_InsufficientSamples(t *testing.T) {
	engine := NewLloydClusterer()
	pixels := blockPixels(13, PixelColor{190, 134, 88})

	_, err := engine.Cluster(context.Background(), pixels, ClusterCount)
	if err == nil {
		t.Fatal("Expected error for 13 samples and 14 clusters")
	}
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("Expected ErrInsufficientSamples, got %v", err)
	}
	var insufficient *InsufficientSamplesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected *InsufficientSamplesError, got %T", err)
	}
	if insufficient.Samples != 13 || insufficient.Clusters != 14 {
		t.Errorf("Unexpected error fields: %+v", insufficient)
	}
}

func TestLloydClusterer_ExactlyK(t *testing.T) {
	engine := NewLloydClusterer()
	pixels := make([]PixelColor, 0, ClusterCount)
	for i := 0; i < ClusterCount; i++ {
		pixels = append(pixels, PixelColor{uint8(60 + i*10), uint8(40 + i*5), 20})
	}

	clusters, err := engine.Cluster(context.Background(), pixels, ClusterCount)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(clusters) != ClusterCount {
		t.Fatalf("Expected %d clusters, got %d", ClusterCount, len(clusters))
	}
	for i, c := range clusters {
		if c.Count != 1 {
			t.Errorf("Cluster %d: expected exactly one member, got %d", i, c.Count)
		}
	}
}

func TestLloydClusterer_CountsSumToInput(t *testing.T) {
	engine := NewLloydClusterer()
	pixels := blockPixels(37,
		PixelColor{190, 134, 88},
		PixelColor{93, 71, 63},
		PixelColor{238, 205, 157},
		PixelColor{200, 80, 40},
	)

	clusters, err := engine.Cluster(context.Background(), pixels, ClusterCount)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(clusters) != ClusterCount {
		t.Fatalf("Expected %d clusters, got %d", ClusterCount, len(clusters))
	}
	if got := totalCount(clusters); got != len(pixels) {
		t.Errorf("Expected counts to sum to %d, got %d", len(pixels), got)
	}
}

func TestLloydClusterer_IdenticalPixels(t *testing.T) {
	engine := NewLloydClusterer()
	skin := PixelColor{190, 134, 88}
	pixels := blockPixels(50, skin)

	clusters, err := engine.Cluster(context.Background(), pixels, ClusterCount)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	empty := 0
	for _, c := range clusters {
		if c.Color != skin {
			t.Errorf("Expected every centroid to be %v, got %v", skin, c.Color)
		}
		if c.Count == 0 {
			empty++
		}
	}
	if empty != ClusterCount-1 {
		t.Errorf("Expected %d empty clusters, got %d", ClusterCount-1, empty)
	}
	if got := totalCount(clusters); got != 50 {
		t.Errorf("Expected counts to sum to 50, got %d", got)
	}
}

func TestLloydClusterer_Deterministic(t *testing.T) {
	pixels := make([]PixelColor, 0, 400)
	for i := 0; i < 400; i++ {
		pixels = append(pixels, PixelColor{uint8(80 + i%170), uint8(50 + (i*7)%150), uint8(30 + (i*13)%120)})
	}

	first, err := NewLloydClusterer().Cluster(context.Background(), pixels, ClusterCount)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := NewLloydClusterer().Cluster(context.Background(), pixels, ClusterCount)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Cluster %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
	if !NewLloydClusterer().Deterministic() {
		t.Error("Expected seeded engine to report determinism")
	}
}

func TestLloydClusterer_SeparatesDistinctColors(t *testing.T) {
	engine := NewLloydClusterer()
	colors := []PixelColor{{190, 134, 88}, {93, 71, 63}}
	pixels := blockPixels(30, colors...)

	clusters, err := engine.Cluster(context.Background(), pixels, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	found := map[PixelColor]int{}
	for _, c := range clusters {
		found[c.Color] = c.Count
	}
	for _, c := range colors {
		if found[c] != 30 {
			t.Errorf("Expected a cluster of 30 at %v, got %v", c, found)
		}
	}
}

func TestLloydClusterer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLloydClusterer().Cluster(ctx, blockPixels(20, PixelColor{190, 134, 88}), ClusterCount)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestLloydClusterer_InvalidK(t *testing.T) {
	if _, err := NewLloydClusterer().Cluster(context.Background(), blockPixels(5, PixelColor{1, 2, 3}), 0); err == nil {
		t.Error("Expected error for k = 0")
	}
}

func TestMuesliClusterer(t *testing.T) {
	engine := NewMuesliClusterer()
	if engine.Deterministic() {
		t.Error("Expected muesli engine to be non-deterministic")
	}

	pixels := blockPixels(40,
		PixelColor{190, 134, 88},
		PixelColor{93, 71, 63},
		PixelColor{238, 205, 157},
	)
	clusters, err := engine.Cluster(context.Background(), pixels, ClusterCount)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := totalCount(clusters); got != len(pixels) {
		t.Errorf("Expected counts to sum to %d, got %d", len(pixels), got)
	}

	_, err = engine.Cluster(context.Background(), pixels[:5], ClusterCount)
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("Expected ErrInsufficientSamples, got %v", err)
	}
}

func TestTruncChannel(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-3, 0},
		{0, 0},
		{189.99, 189},
		{190.5, 190},
		{255, 255},
		{300, 255},
	}
	for _, tt := range tests {
		if got := truncChannel(tt.in); got != tt.want {
			t.Errorf("truncChannel(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
