package analyzer

import (
	"image"
	"image/color"
	"testing"
)

func TestIsNeutral(t *testing.T) {
	tests := []struct {
		name  string
		color PixelColor
		want  bool
	}{
		{"mid gray", PixelColor{128, 128, 128}, true},
		{"black", PixelColor{0, 0, 0}, true},
		{"white", PixelColor{255, 255, 255}, true},
		{"near white", PixelColor{230, 240, 255}, true},
		{"near gray", PixelColor{100, 120, 110}, true},
		{"chromatic", PixelColor{200, 80, 40}, false},
		{"skin tone", PixelColor{190, 134, 88}, false},
		// Distance of exactly the threshold is not neutral
		{"threshold boundary gray", PixelColor{100, 130, 100}, false},
		{"threshold boundary white", PixelColor{225, 255, 255}, false},
		{"just inside white", PixelColor{226, 255, 255}, true},
		{"light skin", PixelColor{247, 219, 172}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNeutral(tt.color, NeutralThreshold); got != tt.want {
				t.Errorf("IsNeutral(%v) = %v, want %v", tt.color, got, tt.want)
			}
		})
	}
}

func TestIsNeutral_AllEqualChannels(t *testing.T) {
	for v := 0; v <= 255; v++ {
		c := PixelColor{uint8(v), uint8(v), uint8(v)}
		if !IsNeutral(c, NeutralThreshold) {
			t.Errorf("Expected %v to be neutral", c)
		}
	}
}

func TestFilterPixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{128, 128, 128, 255})
	img.Set(1, 0, color.NRGBA{190, 134, 88, 255})
	img.Set(2, 0, color.NRGBA{255, 255, 255, 255})
	img.Set(0, 1, color.NRGBA{200, 80, 40, 255})
	img.Set(1, 1, color.NRGBA{10, 10, 10, 255})
	img.Set(2, 1, color.NRGBA{157, 112, 80, 255})

	pixels := FilterPixels(img, NeutralThreshold)

	want := []PixelColor{{190, 134, 88}, {200, 80, 40}, {157, 112, 80}}
	if len(pixels) != len(want) {
		t.Fatalf("Expected %d pixels, got %d (%v)", len(want), len(pixels), pixels)
	}
	for i := range want {
		if pixels[i] != want[i] {
			t.Errorf("Pixel %d: expected %v, got %v", i, want[i], pixels[i])
		}
	}
}

func TestFilterPixels_SubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{128, 128, 128, 255})
		}
	}
	img.Set(2, 2, color.NRGBA{190, 134, 88, 255})

	sub := img.SubImage(image.Rect(2, 2, 4, 4)).(*image.NRGBA)
	pixels := FilterPixels(sub, NeutralThreshold)
	if len(pixels) != 1 || pixels[0] != (PixelColor{190, 134, 88}) {
		t.Errorf("Expected one skin pixel from the sub image, got %v", pixels)
	}
}
