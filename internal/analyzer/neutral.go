package analyzer

import (
	"image"
)

// IsNeutral reports whether c is near white or achromatic (gray, black).
// All comparisons are strict: a channel distance equal to threshold is not neutral.
func IsNeutral(c PixelColor, threshold int) bool {
	r, g, b := int(c.R), int(c.G), int(c.B)
	if abs(r-255) < threshold && abs(g-255) < threshold && abs(b-255) < threshold {
		return true
	}
	return abs(r-g) < threshold && abs(g-b) < threshold && abs(r-b) < threshold
}

// FilterPixels flattens img row by row and drops neutral pixels.
func FilterPixels(img *image.NRGBA, threshold int) []PixelColor {
	bounds := img.Bounds()
	pixels := make([]PixelColor, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y):]
		for x := 0; x < bounds.Dx(); x++ {
			c := PixelColor{R: row[x*4], G: row[x*4+1], B: row[x*4+2]}
			if IsNeutral(c, threshold) {
				continue
			}
			pixels = append(pixels, c)
		}
	}
	return pixels
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
