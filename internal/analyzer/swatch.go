package analyzer

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// DefaultSwatchCell is the side of one swatch tile in pixels.
const DefaultSwatchCell = 64

// RenderSwatch draws the reference palette as a strip of square tiles,
// ordered from the highest Color Number to the lowest.
func RenderSwatch(cell int) *image.NRGBA {
	if cell <= 0 {
		cell = DefaultSwatchCell
	}
	table := ReferenceTable()
	dst := imaging.New(cell*len(table), cell, color.NRGBA{})
	for i, entry := range table {
		c := entry.Color
		tile := imaging.New(cell, cell, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
		dst = imaging.Paste(dst, tile, image.Pt(i*cell, 0))
	}
	return dst
}
