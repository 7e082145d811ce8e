package analyzer

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// CoverageEntry is the aggregated share of one reference color.
type CoverageEntry struct {
	Color       PixelColor
	Percentage  float64
	ColorNumber int
}

// PaletteMapper assigns clusters to their nearest reference color and
// aggregates coverage per reference color.
type PaletteMapper struct {
	palette []PixelColor
	vectors [][]float64
	numbers map[PixelColor]int
}

// NewPaletteMapper builds a mapper over palette, ordered darkest first.
// Color Numbers are assigned by enumerating the palette in reverse from FirstColorNumber.
func NewPaletteMapper(palette []PixelColor) *PaletteMapper {
	m := &PaletteMapper{
		palette: slices.Clone(palette),
		vectors: make([][]float64, len(palette)),
		numbers: colorNumbers(palette),
	}
	for i, c := range m.palette {
		m.vectors[i] = vector(c)
	}
	return m
}

// NewReferencePaletteMapper returns a mapper over the built-in skin tone palette.
func NewReferencePaletteMapper() *PaletteMapper {
	return NewPaletteMapper(referencePalette[:])
}

// Nearest returns the palette color closest to c by Euclidean distance.
// On equal distances the color that comes first in the palette wins.
func (m *PaletteMapper) Nearest(c PixelColor) PixelColor {
	v := vector(c)
	best, bestDist := 0, math.Inf(1)
	for i, ref := range m.vectors {
		if d := floats.Distance(v, ref, 2); d < bestDist {
			best, bestDist = i, d
		}
	}
	return m.palette[best]
}

// Map converts clusters into coverage entries sorted by channel tuple.
// Entries with zero coverage are dropped; the rest sum to 100.
func (m *PaletteMapper) Map(clusters []ColorCluster) []CoverageEntry {
	var total int
	for _, c := range clusters {
		total += c.Count
	}
	if total == 0 || len(m.palette) == 0 {
		return []CoverageEntry{}
	}

	shares := make(map[PixelColor]float64, len(m.palette))
	for _, c := range clusters {
		ref := m.Nearest(c.Color)
		shares[ref] += float64(c.Count) / float64(total) * 100
	}

	entries := make([]CoverageEntry, 0, len(shares))
	for ref, pct := range shares {
		if pct == 0 {
			continue
		}
		entries = append(entries, CoverageEntry{
			Color:       ref,
			Percentage:  pct,
			ColorNumber: m.numbers[ref],
		})
	}
	slices.SortFunc(entries, func(a, b CoverageEntry) int {
		switch {
		case a.Color.Less(b.Color):
			return -1
		case b.Color.Less(a.Color):
			return 1
		default:
			return 0
		}
	})
	return entries
}

// FilterCoverage keeps entries at or above minPercentage. It is a
// presentation step and breaks the 100% sum on purpose.
func FilterCoverage(entries []CoverageEntry, minPercentage float64) []CoverageEntry {
	out := make([]CoverageEntry, 0, len(entries))
	for _, e := range entries {
		if e.Percentage >= minPercentage {
			out = append(out, e)
		}
	}
	return out
}

func vector(c PixelColor) []float64 {
	return []float64{float64(c.R), float64(c.G), float64(c.B)}
}
