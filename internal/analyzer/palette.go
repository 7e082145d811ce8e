package analyzer

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// PixelColor is a single RGB value with 8-bit channels.
type PixelColor struct {
	R, G, B uint8
}

// Tuple returns the channels as an array, the representation used in API payloads.
func (c PixelColor) Tuple() [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

// Colorful converts the color for go-colorful based formatting and rendering.
func (c PixelColor) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// Hex returns the "#rrggbb" form of the color.
func (c PixelColor) Hex() string {
	return c.Colorful().Hex()
}

func (c PixelColor) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// Less orders colors by their channel tuple, R first.
func (c PixelColor) Less(o PixelColor) bool {
	if c.R != o.R {
		return c.R < o.R
	}
	if c.G != o.G {
		return c.G < o.G
	}
	return c.B < o.B
}

// ParsePixelColor reads a color from its hex form ("#rrggbb").
func ParsePixelColor(s string) (PixelColor, error) {
	col, err := colorful.Hex(s)
	if err != nil {
		return PixelColor{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := col.RGB255()
	return PixelColor{R: r, G: g, B: b}, nil
}

const (
	// ClusterCount is the number of k-means clusters per image.
	ClusterCount = 14
	// DownscaleFactor divides both image dimensions before clustering.
	DownscaleFactor = 4
	// NeutralThreshold is the channel distance used by IsNeutral.
	NeutralThreshold = 30
	// FirstColorNumber is the Color Number of the lightest reference color.
	FirstColorNumber = 4
	// DefaultMinPercentage is the presentation cut-off for coverage rows.
	DefaultMinPercentage = 1.0
)

// referencePalette runs from the darkest to the lightest skin tone.
var referencePalette = [ClusterCount]PixelColor{
	{77, 62, 59}, {93, 71, 63}, {108, 81, 67}, {124, 91, 71}, {140, 102, 76},
	{157, 112, 80}, {173, 123, 84}, {190, 134, 88}, {200, 148, 102}, {210, 162, 115},
	{219, 176, 129}, {229, 190, 143}, {238, 205, 157}, {247, 219, 172},
}

var referenceColorNumbers = colorNumbers(referencePalette[:])

// ReferencePalette returns a copy of the reference skin tones, darkest first.
func ReferencePalette() []PixelColor {
	out := make([]PixelColor, len(referencePalette))
	copy(out, referencePalette[:])
	return out
}

// ColorNumber returns the Color Number of a reference color.
func ColorNumber(c PixelColor) (int, bool) {
	n, ok := referenceColorNumbers[c]
	return n, ok
}

// colorNumbers enumerates the palette in reverse, starting at FirstColorNumber.
func colorNumbers(palette []PixelColor) map[PixelColor]int {
	numbers := make(map[PixelColor]int, len(palette))
	for i := len(palette) - 1; i >= 0; i-- {
		numbers[palette[i]] = FirstColorNumber + (len(palette) - 1 - i)
	}
	return numbers
}

// ReferenceEntry describes one palette color for listings.
type ReferenceEntry struct {
	Color       PixelColor
	ColorNumber int
}

// ReferenceTable lists the palette in definition order with Color Numbers.
func ReferenceTable() []ReferenceEntry {
	table := make([]ReferenceEntry, 0, len(referencePalette))
	for _, c := range referencePalette {
		table = append(table, ReferenceEntry{Color: c, ColorNumber: referenceColorNumbers[c]})
	}
	return table
}
