package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red
	ThermalTheme   ColorTheme = "thermal"   // Dark red to yellow
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan
	GrayscaleTheme ColorTheme = "grayscale" // Black to light gray

	hueStart = 236.0
	hueEnd   = 0.0

	colorMapSize = 256
)

type ColorTheme string

var noDataColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

func validTheme(theme ColorTheme) bool {
	switch theme {
	case ClassicTheme, ThermalTheme, MarineTheme, GrayscaleTheme:
		return true
	}
	return false
}

// themeColor maps a normalized altitude [0-1] to a color
func themeColor(theme ColorTheme, v float64) colorful.Color {
	switch theme {
	case ThermalTheme:
		return colorful.Hsv(60*v, 1, 0.5+0.5*v)
	case MarineTheme:
		return colorful.Hsv(240-60*v, 1-0.6*v, 0.4+0.6*v)
	case GrayscaleTheme:
		return colorful.Hsv(0, 0, 0.85*v)
	default:
		return colorful.Hsv(hueStart-(hueStart-hueEnd)*v, 1, 0.90)
	}
}

// AltitudeMapper precomputes the colors of a theme for an altitude range
type AltitudeMapper struct {
	colors   []color.Color
	min, max float64
}

func NewAltitudeMapper(theme ColorTheme, minAlt, maxAlt float64) *AltitudeMapper {
	m := &AltitudeMapper{
		colors: make([]color.Color, colorMapSize),
		min:    minAlt,
		max:    maxAlt,
	}
	for i := range m.colors {
		m.colors[i] = themeColor(theme, float64(i)/float64(colorMapSize-1)).Clamped()
	}
	return m
}

// Color returns the color for an altitude. Unknown altitudes get a neutral
// gray; altitudes outside the range are clamped.
func (m *AltitudeMapper) Color(alt *float64) color.Color {
	if alt == nil {
		return noDataColor
	}
	return m.colors[m.index(*alt)]
}

// At returns the color at a normalized position of the range
func (m *AltitudeMapper) At(v float64) color.Color {
	return m.colors[int(math.Round(clamp(v, 0, 1)*(colorMapSize-1)))]
}

func (m *AltitudeMapper) index(alt float64) int {
	span := m.max - m.min
	if span <= 0 {
		return colorMapSize - 1
	}
	return int(math.Round(clamp((alt-m.min)/span, 0, 1) * (colorMapSize - 1)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
