package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 120.0
	fontSize       = 9.0
	tickMarkLength = 5
	pixelsPerLabel = 150.0
	lineWidth      = 3
	markerSize     = 9
	legendWidth    = 20

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 110
	defaultBottomBorder = 70
	defaultRightBorder  = 120

	defaultDatetimeFormat = time.DateTime
)

var (
	backgroundColor = color.RGBA{R: 0xf4, G: 0xf4, B: 0xf0, A: 0xff}
	gridColor       = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	startColor      = color.RGBA{G: 0xa0, A: 0xff}
	endColor        = color.RGBA{R: 0xd0, A: 0xff}
)

// BorderConfig defines the sizes of white space around the map
type BorderConfig struct {
	Top    int // Space above the map
	Left   int // Space for the latitude scale
	Bottom int // Space for the longitude scale and information bar
	Right  int // Space for the altitude legend
}

// RenderConfig holds all configuration options for track visualization
type RenderConfig struct {
	Width, Height  int            // Map area size in pixels
	DatetimeFormat string         // Format string for date/time display
	Location       *time.Location // Timezone for time display
	FontSize       float64        // Font size in points
	ColorTheme     ColorTheme     // Color scheme for altitude
	NoAnnotations  bool           // Draw the bare track only
	BorderConfig   BorderConfig
}

// TrackInfo carries session details for the information bar
type TrackInfo struct {
	Node      string
	SessionID int64
	Packets   int64
}

// TrackRenderer draws a flight track colored by altitude
type TrackRenderer struct {
	config RenderConfig
}

// NewTrackRenderer creates a new track renderer with the given configuration
func NewTrackRenderer(config RenderConfig) (*TrackRenderer, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("invalid map size %dx%d", config.Width, config.Height)
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.ColorTheme == "" {
		config.ColorTheme = ClassicTheme
	}
	if config.NoAnnotations {
		config.BorderConfig = BorderConfig{}
	} else {
		if config.BorderConfig.Top == 0 {
			config.BorderConfig.Top = defaultTopBorder
		}
		if config.BorderConfig.Left == 0 {
			config.BorderConfig.Left = defaultLeftBorder
		}
		if config.BorderConfig.Bottom == 0 {
			config.BorderConfig.Bottom = defaultBottomBorder
		}
		if config.BorderConfig.Right == 0 {
			config.BorderConfig.Right = defaultRightBorder
		}
	}

	return &TrackRenderer{config: config}, nil
}

// Render creates an image of the track with annotations
func (r *TrackRenderer) Render(track *TrackData, info TrackInfo) (*image.RGBA, error) {
	if track.Empty() {
		return nil, fmt.Errorf("no positions to render")
	}

	b := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, r.config.Width+b.Left+b.Right, r.config.Height+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(b.Left, b.Top, b.Left+r.config.Width, b.Top+r.config.Height)
	draw.Draw(img, area, image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	proj := newProjection(track, area)
	mapper := NewAltitudeMapper(r.config.ColorTheme, track.AltitudeMin, track.AltitudeMax)

	if !r.config.NoAnnotations {
		ann, err := newAnnotator(r.config)
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, area, proj, track, mapper, info); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	r.renderTrack(img, area, proj, track, mapper)
	return img, nil
}

// renderTrack draws the track segments, each colored by the altitude at its
// end, then marks the first and the last position
func (r *TrackRenderer) renderTrack(img *image.RGBA, area image.Rectangle, proj projection, track *TrackData, mapper *AltitudeMapper) {
	prev := proj.point(track.Points[0].Latitude, track.Points[0].Longitude)
	for _, p := range track.Points[1:] {
		cur := proj.point(p.Latitude, p.Longitude)
		drawLine(img, area, prev, cur, mapper.Color(p.Altitude))
		prev = cur
	}

	first, last := track.Points[0], track.Points[len(track.Points)-1]
	drawMarker(img, area, proj.point(first.Latitude, first.Longitude), startColor)
	drawMarker(img, area, proj.point(last.Latitude, last.Longitude), endColor)
}

// drawLine rasterizes a thick line with Bresenham's algorithm
func drawLine(img *image.RGBA, clip image.Rectangle, from, to image.Point, c color.Color) {
	dx, dy := abs(to.X-from.X), -abs(to.Y-from.Y)
	sx, sy := sign(to.X-from.X), sign(to.Y-from.Y)
	e := dx + dy

	x, y := from.X, from.Y
	for {
		fillSquare(img, clip, image.Pt(x, y), lineWidth, c)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func drawMarker(img *image.RGBA, clip image.Rectangle, at image.Point, c color.Color) {
	fillSquare(img, clip, at, markerSize+2, color.White)
	fillSquare(img, clip, at, markerSize, c)
}

func fillSquare(img *image.RGBA, clip image.Rectangle, center image.Point, size int, c color.Color) {
	half := size / 2
	r := image.Rect(center.X-half, center.Y-half, center.X-half+size, center.Y-half+size).Intersect(clip)
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	fontFace font.Face
}

func newAnnotator(config RenderConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, proj projection, track *TrackData, mapper *AltitudeMapper, info TrackInfo) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawLatitudeScale(img, area, proj); err != nil {
		return fmt.Errorf("drawing latitude scale: %w", err)
	}
	if err := a.drawLongitudeScale(img, area, proj); err != nil {
		return fmt.Errorf("drawing longitude scale: %w", err)
	}
	if err := a.drawLegend(img, area, track, mapper); err != nil {
		return fmt.Errorf("drawing legend: %w", err)
	}
	if err := a.drawInfoBar(img, track, info); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawLatitudeScale(img *image.RGBA, area image.Rectangle, proj projection) error {
	top, bottom := proj.latitudeAt(area.Min.Y), proj.latitudeAt(area.Max.Y)
	step := calculateNiceStep(top-bottom, area.Dy())
	descent := a.fontFace.Metrics().Descent.Round()

	for lat := math.Ceil(bottom/step) * step; lat <= top; lat += step {
		y := proj.point(lat, proj.centerLon).Y

		for x := area.Min.X; x < area.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := formatCoordinate(lat, step)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(area.Min.X-tickMarkLength-4-width, y+a.fontHeight()/2-descent)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing latitude label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawLongitudeScale(img *image.RGBA, area image.Rectangle, proj projection) error {
	left, right := proj.longitudeAt(area.Min.X), proj.longitudeAt(area.Max.X)
	step := calculateNiceStep(right-left, area.Dx())

	for lon := math.Ceil(left/step) * step; lon <= right; lon += step {
		x := proj.point(proj.centerLat, lon).X

		for y := area.Min.Y; y < area.Max.Y; y++ {
			img.Set(x, y, gridColor)
		}
		for y := area.Max.Y; y < area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatCoordinate(lon, step)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(x-width/2, area.Max.Y+tickMarkLength+a.fontHeight())
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing longitude label: %w", err)
		}
	}
	return nil
}

// drawLegend draws the altitude gradient to the right of the map, highest
// altitude on top
func (a *annotator) drawLegend(img *image.RGBA, area image.Rectangle, track *TrackData, mapper *AltitudeMapper) error {
	if !track.HasAltitude {
		return nil
	}

	x0 := area.Max.X + 20
	bar := image.Rect(x0, area.Min.Y, x0+legendWidth, area.Max.Y)
	for y := bar.Min.Y; y < bar.Max.Y; y++ {
		v := 1 - float64(y-bar.Min.Y)/float64(bar.Dy()-1)
		draw.Draw(img, image.Rect(bar.Min.X, y, bar.Max.X, y+1), image.NewUniform(mapper.At(v)), image.Point{}, draw.Src)
	}

	labels := []struct {
		alt float64
		y   int
	}{
		{track.AltitudeMax, bar.Min.Y + a.fontHeight()},
		{track.AltitudeMin, bar.Max.Y},
	}
	for _, l := range labels {
		pt := freetype.Pt(bar.Max.X+4, l.y)
		if _, err := a.context.DrawString(formatAltitude(l.alt), pt); err != nil {
			return fmt.Errorf("drawing legend label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, track *TrackData, info TrackInfo) error {
	loc := a.config.Location

	lines := []string{
		fmt.Sprintf("Node: %s; Session: %d; Time: %s - %s (%s)",
			info.Node, info.SessionID,
			track.TimestampStart.In(loc).Format(a.config.DatetimeFormat),
			track.TimestampEnd.In(loc).Format(a.config.DatetimeFormat),
			track.TimestampEnd.Sub(track.TimestampStart).Round(time.Second)),
		fmt.Sprintf("Positions: %s of %s packets; Distance: %s",
			humanize.Comma(int64(len(track.Points))), humanize.Comma(info.Packets), formatDistance(track.Distance)),
	}
	if track.HasAltitude {
		lines[1] += fmt.Sprintf("; Altitude: %s - %s", formatAltitude(track.AltitudeMin), formatAltitude(track.AltitudeMax))
	}

	lineHeight := a.fontHeight() + 4
	y := img.Bounds().Max.Y - len(lines)*lineHeight + a.fontHeight() - a.fontFace.Metrics().Descent.Round()

	for _, s := range lines {
		if _, err := a.context.DrawString(s, freetype.Pt(a.config.BorderConfig.Left, y)); err != nil {
			return fmt.Errorf("drawing info text: %w", err)
		}
		y += lineHeight
	}
	return nil
}

// calculateNiceStep picks a 1, 2 or 5 times power of ten step giving about
// one label per pixelsPerLabel pixels
func calculateNiceStep(span float64, pixels int) float64 {
	if span <= 0 {
		return minSpanDegrees
	}

	target := span / math.Max(float64(pixels)/pixelsPerLabel, 1)
	magnitude := math.Pow(10, math.Floor(math.Log10(target)))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * magnitude; step >= target {
			return step
		}
	}
	return 10 * magnitude
}

// formatCoordinate prints degrees with as many decimals as the step needs
func formatCoordinate(deg, step float64) string {
	decimals := max(0, int(math.Ceil(-math.Log10(step)-1e-9)))
	return fmt.Sprintf("%.*f°", decimals, deg)
}

func formatAltitude(m float64) string {
	return fmt.Sprintf("%s m", humanize.CommafWithDigits(m, 1))
}

func formatDistance(m float64) string {
	v, prefix := humanize.ComputeSI(m)
	return fmt.Sprintf("%.2f %sm", v, prefix)
}
