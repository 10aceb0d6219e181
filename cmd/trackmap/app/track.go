package app

import (
	"image"
	"math"
	"time"

	"github.com/roman-kulish/skylink/internal/storage"
)

const (
	earthRadius = 6371008.8 // meters, mean radius

	// Smallest span the map covers, about a meter, so a hovering node still
	// gets a finite scale
	minSpanDegrees = 1e-5

	mapPadding = 0.05
)

// TrackData accumulates the positions of a session and their extent
type TrackData struct {
	Points                       []storage.TrackPoint
	LatitudeMin, LatitudeMax     float64
	LongitudeMin, LongitudeMax   float64
	AltitudeMin, AltitudeMax     float64
	HasAltitude                  bool
	TimestampStart, TimestampEnd time.Time
	Distance                     float64 // Ground distance along the track in meters
}

func NewTrackData() *TrackData {
	return &TrackData{
		LatitudeMin:  math.MaxFloat64,
		LatitudeMax:  -math.MaxFloat64,
		LongitudeMin: math.MaxFloat64,
		LongitudeMax: -math.MaxFloat64,
	}
}

func (t *TrackData) Update(p *storage.TrackPoint) {
	if n := len(t.Points); n > 0 {
		prev := t.Points[n-1]
		t.Distance += haversine(prev.Latitude, prev.Longitude, p.Latitude, p.Longitude)
	}
	t.Points = append(t.Points, *p)

	t.LatitudeMin = min(t.LatitudeMin, p.Latitude)
	t.LatitudeMax = max(t.LatitudeMax, p.Latitude)
	t.LongitudeMin = min(t.LongitudeMin, p.Longitude)
	t.LongitudeMax = max(t.LongitudeMax, p.Longitude)

	if p.Altitude != nil {
		if !t.HasAltitude {
			t.AltitudeMin, t.AltitudeMax = *p.Altitude, *p.Altitude
			t.HasAltitude = true
		}
		t.AltitudeMin = min(t.AltitudeMin, *p.Altitude)
		t.AltitudeMax = max(t.AltitudeMax, *p.Altitude)
	}

	if t.TimestampStart.IsZero() || t.TimestampStart.After(p.ReceivedAt) {
		t.TimestampStart = p.ReceivedAt
	}
	if t.TimestampEnd.IsZero() || t.TimestampEnd.Before(p.ReceivedAt) {
		t.TimestampEnd = p.ReceivedAt
	}
}

func (t *TrackData) Empty() bool {
	return len(t.Points) == 0
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	φ1, φ2 := radians(lat1), radians(lat2)
	dφ, dλ := radians(lat2-lat1), radians(lon2-lon1)

	a := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return 2 * earthRadius * math.Asin(math.Min(1, math.Sqrt(a)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// projection is an equirectangular projection of the track extent onto the
// map area, centered, keeping the aspect ratio and north up
type projection struct {
	area      image.Rectangle
	centerLat float64
	centerLon float64
	cosLat    float64
	pxPerDeg  float64
	cx, cy    float64
}

func newProjection(t *TrackData, area image.Rectangle) projection {
	p := projection{
		area:      area,
		centerLat: (t.LatitudeMin + t.LatitudeMax) / 2,
		centerLon: (t.LongitudeMin + t.LongitudeMax) / 2,
		cx:        float64(area.Min.X) + float64(area.Dx())/2,
		cy:        float64(area.Min.Y) + float64(area.Dy())/2,
	}
	p.cosLat = math.Max(math.Cos(radians(p.centerLat)), 1e-6)

	width := math.Max((t.LongitudeMax-t.LongitudeMin)*p.cosLat, minSpanDegrees)
	height := math.Max(t.LatitudeMax-t.LatitudeMin, minSpanDegrees)

	usable := 1 - 2*mapPadding
	p.pxPerDeg = math.Min(float64(area.Dx())*usable/width, float64(area.Dy())*usable/height)
	return p
}

func (p projection) point(lat, lon float64) image.Point {
	x := p.cx + (lon-p.centerLon)*p.cosLat*p.pxPerDeg
	y := p.cy - (lat-p.centerLat)*p.pxPerDeg
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

func (p projection) latitudeAt(y int) float64 {
	return p.centerLat - (float64(y)-p.cy)/p.pxPerDeg
}

func (p projection) longitudeAt(x int) float64 {
	return p.centerLon + (float64(x)-p.cx)/(p.pxPerDeg*p.cosLat)
}
