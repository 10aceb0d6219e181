package app

import (
	"image"
	"math"
	"testing"
	"time"

	"github.com/roman-kulish/skylink/internal/storage"
)

func ptr[T any](v T) *T {
	return &v
}

func testTrack(points ...storage.TrackPoint) *TrackData {
	t := NewTrackData()
	for i := range points {
		t.Update(&points[i])
	}
	return t
}

func TestTrackData_Update(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	track := testTrack(
		storage.TrackPoint{ReceivedAt: start, Latitude: 48.0, Longitude: 11.0, Altitude: ptr(500.0)},
		storage.TrackPoint{ReceivedAt: start.Add(time.Second), Latitude: 48.1, Longitude: 11.2},
		storage.TrackPoint{ReceivedAt: start.Add(2 * time.Second), Latitude: 47.9, Longitude: 11.1, Altitude: ptr(650.5)},
	)

	if len(track.Points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(track.Points))
	}
	if track.LatitudeMin != 47.9 || track.LatitudeMax != 48.1 {
		t.Errorf("Unexpected latitude range %f - %f", track.LatitudeMin, track.LatitudeMax)
	}
	if track.LongitudeMin != 11.0 || track.LongitudeMax != 11.2 {
		t.Errorf("Unexpected longitude range %f - %f", track.LongitudeMin, track.LongitudeMax)
	}
	if !track.HasAltitude || track.AltitudeMin != 500 || track.AltitudeMax != 650.5 {
		t.Errorf("Unexpected altitude range %v %f - %f", track.HasAltitude, track.AltitudeMin, track.AltitudeMax)
	}
	if !track.TimestampStart.Equal(start) || !track.TimestampEnd.Equal(start.Add(2*time.Second)) {
		t.Errorf("Unexpected time range %s - %s", track.TimestampStart, track.TimestampEnd)
	}
	if track.Distance <= 0 {
		t.Errorf("Expected a positive distance, got %f", track.Distance)
	}
}

func TestTrackData_NoAltitude(t *testing.T) {
	track := testTrack(storage.TrackPoint{Latitude: 1, Longitude: 2})
	if track.HasAltitude {
		t.Error("Expected no altitude")
	}
	if track.Distance != 0 {
		t.Errorf("Expected zero distance for a single point, got %f", track.Distance)
	}
}

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"same point", 10, 10, 10, 10, 0},
		{"one degree of latitude", 0, 0, 1, 0, 111195},
		{"one degree of longitude at equator", 0, 0, 0, 1, 111195},
		{"across antimeridian", 0, 179.5, 0, -179.5, 111195},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > 10 {
				t.Errorf("Expected about %.0f m, got %.0f m", tt.want, got)
			}
		})
	}
}

func TestProjection(t *testing.T) {
	track := testTrack(
		storage.TrackPoint{Latitude: 48.0, Longitude: 11.0},
		storage.TrackPoint{Latitude: 48.2, Longitude: 11.4},
	)
	area := image.Rect(100, 50, 900, 650)
	proj := newProjection(track, area)

	sw := proj.point(48.0, 11.0)
	ne := proj.point(48.2, 11.4)

	for _, p := range []image.Point{sw, ne} {
		if !p.In(area) {
			t.Errorf("Expected %v inside %v", p, area)
		}
	}
	if ne.Y >= sw.Y {
		t.Errorf("Expected north up, got north %d south %d", ne.Y, sw.Y)
	}
	if ne.X <= sw.X {
		t.Errorf("Expected east right, got east %d west %d", ne.X, sw.X)
	}

	// same ground distance north and east should span the same pixels
	cos := math.Cos(radians(48.1))
	n := proj.point(48.1+0.05, 11.2)
	e := proj.point(48.1, 11.2+0.05/cos)
	c := proj.point(48.1, 11.2)
	if dy, dx := c.Y-n.Y, e.X-c.X; abs(dy-dx) > 1 {
		t.Errorf("Expected equal scale, got dx=%d dy=%d", dx, dy)
	}

	if lat := proj.latitudeAt(proj.point(48.15, 11.2).Y); math.Abs(lat-48.15) > 0.001 {
		t.Errorf("Expected latitude 48.15, got %f", lat)
	}
	if lon := proj.longitudeAt(proj.point(48.1, 11.3).X); math.Abs(lon-11.3) > 0.001 {
		t.Errorf("Expected longitude 11.3, got %f", lon)
	}
}

func TestProjection_SinglePoint(t *testing.T) {
	track := testTrack(storage.TrackPoint{Latitude: -33.9, Longitude: 151.2})
	area := image.Rect(0, 0, 400, 300)

	p := newProjection(track, area).point(-33.9, 151.2)
	if p != image.Pt(200, 150) {
		t.Errorf("Expected the point centered, got %v", p)
	}
}
