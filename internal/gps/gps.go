package gps

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/adrianmo/go-nmea"

	"github.com/roman-kulish/skylink/internal/telemetry"
)

var ErrUnsupportedSentence = errors.New("unsupported sentence")

// FixParser accumulates a navigation fix from GGA, GLL and GNS sentences.
// Each sentence updates only the fields it carries, so the fix may be
// partial until every kind of sentence has been seen.
type FixParser struct {
	mu         sync.Mutex
	latitude   *float64
	longitude  *float64
	altitude   *float64
	satellites uint8
	time       string
}

func NewFixParser() *FixParser {
	return &FixParser{}
}

// Parse consumes one NMEA sentence. Sentences which are not used for
// navigation return ErrUnsupportedSentence and leave the fix untouched.
func (p *FixParser) Parse(line string) error {
	s, err := nmea.Parse(line)
	if err != nil {
		return fmt.Errorf("parsing sentence: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch m := s.(type) {
	case nmea.GGA:
		p.satellites = clampSatellites(m.NumSatellites)
		if m.FixQuality == nmea.Invalid {
			return nil
		}
		p.setPosition(m.Latitude, m.Longitude)
		p.altitude = ptr(m.Altitude)
		p.setTime(m.Time)

	case nmea.GLL:
		if m.Validity != nmea.ValidGLL {
			return nil
		}
		p.setPosition(m.Latitude, m.Longitude)
		p.setTime(m.Time)

	case nmea.GNS:
		p.satellites = clampSatellites(m.SVs)
		if !hasFix(m.Mode) {
			return nil
		}
		p.setPosition(m.Latitude, m.Longitude)
		p.altitude = ptr(m.Altitude)
		p.setTime(m.Time)

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSentence, s.DataType())
	}

	return nil
}

// Fix returns a copy of the fix accumulated so far
func (p *FixParser) Fix() telemetry.Position {
	p.mu.Lock()
	defer p.mu.Unlock()

	return telemetry.Position{
		Latitude:   copyPtr(p.latitude),
		Longitude:  copyPtr(p.longitude),
		Altitude:   copyPtr(p.altitude),
		Satellites: p.satellites,
		Time:       p.time,
	}
}

func (p *FixParser) setPosition(lat, lon float64) {
	p.latitude = ptr(lat)
	p.longitude = ptr(lon)
}

func (p *FixParser) setTime(t nmea.Time) {
	if !t.Valid {
		return
	}
	p.time = fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}

// hasFix reports whether any constellation in a GNS mode field has a fix
func hasFix(mode []string) bool {
	return slices.ContainsFunc(mode, func(m string) bool {
		return m != nmea.NoFixGNS
	})
}

func clampSatellites(n int64) uint8 {
	return uint8(min(max(n, 0), 255))
}

func ptr(v float64) *float64 {
	return &v
}

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
