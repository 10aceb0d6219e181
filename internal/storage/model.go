package storage

import (
	"time"

	"github.com/roman-kulish/skylink/internal/telemetry"
)

// Session is one ground station run
type Session struct {
	ID        int64
	StartTime time.Time
	Node      string
	Config    *string
}

// SessionStats summarizes the packets received in a session
type SessionStats struct {
	Packets     int64
	FirstSeen   time.Time
	LastSeen    time.Time
	MaxAltitude *float64 // nil when no packet carried an altitude
	MinPressure *float64 // Pa, nil when no packet carried a barometer reading
}

// TrackPoint is a position received from the node
type TrackPoint struct {
	ReceivedAt time.Time
	Sequence   uint8
	Latitude   float64
	Longitude  float64
	Altitude   *float64
	Satellites uint8
}

// ReceivedPacket is a decoded packet with its arrival time and raw payload
type ReceivedPacket struct {
	ReceivedAt time.Time
	Packet     *telemetry.Packet
	Payload    []byte
}
