package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
)

// Version of the downlink payload layout
const Version = 1

// Provider is anything that can produce the next telemetry packet
type Provider interface {
	Next() *Packet
}

// Packet is one downlink telemetry sample. Every sub-record is optional:
// a sensor which is missing or has not produced a reading yet is simply
// omitted from the packet.
type Packet struct {
	Version     int          `json:"v"`               // Payload layout version
	Sequence    uint8        `json:"seq"`             // Wraps from 255 to 0
	Position    *Position    `json:"gps,omitempty"`   // GPS fix, possibly partial
	Environment *Environment `json:"env,omitempty"`   // Barometric pressure and temperature
	Power       *Power       `json:"power,omitempty"` // Bus voltage and current draw
}

// Position is the accumulated GPS fix
type Position struct {
	Latitude   *float64 `json:"lat,omitempty"`  // Latitude in degrees, north positive
	Longitude  *float64 `json:"lon,omitempty"`  // Longitude in degrees, east positive
	Altitude   *float64 `json:"alt,omitempty"`  // Altitude above mean sea level in meters
	Satellites uint8    `json:"sats"`           // Satellites used in the fix
	Time       string   `json:"time,omitempty"` // UTC time of the fix, hh:mm:ss.sss
}

// Environment is a barometer reading
type Environment struct {
	Pressure    float64 `json:"pressure"`    // Pressure in Pa
	Temperature float64 `json:"temperature"` // Temperature in °C
}

// Power is a power monitor reading
type Power struct {
	Voltage float64 `json:"voltage"` // Bus voltage in mV
	Current float64 `json:"current"` // Current in mA
}

// Marshal serializes the packet into its compact wire form. Values which
// cannot be represented (NaN, ±Inf) are dropped rather than failing the
// whole packet.
func (p *Packet) Marshal() ([]byte, error) {
	data, err := json.Marshal(p.normalized())
	if err != nil {
		return nil, fmt.Errorf("marshaling packet: %w", err)
	}
	return data, nil
}

// Unmarshal parses a payload produced by Marshal
func Unmarshal(data []byte) (*Packet, error) {
	var p Packet
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshaling packet: %w", err)
	}
	return &p, nil
}

func (p *Packet) normalized() *Packet {
	n := *p

	if p.Position != nil {
		pos := *p.Position
		pos.Latitude = finite(pos.Latitude)
		pos.Longitude = finite(pos.Longitude)
		pos.Altitude = finite(pos.Altitude)
		n.Position = &pos
	}

	if e := p.Environment; e != nil && !(isFinite(e.Pressure) && isFinite(e.Temperature)) {
		n.Environment = nil
	}

	if pw := p.Power; pw != nil && !(isFinite(pw.Voltage) && isFinite(pw.Current)) {
		n.Power = nil
	}

	return &n
}

func finite(f *float64) *float64 {
	if f == nil || !isFinite(*f) {
		return nil
	}
	return f
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
