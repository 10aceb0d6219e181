package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/skylink/internal/telemetry"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && cErr != sql.ErrTxDone && *err == nil {
		*err = cErr
	}
}

func toConfigData(config any) (sql.NullString, error) {
	switch c := config.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: c, Valid: true}, nil
	case []byte:
		return sql.NullString{String: string(c), Valid: true}, nil
	default:
		p, err := json.Marshal(config)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("marshaling config: %w", err)
		}
		return sql.NullString{String: string(p), Valid: true}, nil
	}
}

func toPacketData(sessionID int64, receivedAt time.Time, p *telemetry.Packet, payload []byte) *packetData {
	data := packetData{
		SessionID:  sessionID,
		ReceivedAt: receivedAt.UTC(),
		Sequence:   int64(p.Sequence),
		Payload:    string(payload),
	}

	if pos := p.Position; pos != nil {
		data.Latitude = toNullFloat64(pos.Latitude)
		data.Longitude = toNullFloat64(pos.Longitude)
		data.Altitude = toNullFloat64(pos.Altitude)
		data.Satellites = sql.NullInt64{Int64: int64(pos.Satellites), Valid: true}
		data.FixTime = sql.NullString{String: pos.Time, Valid: pos.Time != ""}
	}

	if env := p.Environment; env != nil {
		data.Pressure = sql.NullFloat64{Float64: env.Pressure, Valid: true}
		data.Temperature = sql.NullFloat64{Float64: env.Temperature, Valid: true}
	}

	if pow := p.Power; pow != nil {
		data.Voltage = sql.NullFloat64{Float64: pow.Voltage, Valid: true}
		data.Current = sql.NullFloat64{Float64: pow.Current, Valid: true}
	}

	return &data
}

func toNullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromNullFloat64(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// sqliteDatetime scans DATETIME values which lost their declared type, e.g.
// the result of MIN() or MAX(), and come back from the driver as text
type sqliteDatetime struct {
	Datetime time.Time
	Valid    bool
}

func (d *sqliteDatetime) Scan(v any) error {
	var s string
	switch t := v.(type) {
	case nil:
		d.Datetime, d.Valid = time.Time{}, false
		return nil
	case time.Time:
		d.Datetime, d.Valid = t, true
		return nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return fmt.Errorf("unsupported datetime type %T", v)
	}

	s = strings.TrimSuffix(s, "Z")
	for _, format := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			d.Datetime, d.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("parsing datetime %q", s)
}
