package storage

import (
	"database/sql"
	"time"
)

type packetData struct {
	SessionID   int64
	ReceivedAt  time.Time
	Sequence    int64
	Latitude    sql.NullFloat64
	Longitude   sql.NullFloat64
	Altitude    sql.NullFloat64
	Satellites  sql.NullInt64
	FixTime     sql.NullString
	Pressure    sql.NullFloat64
	Temperature sql.NullFloat64
	Voltage     sql.NullFloat64
	Current     sql.NullFloat64
	Payload     string
}

type trackPointData struct {
	ReceivedAt sqliteDatetime
	Sequence   int64
	Latitude   float64
	Longitude  float64
	Altitude   sql.NullFloat64
	Satellites sql.NullInt64
}
