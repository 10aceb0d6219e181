package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_packets_session_time ON packets (session_id, received_at);
CREATE INDEX IF NOT EXISTS idx_commands_session ON commands (session_id);`

	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      node,
                      config)
VALUES (?, ?, ?)`

	selectSessionSQL = `
SELECT id,
       start_time,
       node,
       config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       start_time,
       node,
       config
FROM sessions
ORDER BY start_time, id`

	insertPacketSQL = `
INSERT INTO packets (session_id,
                     received_at,
                     sequence,
                     latitude,
                     longitude,
                     altitude,
                     satellites,
                     fix_time,
                     pressure,
                     temperature,
                     voltage,
                     current,
                     payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertCommandSQL = `
INSERT INTO commands (session_id,
                      sent_at,
                      code,
                      name)
VALUES (?, ?, ?, ?)`

	selectSessionStatsSQL = `
SELECT COUNT(*),
       MIN(received_at),
       MAX(received_at),
       MAX(altitude),
       MIN(pressure)
FROM packets
WHERE session_id = ?`

	selectTrackSQL = `
SELECT received_at,
       sequence,
       latitude,
       longitude,
       altitude,
       satellites
FROM packets
WHERE session_id = ?
  AND latitude IS NOT NULL
  AND longitude IS NOT NULL
  AND (? IS NULL OR received_at >= ?)
  AND (? IS NULL OR received_at <= ?)
  AND COALESCE(satellites, 0) >= ?
ORDER BY received_at, id`
)
