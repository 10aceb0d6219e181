package storage

import (
	"context"
	"time"

	"github.com/roman-kulish/skylink/internal/telemetry"
)

// Store persists what the ground station receives and sends over the radio
// link. Every ground station run is a session; packets and commands belong
// to exactly one session.
type Store interface {
	// CreateSession starts a new session for the given node. The config is
	// stored as is when it is a string or []byte, and as JSON otherwise.
	CreateSession(ctx context.Context, node string, config any) (sessionID int64, err error)

	// Session retrieves a session by its ID
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all sessions ordered by start time
	Sessions(ctx context.Context) ([]*Session, error)

	// StorePacket saves a decoded telemetry packet together with the raw
	// payload it was decoded from
	StorePacket(ctx context.Context, sessionID int64, receivedAt time.Time, p *telemetry.Packet, payload []byte) (packetID int64, err error)

	// StoreCommand records a command sent over the uplink
	StoreCommand(ctx context.Context, sessionID int64, sentAt time.Time, code uint8, name string) error

	// SessionStats summarizes the packets of a session
	SessionStats(ctx context.Context, sessionID int64) (*SessionStats, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}
