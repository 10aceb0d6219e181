package frame

import (
	"fmt"
	"time"
)

// EncodeDownlink wraps a serialized telemetry payload into a downlink frame.
// The payload must not contain the terminator byte.
func EncodeDownlink(payload []byte) []byte {
	data := make([]byte, 0, len(payload)+downlinkOverhead)
	data = append(data, Checksum(payload), Separator)
	data = append(data, payload...)
	return append(data, Terminator)
}

// DecodeDownlink validates a downlink frame, with or without its terminator,
// and returns the payload it carries.
func DecodeDownlink(data []byte) ([]byte, error) {
	if n := len(data); n > 0 && data[n-1] == Terminator {
		data = data[:n-1]
	}
	if len(data) < 2 || data[1] != Separator {
		return nil, fmt.Errorf("%w: missing separator", ErrMalformedFrame)
	}

	payload := data[2:]
	if want := Checksum(payload); want != data[0] {
		return nil, fmt.Errorf("%w: got %d, calculated %d", ErrChecksumMismatch, data[0], want)
	}

	return payload, nil
}

// EncodeUplink builds the three byte uplink frame for a command code
func EncodeUplink(code byte) [UplinkSize]byte {
	return [UplinkSize]byte{code, Checksum([]byte{code}), Separator}
}

// MaxPayloadBytes returns how many payload bytes a link running at baud can
// carry within one tick period without falling behind.
func MaxPayloadBytes(baud int, tick time.Duration) int {
	if baud <= 0 || tick <= 0 {
		return 0
	}
	return int(int64(baud/bitsPerByte) * int64(tick) / int64(time.Second))
}
