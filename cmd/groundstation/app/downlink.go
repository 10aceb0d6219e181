package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roman-kulish/skylink/internal/frame"
	"github.com/roman-kulish/skylink/internal/storage"
	"github.com/roman-kulish/skylink/internal/telemetry"
)

// DownlinkStats counts what arrived over the downlink
type DownlinkStats struct {
	Frames    uint64    // Valid packets
	Rejected  uint64    // Frames failing the checksum or payload decoding
	Lost      uint64    // Packets missing according to the sequence numbers
	Discarded int       // Bytes dropped while resynchronizing
	LastSeen  time.Time // Arrival of the last valid packet
}

// sequenceTracker counts gaps in the wrapping 8 bit packet sequence
type sequenceTracker struct {
	last  uint8
	valid bool
}

// observe returns how many packets went missing before seq
func (s *sequenceTracker) observe(seq uint8) int {
	defer func() {
		s.last, s.valid = seq, true
	}()

	if !s.valid || seq == s.last {
		return 0
	}
	return int(seq-s.last) - 1
}

// Downlink decodes telemetry frames from the radio stream
type Downlink struct {
	decoder *frame.DownlinkDecoder
	seq     sequenceTracker
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	stats DownlinkStats
}

func NewDownlink(logger *slog.Logger) *Downlink {
	return &Downlink{
		decoder: frame.NewDownlinkDecoder(0),
		logger:  logger.With(slog.String("task", "downlink")),
		now:     time.Now,
	}
}

// Feed consumes one byte of the stream and returns a packet when the byte
// completes a valid frame
func (d *Downlink) Feed(b byte) (*storage.ReceivedPacket, bool) {
	raw, ok := d.decoder.Feed(b)
	if !ok {
		return nil, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Discarded = d.decoder.Discarded()

	payload, err := frame.DecodeDownlink(raw)
	if err != nil {
		d.stats.Rejected++
		d.logger.Warn("frame rejected", slog.Any("error", err))
		return nil, false
	}

	p, err := telemetry.Unmarshal(payload)
	if err != nil {
		d.stats.Rejected++
		d.logger.Warn("payload rejected", slog.Any("error", err))
		return nil, false
	}

	if lost := d.seq.observe(p.Sequence); lost > 0 {
		d.stats.Lost += uint64(lost)
		d.logger.Info("packets lost", slog.Int("count", lost), slog.Int("seq", int(p.Sequence)))
	}

	d.stats.Frames++
	d.stats.LastSeen = d.now()

	return &storage.ReceivedPacket{
		ReceivedAt: d.stats.LastSeen,
		Packet:     p,
		Payload:    append([]byte(nil), payload...),
	}, true
}

// Stats returns a snapshot of the counters
func (d *Downlink) Stats() DownlinkStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Run reads the radio stream and pushes decoded packets to out. Empty reads
// are read timeouts; any other read error means the radio is gone.
func (d *Downlink) Run(ctx context.Context, r io.Reader, out chan<- storage.ReceivedPacket) error {
	d.logger.Info("downlink receiving started")

	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			rp, ok := d.Feed(b)
			if !ok {
				continue
			}

			select {
			case out <- *rp:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("reading downlink: %w", io.ErrUnexpectedEOF)
			}
			return fmt.Errorf("reading downlink: %w", err)
		}
	}
}
