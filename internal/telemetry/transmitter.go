package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/skylink/internal/frame"
)

const (
	// DefaultInterval sends four packets per second
	DefaultInterval = 250 * time.Millisecond

	// statsEvery controls how often link statistics are logged, in packets
	statsEvery = 240
)

// Link is the outbound half of the radio link
type Link interface {
	io.Writer
	Flush() error
}

// WithLogger sets the logger for the transmitter
func WithLogger(logger *slog.Logger) func(t *Transmitter) {
	return func(t *Transmitter) {
		t.logger = logger.With(slog.String("task", "transmitter"))
	}
}

// WithInterval sets the tick period between two packets
func WithInterval(interval time.Duration) func(t *Transmitter) {
	return func(t *Transmitter) {
		t.interval = interval
	}
}

// WithMaxPayloadBytes sets the payload size above which a warning is logged.
// Zero disables the check.
func WithMaxPayloadBytes(n int) func(t *Transmitter) {
	return func(t *Transmitter) {
		t.maxPayload = n
	}
}

// Transmitter sends one downlink frame per tick. When a tick is missed
// because sending took longer than the period, the next packet is sent
// immediately and the missed ticks are dropped rather than caught up.
type Transmitter struct {
	provider Provider
	link     Link

	interval   time.Duration
	maxPayload int
	logger     *slog.Logger

	packets   uint64
	bytesSent uint64
}

// NewTransmitter creates a new Transmitter with a discard logger
func NewTransmitter(provider Provider, link Link, options ...func(t *Transmitter)) *Transmitter {
	t := Transmitter{
		provider: provider,
		link:     link,
		interval: DefaultInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&t)
	}

	return &t
}

// Run sends packets until the context is cancelled or the link fails.
// A link failure is returned as it means the transport is gone.
func (t *Transmitter) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("telemetry sending started",
		slog.Duration("interval", t.interval),
		slog.Int("maxPayloadBytes", t.maxPayload))

	for {
		if err := t.Send(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			t.logger.Info("telemetry sending stopped", slog.Uint64("packets", t.packets))
			return ctx.Err()

		case <-ticker.C:
		}
	}
}

// Send assembles, frames and writes one packet, then flushes the link
func (t *Transmitter) Send() error {
	packet := t.provider.Next()

	payload, err := packet.Marshal()
	if err != nil {
		// the next tick carries fresh data, nothing to retry
		t.logger.Error(err.Error(), slog.Int("seq", int(packet.Sequence)))
		return nil
	}

	if t.maxPayload > 0 && len(payload) > t.maxPayload {
		t.logger.Warn(fmt.Sprintf("packet size of %d bytes exceeds max of %d", len(payload), t.maxPayload),
			slog.Int("seq", int(packet.Sequence)))
	}

	data := frame.EncodeDownlink(payload)
	if _, err = t.link.Write(data); err != nil {
		return fmt.Errorf("writing downlink frame: %w", err)
	}
	if err = t.link.Flush(); err != nil {
		return fmt.Errorf("flushing downlink: %w", err)
	}

	t.packets++
	t.bytesSent += uint64(len(data))

	t.logger.Debug("packet sent",
		slog.Int("seq", int(packet.Sequence)),
		slog.Int("bytes", len(payload)),
		slog.Int("checksum", int(data[0])))

	if t.packets%statsEvery == 0 {
		t.logger.Info("downlink statistics",
			slog.Uint64("packets", t.packets),
			slog.String("sent", humanize.Bytes(t.bytesSent)))
	}

	return nil
}
