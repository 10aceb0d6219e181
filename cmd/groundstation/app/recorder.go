package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/roman-kulish/skylink/internal/storage"
)

const flushTimeout = 5 * time.Second

// PacketStore persists batches of received packets
type PacketStore interface {
	StorePackets(ctx context.Context, sessionID int64, batch []storage.ReceivedPacket) error
}

// Publisher republishes raw telemetry payloads
type Publisher interface {
	PublishTelemetry(payload []byte) error
}

// Recorder batches decoded packets into the store and hands every payload
// to the publisher as it arrives
type Recorder struct {
	store         PacketStore
	sessionID     int64
	publisher     Publisher
	maxBatchSize  int
	flushInterval time.Duration
	logger        *slog.Logger

	batch []storage.ReceivedPacket
}

func NewRecorder(store PacketStore, sessionID int64, publisher Publisher, maxBatchSize int, flushInterval time.Duration, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:         store,
		sessionID:     sessionID,
		publisher:     publisher,
		maxBatchSize:  maxBatchSize,
		flushInterval: flushInterval,
		logger:        logger.With(slog.String("task", "recorder")),
		batch:         make([]storage.ReceivedPacket, 0, maxBatchSize),
	}
}

// Run consumes packets until in is closed or the context is cancelled.
// Packets already queued in in and pending packets are flushed before
// returning.
func (r *Recorder) Run(ctx context.Context, in <-chan storage.ReceivedPacket) error {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	defer func() {
		// ctx may be gone already, the last batch still has to land
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		r.drain(flushCtx, in)
		r.flush(flushCtx)
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil

		case rp, ok := <-in:
			if !ok {
				return nil
			}

			r.add(ctx, rp)

		case <-ticker.C:
			r.flush(ctx)
		}
	}
}

func (r *Recorder) add(ctx context.Context, rp storage.ReceivedPacket) {
	r.logger.Debug("packet received",
		slog.Int("seq", int(rp.Packet.Sequence)),
		slog.Int("size", len(rp.Payload)))

	if r.publisher != nil {
		if err := r.publisher.PublishTelemetry(rp.Payload); err != nil {
			r.logger.Debug("telemetry not published", slog.Any("error", err))
		}
	}

	r.batch = append(r.batch, rp)
	if len(r.batch) >= r.maxBatchSize {
		r.flush(ctx)
	}
}

// drain takes whatever is queued in in without waiting for more
func (r *Recorder) drain(ctx context.Context, in <-chan storage.ReceivedPacket) {
	for {
		select {
		case rp, ok := <-in:
			if !ok {
				return
			}
			r.add(ctx, rp)
		default:
			return
		}
	}
}

func (r *Recorder) flush(ctx context.Context) {
	if len(r.batch) == 0 {
		return
	}

	if err := r.store.StorePackets(ctx, r.sessionID, r.batch); err != nil {
		r.logger.Error("storing packets", slog.Int("count", len(r.batch)), slog.Any("error", err))
	}

	clear(r.batch)
	r.batch = r.batch[:0]
}
