package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roman-kulish/skylink/internal/slot"
)

// Poller reads a sensor at a fixed interval and publishes every successful
// reading into a slot. Readers of the slot only ever see the latest value.
type Poller[T any] struct {
	name   string
	reader Reader[T]
	slot   *slot.Slot[T]
	cfg    config
}

// NewPoller creates a new Poller publishing the readings of reader into s
func NewPoller[T any](name string, reader Reader[T], s *slot.Slot[T], options ...Option) *Poller[T] {
	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}
	cfg.logger = cfg.logger.With(slog.String("sensor", name))

	return &Poller[T]{
		name:   name,
		reader: reader,
		slot:   s,
		cfg:    cfg,
	}
}

// Run polls until the context is cancelled or the source gives up. A source
// that fails to initialize never publishes; the slot stays empty.
func (p *Poller[T]) Run(ctx context.Context) error {
	if i, ok := p.reader.(Initializer); ok {
		if err := i.Init(ctx); err != nil {
			p.cfg.logger.Error("sensor initialization failed, source disabled", slog.Any("error", err))
			return fmt.Errorf("initializing %s: %w", p.name, err)
		}
	}

	p.cfg.logger.Info("sensor polling started", slog.Duration("interval", p.cfg.interval))

	ticker := time.NewTicker(p.cfg.interval)
	defer ticker.Stop()

	f := failures{policy: p.cfg.policy, max: p.cfg.maxFailures}

	for {
		if err := p.poll(ctx, &f); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller[T]) poll(ctx context.Context, f *failures) error {
	v, err := p.reader.Read(ctx)
	if err == nil {
		f.reset()
		p.slot.Set(v)
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if f.fail() {
		p.cfg.logger.Error("sensor read failed, source stopped",
			slog.Any("error", err),
			slog.Int("failures", f.count),
			slog.String("policy", f.policy.String()))

		if f.policy == Stop {
			return fmt.Errorf("reading %s: %w", p.name, err)
		}
		return fmt.Errorf("reading %s: %w: %w", p.name, ErrTooManyFailures, err)
	}

	p.cfg.logger.Warn("sensor read failed, skipping cycle", slog.Any("error", err), slog.Int("failures", f.count))
	return nil
}
