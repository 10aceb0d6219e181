package sensor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/skylink/internal/slot"
	"github.com/roman-kulish/skylink/internal/telemetry"
)

// MaxLineLength bounds the sentence accumulator. NMEA sentences are at most
// 82 characters long.
const MaxLineLength = 256

const sentenceStart = '$'

// FixParser folds NMEA sentences into a position fix
type FixParser interface {
	// Parse consumes one sentence, without the line terminator
	Parse(line string) error
	// Fix returns the position accumulated so far
	Fix() telemetry.Position
}

// PositionSource reads NMEA sentences from a GPS receiver stream and
// publishes the accumulated fix after every sentence that parses.
type PositionSource struct {
	in     io.Reader
	parser FixParser
	slot   *slot.Slot[telemetry.Position]
	lines  lineSplitter
	cfg    config
}

// NewPositionSource creates a new PositionSource
func NewPositionSource(in io.Reader, parser FixParser, s *slot.Slot[telemetry.Position], options ...Option) *PositionSource {
	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}
	cfg.logger = cfg.logger.With(slog.String("sensor", "gps"))

	return &PositionSource{
		in:     in,
		parser: parser,
		slot:   s,
		lines:  lineSplitter{buf: make([]byte, 0, MaxLineLength)},
		cfg:    cfg,
	}
}

// Run reads the stream until the context is cancelled, the stream ends or
// the failure policy gives up. A read returning no data is a read timeout
// and is not a failure.
func (s *PositionSource) Run(ctx context.Context) error {
	s.cfg.logger.Info("position source started")

	f := failures{policy: s.cfg.policy, max: s.cfg.maxFailures}
	chunk := make([]byte, 64)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.in.Read(chunk)
		for _, b := range chunk[:n] {
			if line, ok := s.lines.feed(b); ok {
				s.handle(line)
			}
		}

		if err == nil {
			if n > 0 {
				f.reset()
			}
			continue
		}

		if errors.Is(err, io.EOF) {
			s.cfg.logger.Info("position stream closed")
			return nil
		}

		if f.fail() {
			s.cfg.logger.Error("position read failed, source stopped", slog.Any("error", err), slog.Int("failures", f.count))
			return fmt.Errorf("reading position: %w", err)
		}

		s.cfg.logger.Warn("position read failed", slog.Any("error", err), slog.Int("failures", f.count))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.interval):
		}
	}
}

func (s *PositionSource) handle(line string) {
	if err := s.parser.Parse(line); err != nil {
		s.cfg.logger.Debug("sentence rejected", slog.String("sentence", line), slog.Any("error", err))
		return
	}
	s.slot.Set(s.parser.Fix())
}

// lineSplitter accumulates a byte stream into sentences starting with '$'
type lineSplitter struct {
	buf      []byte
	overflow bool
}

func (l *lineSplitter) feed(b byte) (string, bool) {
	if l.overflow {
		if b != sentenceStart {
			return "", false
		}
		l.overflow = false
	}

	if b != '\n' {
		if len(l.buf) >= MaxLineLength {
			l.buf = l.buf[:0]
			l.overflow = b != sentenceStart
			if l.overflow {
				return "", false
			}
		}
		l.buf = append(l.buf, b)
		return "", false
	}

	line := bytes.TrimSuffix(l.buf, []byte{'\r'})
	l.buf = l.buf[:0]

	i := bytes.IndexByte(line, sentenceStart)
	if i < 0 {
		return "", false
	}
	return string(line[i:]), true
}
