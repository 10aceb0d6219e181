package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/skylink/internal/frame"
)

// WithReceiverLogger sets the logger for the receiver
func WithReceiverLogger(logger *slog.Logger) func(r *Receiver) {
	return func(r *Receiver) {
		r.logger = logger.With(slog.String("task", "receiver"))
	}
}

// Receiver recovers fixed size uplink frames from a continuous byte stream.
//
// Each frame is exactly three bytes: command code, checksum of the code and
// the separator. There is no escaping: any anomaly drops bytes until the
// stream lines up with a frame boundary again.
type Receiver struct {
	buf    [frame.UplinkSize]byte
	n      int
	logger *slog.Logger
}

// NewReceiver creates a new Receiver with a discard logger
func NewReceiver(options ...func(r *Receiver)) *Receiver {
	r := Receiver{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Feed consumes one byte from the stream. It returns the command and true
// when the byte completes a valid frame with a known command code.
func (r *Receiver) Feed(b byte) (Command, bool) {
	if r.n == 0 && b == frame.Separator {
		// the tail of a frame we lost the start of
		r.logger.Debug("separator out of position, dropped")
		return 0, false
	}

	r.buf[r.n] = b
	r.n++

	if r.n < frame.UplinkSize {
		return 0, false
	}

	if b != frame.Separator {
		r.logger.Debug("malformed frame, resynchronizing", slog.Any("buffer", r.buf[:r.n]))
		r.slide()
		return 0, false
	}

	code, check := r.buf[0], r.buf[1]
	r.n = 0

	cmd, err := r.decode(code, check)
	if err != nil {
		r.logger.Warn(err.Error())
		return 0, false
	}

	return cmd, true
}

// Len returns the number of bytes waiting for the rest of a frame
func (r *Receiver) Len() int {
	return r.n
}

// Reset discards any partially received frame
func (r *Receiver) Reset() {
	r.n = 0
}

// Run reads the uplink stream and pushes every valid command to out, in
// order of receipt. It blocks while out is full. A zero byte read is a read
// timeout and is retried; any other read error means the transport is gone
// and is returned.
func (r *Receiver) Run(ctx context.Context, in io.Reader, out chan<- Command) error {
	r.logger.Info("command receiving started")

	var b [1]byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := in.Read(b[:])
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("reading uplink: %w", io.ErrUnexpectedEOF)
			}
			return fmt.Errorf("reading uplink: %w", err)
		}
		if n == 0 {
			continue
		}

		cmd, ok := r.Feed(b[0])
		if !ok {
			continue
		}

		r.logger.Info("command received", slog.String("command", cmd.String()))

		select {
		case out <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Receiver) decode(code, check byte) (Command, error) {
	if want := frame.Checksum([]byte{code}); want != check {
		return 0, fmt.Errorf("discarding command %d: %w (%d != %d)", code, frame.ErrChecksumMismatch, check, want)
	}

	cmd, err := Parse(code)
	if err != nil {
		return 0, fmt.Errorf("discarding frame: %w", err)
	}

	return cmd, nil
}

// slide drops the oldest byte of a full, malformed window together with any
// separators which end up at the start of the buffer.
func (r *Receiver) slide() {
	copy(r.buf[:], r.buf[1:r.n])
	r.n--

	for r.n > 0 && r.buf[0] == frame.Separator {
		copy(r.buf[:], r.buf[1:r.n])
		r.n--
	}
}
