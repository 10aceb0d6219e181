package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Switch drives the high power relay
type Switch interface {
	High() error
	Low() error
}

// Recorder controls the onboard camera
type Recorder interface {
	StartRecording() error
	StopRecording() error
}

// WithDispatcherLogger sets the logger for the dispatcher
func WithDispatcherLogger(logger *slog.Logger) func(d *Dispatcher) {
	return func(d *Dispatcher) {
		d.logger = logger.With(slog.String("task", "dispatcher"))
	}
}

// WithRecorder attaches a camera. Without one, recording commands are
// logged and ignored.
func WithRecorder(recorder Recorder) func(d *Dispatcher) {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

// Dispatcher executes received commands one at a time, in arrival order
type Dispatcher struct {
	relay    Switch
	recorder Recorder
	logger   *slog.Logger
}

// NewDispatcher creates a new Dispatcher driving relay
func NewDispatcher(relay Switch, options ...func(d *Dispatcher)) *Dispatcher {
	d := Dispatcher{
		relay:  relay,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// Run executes commands from in until the context is cancelled or in is
// closed. A failed action is logged and does not stop the loop.
func (d *Dispatcher) Run(ctx context.Context, in <-chan Command) error {
	d.logger.Info("command dispatching started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd, ok := <-in:
			if !ok {
				return nil
			}

			err := d.Apply(cmd)
			if errors.Is(err, ErrNotImplemented) {
				d.logger.Warn("command not implemented, ignored", slog.String("command", cmd.String()))
				continue
			}
			if err != nil {
				d.logger.Error("command failed", slog.String("command", cmd.String()), slog.Any("error", err))
				continue
			}

			d.logger.Info("command executed", slog.String("command", cmd.String()))
		}
	}
}

// Apply executes a single command
func (d *Dispatcher) Apply(cmd Command) error {
	switch cmd {
	case EnableHighPower:
		if d.relay == nil {
			return ErrNoActuator
		}
		return wrap(cmd, d.relay.High())

	case DisableHighPower:
		if d.relay == nil {
			return ErrNoActuator
		}
		return wrap(cmd, d.relay.Low())

	case StartRecording:
		if d.recorder == nil {
			return ErrNoActuator
		}
		return wrap(cmd, d.recorder.StartRecording())

	case StopRecording:
		if d.recorder == nil {
			return ErrNoActuator
		}
		return wrap(cmd, d.recorder.StopRecording())

	case RequestStatus:
		return ErrNotImplemented

	default:
		return fmt.Errorf("%w: %d", ErrUnknownCommand, uint8(cmd))
	}
}

func wrap(cmd Command, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}
