package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type mockActuator struct {
	calls []string
	err   error
}

func (m *mockActuator) record(name string) error {
	m.calls = append(m.calls, name)
	return m.err
}

func (m *mockActuator) High() error           { return m.record("high") }
func (m *mockActuator) Low() error            { return m.record("low") }
func (m *mockActuator) StartRecording() error { return m.record("start") }
func (m *mockActuator) StopRecording() error  { return m.record("stop") }

func TestDispatcher_Run(t *testing.T) {
	m := &mockActuator{}
	d := NewDispatcher(m, WithRecorder(m))

	in := make(chan Command, DefaultQueueSize)
	for _, c := range []Command{EnableHighPower, StartRecording, RequestStatus, StopRecording, DisableHighPower} {
		in <- c
	}
	close(in)

	if err := d.Run(context.Background(), in); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"high", "start", "stop", "low"}
	if len(m.calls) != len(want) {
		t.Fatalf("Expected calls %v, got %v", want, m.calls)
	}
	for i := range want {
		if m.calls[i] != want[i] {
			t.Errorf("Call %d: expected %s, got %s", i, want[i], m.calls[i])
		}
	}
}

func TestDispatcher_ContinuesAfterFailure(t *testing.T) {
	m := &mockActuator{err: errors.New("gpio busy")}
	d := NewDispatcher(m, WithRecorder(m))

	in := make(chan Command, 2)
	in <- EnableHighPower
	in <- DisableHighPower
	close(in)

	if err := d.Run(context.Background(), in); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(m.calls) != 2 {
		t.Errorf("Expected 2 calls, got %v", m.calls)
	}
}

func TestDispatcher_Apply(t *testing.T) {
	relay := &mockActuator{}
	d := NewDispatcher(relay)

	if err := d.Apply(StartRecording); !errors.Is(err, ErrNoActuator) {
		t.Errorf("Expected ErrNoActuator without a camera, got %v", err)
	}
	if err := d.Apply(RequestStatus); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Expected ErrNotImplemented, got %v", err)
	}
	if err := d.Apply(Command(1)); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}

	relay.err = errors.New("gpio busy")
	if err := d.Apply(EnableHighPower); !errors.Is(err, relay.err) {
		t.Errorf("Expected wrapped relay error, got %v", err)
	}
}

func TestDispatcher_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewDispatcher(nil).Run(ctx, make(chan Command))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected Canceled, got %v", err)
	}
}

func TestDispatcher_NotImplementedIgnored(t *testing.T) {
	var logs bytes.Buffer
	m := &mockActuator{}
	d := NewDispatcher(m, WithDispatcherLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	in := make(chan Command, 2)
	in <- RequestStatus
	in <- EnableHighPower
	close(in)

	if err := d.Run(context.Background(), in); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "not implemented") {
		t.Errorf("Expected a not implemented warning, got %q", out)
	}
	if strings.Contains(out, "level=ERROR") {
		t.Errorf("Expected no error records, got %q", out)
	}
	if len(m.calls) != 1 || m.calls[0] != "high" {
		t.Errorf("Expected calls [high], got %v", m.calls)
	}
}
