package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/roman-kulish/skylink/internal/command"
	"github.com/roman-kulish/skylink/internal/frame"
	"github.com/roman-kulish/skylink/internal/logging"
)

func TestParseOperatorCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    command.Command
		wantErr bool
	}{
		{"high-power on", command.EnableHighPower, false},
		{"  High-Power   OFF ", command.DisableHighPower, false},
		{"record start", command.StartRecording, false},
		{"record stop", command.StopRecording, false},
		{"status", command.RequestStatus, false},
		{"start-recording", command.StartRecording, false},
		{"disable-high-power", command.DisableHighPower, false},
		{"70", command.EnableHighPower, false},
		{"208", command.Command(208), false},
		{"256", 0, true},
		{"-1", 0, true},
		{"launch", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOperatorCommand(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

type sentCommand struct {
	sessionID int64
	code      uint8
	name      string
}

type mockRecorder struct {
	mu       sync.Mutex
	commands []sentCommand
	err      error
}

func (r *mockRecorder) StoreCommand(_ context.Context, sessionID int64, _ time.Time, code uint8, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, sentCommand{sessionID, code, name})
	return r.err
}

type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("port closed")
}

func TestUplink_Send(t *testing.T) {
	var out bytes.Buffer
	recorder := &mockRecorder{}
	u := NewUplink(&out, recorder, 4, logging.Discard())

	if err := u.Send(context.Background(), command.RequestStatus); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []byte{71, 0xC9, frame.Separator}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("Expected frame %x, got %x", want, out.Bytes())
	}

	if len(recorder.commands) != 1 {
		t.Fatalf("Expected 1 recorded command, got %d", len(recorder.commands))
	}
	if got := recorder.commands[0]; got != (sentCommand{4, 71, "request-status"}) {
		t.Errorf("Unexpected recorded command: %+v", got)
	}
}

func TestUplink_SendRecorderFailure(t *testing.T) {
	var out bytes.Buffer
	u := NewUplink(&out, &mockRecorder{err: errors.New("disk full")}, 1, logging.Discard())

	if err := u.Send(context.Background(), command.StopRecording); err != nil {
		t.Errorf("Expected the command to be sent regardless, got %v", err)
	}
	if out.Len() != frame.UplinkSize {
		t.Errorf("Expected %d bytes written, got %d", frame.UplinkSize, out.Len())
	}
}

func TestUplink_SendWriteFailure(t *testing.T) {
	recorder := &mockRecorder{}
	u := NewUplink(failingWriter{}, recorder, 1, logging.Discard())

	if err := u.Send(context.Background(), command.StartRecording); err == nil {
		t.Fatal("Expected error")
	}
	if len(recorder.commands) != 0 {
		t.Errorf("Expected nothing recorded, got %d", len(recorder.commands))
	}
}

func TestUplink_ReadConsole(t *testing.T) {
	var out bytes.Buffer
	recorder := &mockRecorder{}
	u := NewUplink(&out, recorder, 1, logging.Discard())

	console := strings.NewReader("high-power on\n\nbogus\nrecord start\n")
	if err := u.ReadConsole(context.Background(), console); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var codes []uint8
	for _, c := range recorder.commands {
		codes = append(codes, c.code)
	}
	if len(codes) != 2 || codes[0] != 70 || codes[1] != 90 {
		t.Errorf("Expected codes [70 90], got %v", codes)
	}
	if out.Len() != 2*frame.UplinkSize {
		t.Errorf("Expected %d bytes written, got %d", 2*frame.UplinkSize, out.Len())
	}
}
