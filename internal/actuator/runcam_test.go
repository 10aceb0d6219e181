package actuator

import (
	"bytes"
	"errors"
	"testing"
)

// mockPort records writes and serves reads from a canned reply. An empty
// reply behaves like a serial port hitting its read timeout.
type mockPort struct {
	written bytes.Buffer
	reply   *bytes.Reader
}

func newMockPort(reply ...byte) *mockPort {
	return &mockPort{reply: bytes.NewReader(reply)}
}

func (p *mockPort) Write(b []byte) (int, error) {
	return p.written.Write(b)
}

func (p *mockPort) Read(b []byte) (int, error) {
	if p.reply.Len() == 0 {
		return 0, nil
	}
	return p.reply.Read(b[:1])
}

func TestRunCam_Control(t *testing.T) {
	tests := []struct {
		name string
		fn   func(c *RunCam) error
		want []byte
	}{
		{"start", (*RunCam).StartRecording, []byte{0xCC, 0x01, 0x03, 0x98}},
		{"stop", (*RunCam).StopRecording, []byte{0xCC, 0x01, 0x04, 0xCC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := newMockPort()
			if err := tt.fn(NewRunCam(port)); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !bytes.Equal(port.written.Bytes(), tt.want) {
				t.Errorf("Expected % x, got % x", tt.want, port.written.Bytes())
			}
		})
	}
}

func TestRunCam_ReadInfo(t *testing.T) {
	port := newMockPort(0xCC, 0x04, 0x00, 0xC7, 0x5F)

	info, err := NewRunCam(port).ReadInfo()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if want := []byte{0xCC, 0x00, 0x60}; !bytes.Equal(port.written.Bytes(), want) {
		t.Errorf("Expected request % x, got % x", want, port.written.Bytes())
	}
	if info.ProtocolVersion != 4 {
		t.Errorf("Expected protocol version 4, got %d", info.ProtocolVersion)
	}
	if !info.Supports(FeatureStartRecording | FeatureStopRecording) {
		t.Errorf("Expected recording support, got features %#04x", info.Features)
	}
}

func TestRunCam_ReadInfoErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply []byte
		want  error
	}{
		{"no reply", nil, ErrNoReply},
		{"short reply", []byte{0xCC, 0x04}, ErrNoReply},
		{"bad header", []byte{0xAA, 0x04, 0x00, 0xC7, 0x5F}, ErrBadReply},
		{"bad checksum", []byte{0xCC, 0x04, 0x00, 0xC7, 0x00}, ErrBadReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunCam(newMockPort(tt.reply...)).ReadInfo()
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
