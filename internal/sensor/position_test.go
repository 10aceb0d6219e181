package sensor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/skylink/internal/slot"
	"github.com/roman-kulish/skylink/internal/telemetry"
)

// mockParser accepts every sentence starting with "$GP" and counts them
// as satellites so the published fix shows how many were accepted
type mockParser struct {
	lines []string
}

func (m *mockParser) Parse(line string) error {
	if !strings.HasPrefix(line, "$GP") {
		return errors.New("unsupported sentence")
	}
	m.lines = append(m.lines, line)
	return nil
}

func (m *mockParser) Fix() telemetry.Position {
	return telemetry.Position{Satellites: uint8(len(m.lines))}
}

func TestLineSplitter(t *testing.T) {
	long := "$" + strings.Repeat("A", MaxLineLength+10)

	tests := []struct {
		name   string
		stream string
		want   []string
	}{
		{"crlf", "$GPGGA,1\r\n$GPGLL,2\r\n", []string{"$GPGGA,1", "$GPGLL,2"}},
		{"lf only", "$GPGGA,1\n", []string{"$GPGGA,1"}},
		{"garbage prefix", "xx,12$GPGGA,1\r\n", []string{"$GPGGA,1"}},
		{"no start", "GPGGA,1\r\n$GPGLL,2\n", []string{"$GPGLL,2"}},
		{"empty lines", "\n\r\n$GPGGA,1\n", []string{"$GPGGA,1"}},
		{"partial", "$GPGGA,1\n$GPGL", []string{"$GPGGA,1"}},
		{"overflow", long + "\n$GPGGA,1\n", []string{"$GPGGA,1"}},
		{"overflow resync mid line", long + "$GPGLL,2\n", []string{"$GPGLL,2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lineSplitter{buf: make([]byte, 0, MaxLineLength)}

			var got []string
			for _, b := range []byte(tt.stream) {
				if line, ok := l.feed(b); ok {
					got = append(got, line)
				}
				if len(l.buf) > MaxLineLength {
					t.Fatalf("Accumulator grew to %d bytes", len(l.buf))
				}
			}

			if len(got) != len(tt.want) {
				t.Fatalf("Expected %q, got %q", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Line %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestPositionSource_Run(t *testing.T) {
	stream := "$GPGGA,1\r\n$GNRMC,2\r\n$GPGLL,3\r\n"
	p := &mockParser{}
	s := slot.New[telemetry.Position]()

	err := NewPositionSource(strings.NewReader(stream), p, s).Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	fix, ok := s.Get()
	if !ok {
		t.Fatal("Expected a published fix")
	}
	if fix.Satellites != 2 {
		t.Errorf("Expected 2 accepted sentences, got %d", fix.Satellites)
	}
}

func TestPositionSource_NothingParsed(t *testing.T) {
	s := slot.New[telemetry.Position]()

	err := NewPositionSource(strings.NewReader("$GNRMC,1\r\n"), &mockParser{}, s).Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := s.Get(); ok {
		t.Error("Expected slot to stay empty")
	}
}

type brokenReader struct {
	calls int
}

func (r *brokenReader) Read([]byte) (int, error) {
	r.calls++
	return 0, io.ErrClosedPipe
}

func TestPositionSource_ReadFailure(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		calls   int
	}{
		{"stop", []Option{WithFailurePolicy(Stop)}, 1},
		{"threshold", []Option{WithMaxConsecutiveFailures(3)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &brokenReader{}
			opts := append([]Option{WithInterval(time.Millisecond)}, tt.options...)

			err := NewPositionSource(r, &mockParser{}, slot.New[telemetry.Position](), opts...).Run(context.Background())
			if !errors.Is(err, io.ErrClosedPipe) {
				t.Fatalf("Expected ErrClosedPipe, got %v", err)
			}
			if r.calls != tt.calls {
				t.Errorf("Expected %d reads, got %d", tt.calls, r.calls)
			}
		})
	}
}
