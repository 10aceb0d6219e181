package sensor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roman-kulish/skylink/internal/slot"
)

// mockReader returns the scripted results in order, then repeats the last one
type mockReader struct {
	mu      sync.Mutex
	values  []int
	errs    []error
	calls   int
	initErr error
}

func (m *mockReader) Read(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := min(m.calls, len(m.values)-1)
	m.calls++
	return m.values[i], m.errs[i]
}

func (m *mockReader) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type initReader struct {
	mockReader
}

func (r *initReader) Init(context.Context) error {
	return r.initErr
}

var errSensor = errors.New("i2c bus error")

func TestPoller_Publishes(t *testing.T) {
	r := &mockReader{values: []int{1, 2, 3}, errs: []error{nil, nil, nil}}
	s := slot.New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	err := NewPoller("test", r, s, WithInterval(5*time.Millisecond)).Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got %v", err)
	}

	v, ok := s.Get()
	if !ok || v != 3 {
		t.Errorf("Expected 3, got %d (set: %v)", v, ok)
	}
}

func TestPoller_SkipCycleKeepsLastValue(t *testing.T) {
	r := &mockReader{values: []int{7, 0}, errs: []error{nil, errSensor}}
	s := slot.New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	err := NewPoller("test", r, s, WithInterval(5*time.Millisecond)).Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got %v", err)
	}
	if r.Calls() < 3 {
		t.Errorf("Expected polling to continue after failures, got %d reads", r.Calls())
	}

	v, ok := s.Get()
	if !ok || v != 7 {
		t.Errorf("Expected last good value 7, got %d (set: %v)", v, ok)
	}
}

func TestPoller_StopPolicy(t *testing.T) {
	r := &mockReader{values: []int{1, 0}, errs: []error{nil, errSensor}}
	s := slot.New[int]()

	err := NewPoller("test", r, s,
		WithInterval(time.Millisecond),
		WithFailurePolicy(Stop),
	).Run(context.Background())

	if !errors.Is(err, errSensor) {
		t.Fatalf("Expected sensor error, got %v", err)
	}
	if r.Calls() != 2 {
		t.Errorf("Expected 2 reads, got %d", r.Calls())
	}
}

func TestPoller_MaxConsecutiveFailures(t *testing.T) {
	r := &mockReader{
		values: []int{1, 0, 2, 0, 0, 0},
		errs:   []error{nil, errSensor, nil, errSensor, errSensor, errSensor},
	}
	s := slot.New[int]()

	err := NewPoller("test", r, s,
		WithInterval(time.Millisecond),
		WithMaxConsecutiveFailures(3),
	).Run(context.Background())

	if !errors.Is(err, ErrTooManyFailures) {
		t.Fatalf("Expected ErrTooManyFailures, got %v", err)
	}
	if r.Calls() != 6 {
		t.Errorf("Expected 6 reads, got %d", r.Calls())
	}
	if v, _ := s.Get(); v != 2 {
		t.Errorf("Expected 2, got %d", v)
	}
}

func TestPoller_InitFailure(t *testing.T) {
	r := &initReader{mockReader{values: []int{1}, errs: []error{nil}, initErr: errSensor}}
	s := slot.New[int]()

	err := NewPoller("test", r, s).Run(context.Background())
	if !errors.Is(err, errSensor) {
		t.Fatalf("Expected init error, got %v", err)
	}
	if r.Calls() != 0 {
		t.Errorf("Expected no reads, got %d", r.Calls())
	}
	if _, ok := s.Get(); ok {
		t.Error("Expected slot to stay empty")
	}
}

func TestParseFailurePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FailurePolicy
		wantErr bool
	}{
		{"", SkipCycle, false},
		{"skip", SkipCycle, false},
		{"stop", Stop, false},
		{"retry", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseFailurePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFailurePolicy(%q): unexpected error state: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFailurePolicy(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
