package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// ErrTooManyFailures is returned when a source exceeds its consecutive
// failure threshold
var ErrTooManyFailures = errors.New("too many consecutive failures")

// Reader takes a single reading from a sensor
type Reader[T any] interface {
	Read(ctx context.Context) (T, error)
}

// Initializer is implemented by sensors that need one-time setup before
// the first reading
type Initializer interface {
	Init(ctx context.Context) error
}

// FailurePolicy decides what a source does after a failed reading
type FailurePolicy int

const (
	// SkipCycle logs the failure and tries again on the next cycle
	SkipCycle FailurePolicy = iota
	// Stop terminates the source on the first failure
	Stop
)

func (p FailurePolicy) String() string {
	switch p {
	case SkipCycle:
		return "skip"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// ParseFailurePolicy parses a policy name as used in configuration files
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "skip":
		return SkipCycle, nil
	case "stop":
		return Stop, nil
	default:
		return 0, fmt.Errorf("unknown failure policy: %q", s)
	}
}

type config struct {
	interval    time.Duration
	policy      FailurePolicy
	maxFailures int
	logger      *slog.Logger
}

func defaultConfig() config {
	return config{
		interval: time.Second,
		policy:   SkipCycle,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option configures a source
type Option func(c *config)

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithInterval sets the polling interval. For event driven sources it is
// the pause after a failed read.
func WithInterval(interval time.Duration) Option {
	return func(c *config) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithFailurePolicy sets what happens after a failed reading
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithMaxConsecutiveFailures stops a SkipCycle source after n failures in
// a row. Zero means unlimited.
func WithMaxConsecutiveFailures(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxFailures = n
		}
	}
}

// failures tracks consecutive failed readings against the configured policy
type failures struct {
	policy FailurePolicy
	max    int
	count  int
}

// fail records a failure and reports whether the source has to stop
func (f *failures) fail() bool {
	f.count++
	if f.policy == Stop {
		return true
	}
	return f.max > 0 && f.count >= f.max
}

func (f *failures) reset() {
	f.count = 0
}
