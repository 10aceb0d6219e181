package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Task is a long running part of the node
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to a Task
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type task struct {
	name     string
	task     Task
	critical bool
}

// WithLogger sets the logger for the orchestrator
func WithLogger(logger *slog.Logger) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// Orchestrator runs the node tasks concurrently. A sensor task ending, for
// whatever reason, only takes that sensor out of the telemetry. A critical
// task ending means the radio link is gone and stops the whole node.
type Orchestrator struct {
	tasks  []task
	logger *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc

	errOnce sync.Once
	err     error
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// AddSensor registers a task whose failure is tolerated
func (o *Orchestrator) AddSensor(name string, t Task) {
	o.tasks = append(o.tasks, task{name: name, task: t})
}

// AddCritical registers a task whose failure stops the node
func (o *Orchestrator) AddCritical(name string, t Task) {
	o.tasks = append(o.tasks, task{name: name, task: t, critical: true})
}

// Run starts every task and waits for all of them to finish. It returns the
// error of the first critical task that failed, or nil when the parent
// context was cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if len(o.tasks) == 0 {
		return errors.New("no tasks to run")
	}

	ctx, o.cancel = context.WithCancel(ctx)
	defer o.cancel()

	for _, t := range o.tasks {
		o.wg.Add(1)
		go o.run(ctx, t)
	}

	o.wg.Wait()
	return o.err
}

func (o *Orchestrator) run(ctx context.Context, t task) {
	defer o.wg.Done()

	logger := o.logger.With(slog.String("task", t.name))

	err := t.task.Run(ctx)
	switch {
	case err == nil, ctx.Err() != nil && errors.Is(err, ctx.Err()):
		logger.Info("task finished")

	case !t.critical:
		logger.Warn("task stopped, continuing without it", slog.Any("error", err))

	default:
		logger.Error("critical task failed, shutting down", slog.Any("error", err))
		o.errOnce.Do(func() {
			o.err = fmt.Errorf("%s: %w", t.name, err)
		})
		o.cancel()
	}
}
