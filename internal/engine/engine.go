package engine

import (
	"context"
	"log/slog"
)

// Engine is the cooperative single-goroutine loop.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - Run() / Drain(): must be called from exactly one goroutine at a time;
//     that goroutine is "the loop goroutine" for every stream.
type Engine struct {
	queue    *taskQueue
	clock    *Clock
	maxSteps int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps sets the step budget for Drain.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithClock replaces the logical clock, e.g. to continue an earlier trace.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		queue:    newTaskQueue(),
		clock:    NewClock(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Post schedules fn on the loop goroutine.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Post(fn func()) bool {
	return e.queue.Enqueue(Task{Seq: e.clock.Next(), Fn: fn})
}

// Run executes posted tasks until ctx is cancelled or Stop is called.
//
// ERROR HANDLING: a panicking task is recovered, logged with its seq and
// the loop continues. One broken screen must not stop the others.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("loop starting")

	for {
		task, ok := e.queue.TryDequeue()
		if ok {
			if err := e.execute(task); err != nil {
				logTaskError(task, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("loop stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed on Stop; an empty closed queue
			// ends the loop.
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Drain executes queued tasks on the caller's goroutine until the queue is
// empty, including tasks posted by the tasks themselves. Returns the number
// of executed tasks. Used by tests and by headless runs that feed input
// synchronously.
func (e *Engine) Drain() (int, error) {
	steps := 0
	for {
		if steps >= e.maxSteps && e.queue.Len() > 0 {
			return steps, &StepsExceededError{Steps: steps, Limit: e.maxSteps}
		}
		task, ok := e.queue.TryDequeue()
		if !ok {
			return steps, nil
		}
		steps++
		if err := e.execute(task); err != nil {
			logTaskError(task, err)
		}
	}
}

// Stop closes the queue; Run returns once the remaining tasks are done.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// QueueLen returns the number of pending tasks.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

func (e *Engine) execute(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(task.Seq, r)
		}
	}()
	if task.Fn != nil {
		task.Fn()
	}
	return nil
}

// logTaskError logs a task failure with its logical time.
func logTaskError(task Task, err error) {
	slog.Error("task failed",
		"error", err,
		"seq", task.Seq,
	)
}
