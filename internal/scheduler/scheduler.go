// Package scheduler runs named periodic tasks against an injectable clock.
//
// A task's function runs to completion before the next deadline is computed,
// so a task never overlaps itself. Deadlines are anchored to the previous
// deadline rather than to the end of the run, which keeps the cadence from
// drifting; slots missed while a run overran are skipped, not replayed.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/M-Chimiste/DCSOlympus/internal/clock"
)

// IntervalFunc returns the delay before the next run. It is evaluated after
// every run so cadence can depend on live state.
type IntervalFunc func() time.Duration

// Every returns a fixed IntervalFunc.
func Every(d time.Duration) IntervalFunc {
	return func() time.Duration { return d }
}

// TaskFunc is the body of a periodic task.
type TaskFunc func(ctx context.Context)

// Task is a single scheduled periodic job.
type Task struct {
	name     string
	interval IntervalFunc
	fn       TaskFunc
	clock    clock.Clock
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	runs    atomic.Uint64
	skipped atomic.Uint64
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Runs returns how many times the task body has completed.
func (t *Task) Runs() uint64 { return t.runs.Load() }

// Skipped returns how many slots were dropped because a run overran.
func (t *Task) Skipped() uint64 { return t.skipped.Load() }

// Stop cancels the task and waits for an in-flight run to return.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) run(ctx context.Context) {
	defer close(t.done)

	deadline := t.clock.Now()
	for {
		if ctx.Err() != nil {
			return
		}

		t.fn(ctx)
		t.runs.Add(1)

		now := t.clock.Now()
		var skipped int64
		deadline, skipped = nextDeadline(deadline, now, t.interval())
		if skipped > 0 {
			t.skipped.Add(uint64(skipped))
			t.logger.Debug("task overran its interval", "task", t.name, "skipped", skipped)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(deadline.Sub(now)):
		}
	}
}

// nextDeadline advances prev by d and skips whole intervals that already lie in the past.
func nextDeadline(prev, now time.Time, d time.Duration) (time.Time, int64) {
	if d <= 0 {
		return now, 0
	}
	next := prev.Add(d)
	if !next.Before(now) {
		return next, 0
	}
	skip := int64((now.Sub(next) + d - 1) / d)
	return next.Add(time.Duration(skip) * d), skip
}

// Scheduler owns a set of tasks sharing one clock and one lifetime.
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []*Task
	stopped bool
}

// New creates a Scheduler. A nil logger uses slog.Default().
func New(clk clock.Clock, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{clock: clk, logger: logger}
}

// Schedule starts fn immediately and then on every interval until ctx is
// cancelled, the task is stopped, or the scheduler is stopped.
// Scheduling on a stopped scheduler returns a task that never runs.
func (s *Scheduler) Schedule(ctx context.Context, name string, interval IntervalFunc, fn TaskFunc) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		clock:    s.clock,
		logger:   s.logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		cancel()
		close(t.done)
		return t
	}
	s.tasks = append(s.tasks, t)

	go t.run(taskCtx)
	s.logger.Debug("task scheduled", "task", name)
	return t
}

// Stop cancels every task and waits for them to exit. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
}
