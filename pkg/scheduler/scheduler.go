package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// Task is a unit of work resumed once per tick until it reports done.
type Task interface {
	Poll(ctx context.Context) (done bool, err error)
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(ctx context.Context) (bool, error)

// Poll calls f.
func (f TaskFunc) Poll(ctx context.Context) (bool, error) {
	return f(ctx)
}

// WaitUntil returns a task that completes on the first poll where cond
// holds and then runs then, if non-nil.
func WaitUntil(cond func() bool, then func(ctx context.Context) error) Task {
	return TaskFunc(func(ctx context.Context) (bool, error) {
		if !cond() {
			return false, nil
		}
		if then != nil {
			if err := then(ctx); err != nil {
				return true, err
			}
		}
		return true, nil
	})
}

// TaskError wraps an error returned by a polled task.
type TaskError struct {
	ID    string
	Name  string
	Frame uint64
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q failed at frame %d: %v", e.Name, e.Frame, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

type entry struct {
	id   string
	name string
	task Task
}

// Scheduler runs tasks cooperatively on the goroutine calling Tick.
type Scheduler struct {
	// tasks are the pending tasks in enqueue order
	tasks []entry

	// frame counts completed ticks
	frame uint64

	// mu guards posted
	mu     sync.Mutex
	posted []func(ctx context.Context) error

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// New creates an empty scheduler. logger and metrics may be nil.
func New(logger *telemetry.Logger, metrics *telemetry.Metrics) *Scheduler {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &Scheduler{
		logger:  logger.NewComponentLogger("scheduler"),
		metrics: metrics,
	}
}

// Go enqueues a task. It is first polled on the next Tick and returns the
// task's id.
func (s *Scheduler) Go(name string, task Task) string {
	id := uuid.New().String()
	s.tasks = append(s.tasks, entry{id: id, name: name, task: task})
	s.logger.WithField("task", name).WithField("task_id", id).Trace("task enqueued")
	return id
}

// Post queues fn to run at the start of the next Tick. It is safe to call
// from any goroutine.
func (s *Scheduler) Post(fn func(ctx context.Context) error) {
	s.mu.Lock()
	s.posted = append(s.posted, fn)
	s.mu.Unlock()
}

// Tick runs posted functions, then polls each pending task once. The first
// error aborts the tick: the failing task is dropped and tasks not yet
// polled stay pending.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.mu.Lock()
	posted := s.posted
	s.posted = nil
	s.mu.Unlock()

	for _, fn := range posted {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("posted function failed at frame %d: %w", s.frame, err)
		}
	}

	// Only tasks present at the start of the tick are polled; anything
	// enqueued while polling lands after them and waits for the next tick.
	current := s.tasks
	n := len(current)
	kept := make([]entry, 0, n)
	for i := 0; i < n; i++ {
		e := current[i]
		done, err := e.task.Poll(ctx)
		if err != nil {
			s.tasks = append(append(kept, current[i+1:n]...), s.tasks[n:]...)
			return &TaskError{ID: e.id, Name: e.name, Frame: s.frame, Err: err}
		}
		if !done {
			kept = append(kept, e)
			continue
		}
		s.logger.WithField("task", e.name).Trace("task done")
	}
	s.tasks = append(kept, s.tasks[n:]...)

	s.frame++
	s.metrics.RecordTick(len(s.tasks))
	return nil
}

// Frame returns the number of completed ticks.
func (s *Scheduler) Frame() uint64 {
	return s.frame
}

// Pending returns the number of tasks waiting to be polled.
func (s *Scheduler) Pending() int {
	return len(s.tasks)
}

// Run ticks every interval until ctx is done or a tick fails. It returns
// nil when ctx ends.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// RunUntil ticks without delay until cond holds, a tick fails, or
// maxTicks ticks have run. It reports whether cond was reached.
func (s *Scheduler) RunUntil(ctx context.Context, cond func() bool, maxTicks int) (bool, error) {
	for i := 0; i < maxTicks; i++ {
		if cond() {
			return true, nil
		}
		if err := s.Tick(ctx); err != nil {
			return false, err
		}
	}
	return cond(), nil
}
