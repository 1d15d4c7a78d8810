package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/runeforge/hookgate/internal/world"
)

// Task is deferred or looping work attached to a hook.
//
// Timing: Delay* is the wait before the first firing, Interval* the period
// between firings. Tick fields win over duration fields when both are set.
// With no interval the task fires once. With no timing at all it fires at the
// next scheduling opportunity.
//
// The scheduler never runs two firings of the same task at once, and waits for
// Execute to return before starting the next interval.
type Task[A any] struct {
	// CanActivate is checked before every firing. False skips that firing only.
	CanActivate func(ctx context.Context, run *TaskRun[A]) bool

	// Execute performs the work. Required.
	Execute func(ctx context.Context, run *TaskRun[A]) error

	// OnComplete runs once after the final firing: right after Execute for a
	// one-shot task, or when the scheduler ends an interval loop.
	OnComplete func(ctx context.Context, run *TaskRun[A])

	DelayTicks    int           // Ticks before the first firing
	Delay         time.Duration // Wall-clock wait before the first firing
	IntervalTicks int           // Ticks between firings
	Interval      time.Duration // Wall-clock period between firings
}

// TaskRun is what a task sees on each lifecycle call.
type TaskRun[A any] struct {
	TaskID    string         // Scheduler-assigned id
	Owner     string         // Player the task runs for
	Action    A              // Action payload from the bundle
	Position  world.Position // Position captured at dispatch time
	Iteration int            // Completed Execute calls before this one
	Tick      uint64         // World tick at call time

	// Stop asks the scheduler to end the task after the current call.
	// For interval tasks OnComplete still runs. Nil outside the scheduler.
	Stop func()
}

// Validate checks the task has work and non-negative timing.
func (t *Task[A]) Validate() error {
	if t.Execute == nil {
		return fmt.Errorf("task execute is required")
	}
	if t.DelayTicks < 0 || t.Delay < 0 || t.IntervalTicks < 0 || t.Interval < 0 {
		return fmt.Errorf("task timing must not be negative")
	}
	return nil
}

// Timing resolves the task's timing fields.
func (t *Task[A]) Timing() Timing {
	return Timing{
		Delay:    resolveWait(t.DelayTicks, t.Delay),
		Interval: resolveWait(t.IntervalTicks, t.Interval),
	}
}

// Wait is either a tick count or a duration. The zero Wait means "now".
type Wait struct {
	Ticks    int
	Duration time.Duration
}

// IsZero reports whether the wait is empty.
func (w Wait) IsZero() bool { return w.Ticks <= 0 && w.Duration <= 0 }

// String renders the wait for logs.
func (w Wait) String() string {
	switch {
	case w.Ticks > 0:
		return fmt.Sprintf("%d ticks", w.Ticks)
	case w.Duration > 0:
		return w.Duration.String()
	default:
		return "none"
	}
}

// Timing is a task's resolved delay and interval.
type Timing struct {
	Delay    Wait
	Interval Wait
}

// Repeats reports whether the task loops.
func (t Timing) Repeats() bool { return !t.Interval.IsZero() }

func resolveWait(ticks int, d time.Duration) Wait {
	if ticks > 0 {
		return Wait{Ticks: ticks}
	}
	if d > 0 {
		return Wait{Duration: d}
	}
	return Wait{}
}
