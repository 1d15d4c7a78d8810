// Package scheduler runs hook tasks on world ticks and wall-clock timers.
//
// DESIGN: A single loop goroutine owns the task table. Callers talk to it by
// message (submit, cancel, stats); each admitted task then runs in its own
// goroutine that waits on the tick clock or a timer between firings.
//
//	Submit → loop (admission, strength policy) → task goroutine
//	       ← Handle (status, Done) ←────────────── finish
//
// Guarantees:
//   - One firing in flight per task; the next interval starts after Execute returns
//   - Tasks run concurrently with each other, no cross-task ordering
//   - A failing or panicking task only ends itself
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/runeforge/hookgate/internal/hooks"
	"github.com/runeforge/hookgate/internal/monitoring"
	"github.com/runeforge/hookgate/internal/world"
)

// Errors returned by Submit.
var (
	ErrNotRunning = errors.New("scheduler not running")
	ErrQueueFull  = errors.New("scheduler task limit reached")
)

// Config tunes the scheduler.
type Config struct {
	TickRate time.Duration `yaml:"tick_rate"` // Internal tick period; 0 = ticks driven by the host
	MaxTasks int           `yaml:"max_tasks"` // Active task limit; 0 = unlimited
}

// Validate validates scheduler config.
func (c *Config) Validate() error {
	if c.TickRate < 0 {
		return fmt.Errorf("scheduler.tick_rate must not be negative")
	}
	if c.MaxTasks < 0 {
		return fmt.Errorf("scheduler.max_tasks must not be negative")
	}
	return nil
}

// =============================================================================
// HANDLES
// =============================================================================

// Status represents the state of a scheduled task.
type Status string

const (
	StatusWaiting   Status = "waiting"   // Waiting for delay or interval
	StatusRunning   Status = "running"   // Inside CanActivate or Execute
	StatusCompleted Status = "completed" // Finished normally
	StatusSkipped   Status = "skipped"   // One-shot whose only firing was suppressed
	StatusFailed    Status = "failed"    // Execute returned an error or panicked
	StatusCancelled Status = "cancelled" // Ended by the scheduler
)

// Handle is the caller's view of a submitted task.
type Handle struct {
	ID          string
	Owner       string
	Strength    hooks.Strength
	Timing      hooks.Timing
	SubmittedAt time.Time

	mu      sync.Mutex
	status  Status
	firings int
	skipped int
	err     error
	done    chan struct{}
}

// Status returns the current status.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Firings returns how many times Execute completed.
func (h *Handle) Firings() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.firings
}

// Skipped returns how many firings CanActivate suppressed.
func (h *Handle) Skipped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.skipped
}

// Err returns the failure, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Done is closed when the task has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait waits for the task to finish with timeout.
func (h *Handle) Wait(timeout time.Duration) bool {
	select {
	case <-h.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (h *Handle) setStatus(st Status) {
	h.mu.Lock()
	h.status = st
	h.mu.Unlock()
}

func (h *Handle) recordFiring() {
	h.mu.Lock()
	h.firings++
	h.status = StatusWaiting
	h.mu.Unlock()
}

func (h *Handle) recordSkip() {
	h.mu.Lock()
	h.skipped++
	h.status = StatusWaiting
	h.mu.Unlock()
}

func (h *Handle) finish(st Status, err error) {
	h.mu.Lock()
	h.status = st
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// =============================================================================
// JOBS
// =============================================================================

// firing is the untyped view of one lifecycle call.
type firing struct {
	taskID    string
	owner     string
	iteration int
	tick      uint64
	stop      func()
}

// job is a task with its action type erased.
type job struct {
	timing      hooks.Timing
	canActivate func(ctx context.Context, f firing) bool
	execute     func(ctx context.Context, f firing) error
	onComplete  func(ctx context.Context, f firing)
}

// entry is an admitted task.
type entry struct {
	job         *job
	handle      *Handle
	ctx         context.Context
	cancel      context.CancelFunc
	admitTick   uint64 // Tick delays count from
	dispatch    string // Shared by tasks submitted from one bundle
	selfStopped atomic.Bool
}

func (e *entry) stop() {
	e.selfStopped.Store(true)
	e.cancel()
}

func (e *entry) firing(iteration int, tick uint64) firing {
	return firing{
		taskID:    e.handle.ID,
		owner:     e.handle.Owner,
		iteration: iteration,
		tick:      tick,
		stop:      e.stop,
	}
}

// Submission describes one task to schedule.
type Submission[A any] struct {
	Owner    string         // Player the task runs for
	Strength hooks.Strength // Empty means normal
	Task     *hooks.Task[A]
	Action   A
	Position world.Position

	// Dispatch groups tasks submitted for the same action. Strength never
	// displaces a task of the same dispatch. Empty means ungrouped.
	Dispatch string
}

// Submit validates and schedules a task.
func Submit[A any](s *Scheduler, sub Submission[A]) (*Handle, error) {
	task := sub.Task
	if task == nil {
		return nil, fmt.Errorf("task is required")
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	run := func(f firing) *hooks.TaskRun[A] {
		return &hooks.TaskRun[A]{
			TaskID:    f.taskID,
			Owner:     f.owner,
			Action:    sub.Action,
			Position:  sub.Position,
			Iteration: f.iteration,
			Tick:      f.tick,
			Stop:      f.stop,
		}
	}

	j := &job{
		timing: task.Timing(),
		execute: func(ctx context.Context, f firing) error {
			return task.Execute(ctx, run(f))
		},
	}
	if task.CanActivate != nil {
		j.canActivate = func(ctx context.Context, f firing) bool {
			return task.CanActivate(ctx, run(f))
		}
	}
	if task.OnComplete != nil {
		j.onComplete = func(ctx context.Context, f firing) {
			task.OnComplete(ctx, run(f))
		}
	}

	strength := sub.Strength
	if strength == "" {
		strength = hooks.StrengthNormal
	}
	return s.submit(j, sub.Owner, strength, sub.Dispatch)
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Scheduler owns the tick clock and all task timing.
type Scheduler struct {
	cfg     Config
	metrics *monitoring.MetricsCollector

	requests chan func()
	finished chan string
	stopChan chan struct{}
	loopDone chan struct{}
	tasks    map[string]*entry // owned by the loop goroutine

	mu      sync.Mutex
	running bool
	stopped bool

	clockMu sync.Mutex
	tick    uint64
	tickCh  chan struct{}

	loopWG sync.WaitGroup
	wg     sync.WaitGroup
}

// New creates a scheduler. Call Start before submitting tasks.
func New(cfg Config, metrics *monitoring.MetricsCollector) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		metrics:  metrics,
		requests: make(chan func()),
		finished: make(chan string, 64),
		stopChan: make(chan struct{}),
		loopDone: make(chan struct{}),
		tasks:    make(map[string]*entry),
		tickCh:   make(chan struct{}),
	}
}

// Start starts the scheduler loop and, if configured, the internal ticker.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Info().Dur("tick_rate", s.cfg.TickRate).Int("max_tasks", s.cfg.MaxTasks).Msg("Starting hook task scheduler")

	s.loopWG.Add(1)
	go s.loop()

	if s.cfg.TickRate > 0 {
		s.loopWG.Add(1)
		go s.ticker(s.cfg.TickRate)
	}
}

// Stop cancels every task and waits for them to finish.
// Interval tasks get their OnComplete call.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	close(s.stopChan)
	s.mu.Unlock()

	s.loopWG.Wait()
	s.wg.Wait()
	log.Info().Msg("Hook task scheduler stopped")
}

// Running reports whether the scheduler accepts tasks.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Tick advances the world clock by one and wakes tick waiters.
func (s *Scheduler) Tick() uint64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.tick++
	close(s.tickCh)
	s.tickCh = make(chan struct{})
	return s.tick
}

// CurrentTick returns the world clock.
func (s *Scheduler) CurrentTick() uint64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.tick
}

// Cancel ends a task by id. Returns false if it is unknown, already done, or
// already cancelled.
func (s *Scheduler) Cancel(id string) bool {
	reply := make(chan bool, 1)
	if !s.call(func() {
		e, ok := s.tasks[id]
		ok = ok && e.ctx.Err() == nil
		if ok {
			e.cancel()
		}
		reply <- ok
	}) {
		return false
	}
	return await(s, reply, false)
}

// CancelOwner ends every task owned by a player and returns how many.
func (s *Scheduler) CancelOwner(owner string) int {
	reply := make(chan int, 1)
	if !s.call(func() {
		reply <- s.cancelWhere(func(e *entry) bool { return e.handle.Owner == owner })
	}) {
		return 0
	}
	return await(s, reply, 0)
}

// Stats returns scheduler statistics.
func (s *Scheduler) Stats() map[string]interface{} {
	reply := make(chan map[string]interface{}, 1)
	if !s.call(func() {
		counts := make(map[Status]int)
		for _, e := range s.tasks {
			counts[e.handle.Status()]++
		}
		reply <- map[string]interface{}{
			"active_tasks": len(s.tasks),
			"by_status":    counts,
		}
	}) {
		return map[string]interface{}{"running": false, "tick": s.CurrentTick()}
	}

	stats := await(s, reply, map[string]interface{}{})
	stats["running"] = s.Running()
	stats["tick"] = s.CurrentTick()
	return stats
}

// submit hands a job to the loop and waits for admission.
func (s *Scheduler) submit(j *job, owner string, strength hooks.Strength, dispatch string) (*Handle, error) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{
		job: j,
		handle: &Handle{
			ID:          uuid.New().String(),
			Owner:       owner,
			Strength:    strength,
			Timing:      j.timing,
			SubmittedAt: time.Now(),
			status:      StatusWaiting,
			done:        make(chan struct{}),
		},
		ctx:      ctx,
		cancel:   cancel,
		dispatch: dispatch,
	}

	reply := make(chan error, 1)
	if !s.call(func() { reply <- s.admit(e) }) {
		cancel()
		return nil, ErrNotRunning
	}
	if err := await(s, reply, ErrNotRunning); err != nil {
		cancel()
		return nil, err
	}

	s.metrics.RecordTaskSubmitted()
	log.Debug().
		Str("task_id", e.handle.ID).
		Str("owner", owner).
		Str("strength", string(strength)).
		Str("delay", j.timing.Delay.String()).
		Str("interval", j.timing.Interval.String()).
		Msg("task scheduled")
	return e.handle, nil
}

// call sends fn to the loop. Returns false if the scheduler is not running.
func (s *Scheduler) call(fn func()) bool {
	if !s.Running() {
		return false
	}
	select {
	case s.requests <- fn:
		return true
	case <-s.stopChan:
		return false
	}
}

// await waits for a loop reply, or returns fallback if the loop exits first.
func await[T any](s *Scheduler, reply chan T, fallback T) T {
	select {
	case v := <-reply:
		return v
	case <-s.loopDone:
		select {
		case v := <-reply:
			return v
		default:
			return fallback
		}
	}
}

func (s *Scheduler) loop() {
	defer s.loopWG.Done()
	defer close(s.loopDone)

	for {
		select {
		case fn := <-s.requests:
			fn()
		case id := <-s.finished:
			delete(s.tasks, id)
		case <-s.stopChan:
			s.cancelWhere(func(*entry) bool { return true })
			return
		}
	}
}

func (s *Scheduler) ticker(rate time.Duration) {
	defer s.loopWG.Done()

	t := time.NewTicker(rate)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Tick()
		case <-s.stopChan:
			return
		}
	}
}

// admit runs on the loop goroutine.
func (s *Scheduler) admit(e *entry) error {
	if s.cfg.MaxTasks > 0 && len(s.tasks) >= s.cfg.MaxTasks {
		return ErrQueueFull
	}

	if owner := e.handle.Owner; owner != "" {
		// Tasks from the same dispatch are siblings, not predecessors.
		earlier := func(o *entry) bool {
			return o.handle.Owner == owner && (e.dispatch == "" || o.dispatch != e.dispatch)
		}
		var n int
		switch e.handle.Strength {
		case hooks.StrengthStrong:
			n = s.cancelWhere(earlier)
		case hooks.StrengthNormal:
			n = s.cancelWhere(func(o *entry) bool {
				return earlier(o) && o.handle.Strength == hooks.StrengthWeak
			})
		}
		if n > 0 {
			log.Debug().Str("owner", owner).Str("strength", string(e.handle.Strength)).Int("cancelled", n).Msg("tasks displaced")
		}
	}

	e.admitTick = s.CurrentTick()
	s.tasks[e.handle.ID] = e
	s.wg.Add(1)
	go s.runTask(e)
	return nil
}

// cancelWhere runs on the loop goroutine.
func (s *Scheduler) cancelWhere(match func(*entry) bool) int {
	n := 0
	for _, e := range s.tasks {
		if e.ctx.Err() == nil && match(e) {
			e.cancel()
			n++
		}
	}
	return n
}

// =============================================================================
// TASK EXECUTION
// =============================================================================

func (s *Scheduler) runTask(e *entry) {
	defer s.wg.Done()

	status, err := s.drive(e)
	e.cancel()
	e.handle.finish(status, err)

	switch status {
	case StatusCompleted:
		s.metrics.RecordTaskCompleted()
	case StatusFailed:
		s.metrics.RecordTaskFailed()
		log.Error().Err(err).Str("task_id", e.handle.ID).Str("owner", e.handle.Owner).Msg("task failed")
	case StatusCancelled:
		s.metrics.RecordTaskCancelled()
	}
	log.Debug().Str("task_id", e.handle.ID).Str("status", string(status)).Int("firings", e.handle.Firings()).Msg("task finished")

	select {
	case s.finished <- e.handle.ID:
	case <-s.loopDone:
	}
}

// drive runs the task's delay and firing loop and returns its final status.
func (s *Scheduler) drive(e *entry) (Status, error) {
	ctx := e.ctx
	timing := e.job.timing

	if err := s.wait(ctx, timing.Delay, e.admitTick); err != nil {
		return StatusCancelled, nil
	}

	iteration := 0
	for {
		if ctx.Err() != nil {
			if timing.Repeats() {
				return s.terminate(e, iteration), nil
			}
			return StatusCancelled, nil
		}

		fired, err := s.fire(ctx, e, iteration)
		if err != nil {
			if ctx.Err() == nil {
				return StatusFailed, err
			}
			// Work aborted by cancellation.
			if timing.Repeats() {
				return s.terminate(e, iteration), nil
			}
			return StatusCancelled, nil
		}
		if fired {
			iteration++
		}

		if !timing.Repeats() {
			if !fired {
				return StatusSkipped, nil
			}
			s.complete(e, iteration)
			return StatusCompleted, nil
		}

		if err := s.wait(ctx, timing.Interval, s.CurrentTick()); err != nil {
			return s.terminate(e, iteration), nil
		}
	}
}

// terminate ends an interval loop: OnComplete runs, then the status reflects
// who stopped it.
func (s *Scheduler) terminate(e *entry, iteration int) Status {
	s.complete(e, iteration)
	if e.selfStopped.Load() {
		return StatusCompleted
	}
	return StatusCancelled
}

// fire runs one CanActivate/Execute cycle.
func (s *Scheduler) fire(ctx context.Context, e *entry, iteration int) (fired bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Str("task_id", e.handle.ID).Msg("task panic")
			fired = false
			err = fmt.Errorf("task panic: %v", r)
		}
	}()

	f := e.firing(iteration, s.CurrentTick())
	e.handle.setStatus(StatusRunning)

	if e.job.canActivate != nil && !e.job.canActivate(ctx, f) {
		e.handle.recordSkip()
		s.metrics.RecordTaskSkipped()
		return false, nil
	}

	if err := e.job.execute(ctx, f); err != nil {
		return false, err
	}

	e.handle.recordFiring()
	s.metrics.RecordTaskFired()
	return true, nil
}

// complete calls OnComplete, isolating panics.
func (s *Scheduler) complete(e *entry, iteration int) {
	if e.job.onComplete == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("task_id", e.handle.ID).Msg("task on_complete panic")
		}
	}()
	e.job.onComplete(context.WithoutCancel(e.ctx), e.firing(iteration, s.CurrentTick()))
}

// wait blocks for w, or returns ctx.Err() if the task is cancelled first.
// Tick waits count from tick from. A zero wait returns immediately.
func (s *Scheduler) wait(ctx context.Context, w hooks.Wait, from uint64) error {
	switch {
	case w.Ticks > 0:
		return s.waitTicks(ctx, from+uint64(w.Ticks))
	case w.Duration > 0:
		timer := time.NewTimer(w.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return ctx.Err()
	}
}

func (s *Scheduler) waitTicks(ctx context.Context, target uint64) error {
	for {
		s.clockMu.Lock()
		current, ch := s.tick, s.tickCh
		s.clockMu.Unlock()

		if current >= target {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
