// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - dispatched/busy/unhandled: Action pipe outcomes
//   - handlers:                  Hook handlers invoked by the runner
//   - tasks_*:                   Scheduler task lifecycle
//
// Exposed through the gateway's /stats endpoint.
package monitoring

import (
	"sync/atomic"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	dispatched     atomic.Int64
	dispatchedHook atomic.Int64
	busy           atomic.Int64
	unhandled      atomic.Int64
	handlers       atomic.Int64
	tasksSubmitted atomic.Int64
	tasksFired     atomic.Int64
	tasksSkipped   atomic.Int64
	tasksFailed    atomic.Int64
	tasksCompleted atomic.Int64
	tasksCancelled atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordDispatched records a dispatched bundle and its hook count.
func (mc *MetricsCollector) RecordDispatched(hooks int) {
	if mc == nil {
		return
	}
	mc.dispatched.Add(1)
	mc.dispatchedHook.Add(int64(hooks))
}

// RecordBusy records an interaction refused because the actor was busy.
func (mc *MetricsCollector) RecordBusy() {
	if mc != nil {
		mc.busy.Add(1)
	}
}

// RecordUnhandled records an interaction with no matching hook.
func (mc *MetricsCollector) RecordUnhandled() {
	if mc != nil {
		mc.unhandled.Add(1)
	}
}

// RecordHandler records a hook handler invocation.
func (mc *MetricsCollector) RecordHandler() {
	if mc != nil {
		mc.handlers.Add(1)
	}
}

// RecordTaskSubmitted records a task accepted by the scheduler.
func (mc *MetricsCollector) RecordTaskSubmitted() {
	if mc != nil {
		mc.tasksSubmitted.Add(1)
	}
}

// RecordTaskFired records a completed Execute call.
func (mc *MetricsCollector) RecordTaskFired() {
	if mc != nil {
		mc.tasksFired.Add(1)
	}
}

// RecordTaskSkipped records a firing suppressed by CanActivate.
func (mc *MetricsCollector) RecordTaskSkipped() {
	if mc != nil {
		mc.tasksSkipped.Add(1)
	}
}

// RecordTaskFailed records a task ended by an error or panic.
func (mc *MetricsCollector) RecordTaskFailed() {
	if mc != nil {
		mc.tasksFailed.Add(1)
	}
}

// RecordTaskCompleted records a task that finished normally.
func (mc *MetricsCollector) RecordTaskCompleted() {
	if mc != nil {
		mc.tasksCompleted.Add(1)
	}
}

// RecordTaskCancelled records a task ended by the scheduler.
func (mc *MetricsCollector) RecordTaskCancelled() {
	if mc != nil {
		mc.tasksCancelled.Add(1)
	}
}

// Stats returns current metrics.
func (mc *MetricsCollector) Stats() map[string]int64 {
	if mc == nil {
		return map[string]int64{}
	}
	return map[string]int64{
		"dispatched":       mc.dispatched.Load(),
		"dispatched_hooks": mc.dispatchedHook.Load(),
		"busy":             mc.busy.Load(),
		"unhandled":        mc.unhandled.Load(),
		"handlers":         mc.handlers.Load(),
		"tasks_submitted":  mc.tasksSubmitted.Load(),
		"tasks_fired":      mc.tasksFired.Load(),
		"tasks_skipped":    mc.tasksSkipped.Load(),
		"tasks_failed":     mc.tasksFailed.Load(),
		"tasks_completed":  mc.tasksCompleted.Load(),
		"tasks_cancelled":  mc.tasksCancelled.Load(),
	}
}
