package scheduler_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runeforge/hookgate/internal/hooks"
	"github.com/runeforge/hookgate/internal/pipes"
	"github.com/runeforge/hookgate/internal/scheduler"
	"github.com/runeforge/hookgate/internal/world"
)

type hook = hooks.Hook[action]

// recorder collects handler and task calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func handlerHook(rec *recorder, name string, multi bool) *hook {
	h := &hook{Handler: func(action) { rec.add(name) }}
	h.Multi = multi
	return h
}

func taskHook(rec *recorder, name string, multi bool) *hook {
	h := &hook{Task: &hooks.Task[action]{
		Execute: func(context.Context, *hooks.TaskRun[action]) error {
			rec.add(name)
			return nil
		},
	}}
	h.Multi = multi
	return h
}

func bundle(hs ...*hook) *pipes.RunnableHooks[action, *hook] {
	return &pipes.RunnableHooks[action, *hook]{
		Hooks:          hs,
		ActionPosition: world.Position{X: 5},
		Action:         action{name: "talk-to"},
	}
}

// =============================================================================
// RUN TESTS
// =============================================================================

func TestRun_StopsAfterFirstNonMultiHook(t *testing.T) {
	s, _ := newScheduler(t, scheduler.Config{})
	rec := &recorder{}

	handles, err := scheduler.Run(s, "p1", bundle(
		handlerHook(rec, "first", true),
		handlerHook(rec, "second", false),
		handlerHook(rec, "third", true),
	))

	require.NoError(t, err)
	assert.Empty(t, handles)
	assert.Equal(t, []string{"first", "second"}, rec.get())
}

func TestRun_SingleHookWithoutMulti(t *testing.T) {
	s, _ := newScheduler(t, scheduler.Config{})
	rec := &recorder{}

	_, err := scheduler.Run(s, "p1", bundle(
		handlerHook(rec, "only", false),
		handlerHook(rec, "never", false),
	))

	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, rec.get())
}

func TestRun_SubmitsTasksInOrder(t *testing.T) {
	s, metrics := newScheduler(t, scheduler.Config{})
	rec := &recorder{}

	handles, err := scheduler.Run(s, "p1", bundle(
		taskHook(rec, "task-1", true),
		handlerHook(rec, "handler", true),
		taskHook(rec, "task-2", false),
	))

	require.NoError(t, err)
	require.Len(t, handles, 2)
	for _, h := range handles {
		require.True(t, h.Wait(waitTimeout))
		assert.Equal(t, scheduler.StatusCompleted, h.Status())
		assert.Equal(t, "p1", h.Owner)
	}
	assert.ElementsMatch(t, []string{"task-1", "handler", "task-2"}, rec.get())
	assert.Equal(t, int64(1), metrics.Stats()["handlers"])
	assert.Equal(t, int64(2), metrics.Stats()["tasks_submitted"])
}

func TestRun_HandlerPanicIsIsolated(t *testing.T) {
	s, _ := newScheduler(t, scheduler.Config{})
	rec := &recorder{}

	bad := &hook{Handler: func(action) { panic("content bug") }}
	bad.Multi = true

	_, err := scheduler.Run(s, "p1", bundle(bad, handlerHook(rec, "after", false)))

	require.NoError(t, err)
	assert.Equal(t, []string{"after"}, rec.get())
}

func TestRun_SubmitErrorStopsRun(t *testing.T) {
	s := scheduler.New(scheduler.Config{}, nil)
	rec := &recorder{}

	_, err := scheduler.Run(s, "p1", bundle(taskHook(rec, "task", true), handlerHook(rec, "after", false)))

	assert.ErrorIs(t, err, scheduler.ErrNotRunning)
	assert.Empty(t, rec.get())
}

func TestRun_NilBundle(t *testing.T) {
	s, _ := newScheduler(t, scheduler.Config{})

	handles, err := scheduler.Run[action, *hook](s, "p1", nil)
	assert.NoError(t, err)
	assert.Nil(t, handles)
}

// delayedTask waits one tick so earlier siblings are still active when later ones are admitted.
func delayedTask(rec *recorder, name string, multi bool, strength hooks.Strength) *hook {
	h := taskHook(rec, name, multi)
	h.Task.DelayTicks = 1
	h.Strength = strength
	return h
}

func TestRun_StrongHookKeepsMultiSiblings(t *testing.T) {
	s, _ := newScheduler(t, scheduler.Config{})
	rec := &recorder{}

	handles, err := scheduler.Run(s, "p1", bundle(
		delayedTask(rec, "first", true, hooks.StrengthNormal),
		delayedTask(rec, "second", false, hooks.StrengthStrong),
	))
	require.NoError(t, err)
	require.Len(t, handles, 2)

	s.Tick()
	for _, h := range handles {
		require.True(t, h.Wait(waitTimeout))
		assert.Equal(t, scheduler.StatusCompleted, h.Status())
	}
	assert.ElementsMatch(t, []string{"first", "second"}, rec.get())
}

func TestRun_StrongHookDisplacesEarlierDispatch(t *testing.T) {
	s, _ := newScheduler(t, scheduler.Config{})
	rec := &recorder{}

	earlier, err := scheduler.Run(s, "p1", bundle(delayedTask(rec, "earlier", false, hooks.StrengthNormal)))
	require.NoError(t, err)
	later, err := scheduler.Run(s, "p1", bundle(delayedTask(rec, "later", false, hooks.StrengthStrong)))
	require.NoError(t, err)

	require.True(t, earlier[0].Wait(waitTimeout))
	assert.Equal(t, scheduler.StatusCancelled, earlier[0].Status())

	s.Tick()
	require.True(t, later[0].Wait(waitTimeout))
	assert.Equal(t, scheduler.StatusCompleted, later[0].Status())
	assert.Equal(t, []string{"later"}, rec.get())
}
