// Runner hands dispatched bundles to the scheduler.
package scheduler

import (
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/runeforge/hookgate/internal/hooks"
	"github.com/runeforge/hookgate/internal/pipes"
)

// Run executes a bundle for owner. Hooks run in bundle order: a Handler is
// called immediately, a Task is submitted. After a hook without Multi, the
// remaining hooks are not queued.
//
// Returns the handles of submitted tasks. A submission error stops the run.
func Run[A any, H hooks.RunnableHook[A]](s *Scheduler, owner string, bundle *pipes.RunnableHooks[A, H]) ([]*Handle, error) {
	if bundle == nil {
		return nil, nil
	}

	dispatch := uuid.New().String()
	var handles []*Handle
	for i, h := range bundle.Hooks {
		hook := h.Runnable()

		if hook.Handler != nil {
			s.invoke(owner, hook.Type, func() { hook.Handler(bundle.Action) })
		}

		if hook.Task != nil {
			handle, err := Submit(s, Submission[A]{
				Owner:    owner,
				Strength: hook.Strength,
				Task:     hook.Task,
				Action:   bundle.Action,
				Position: bundle.ActionPosition,
				Dispatch: dispatch,
			})
			if err != nil {
				return handles, fmt.Errorf("submit %s hook %d: %w", hook.Type, i, err)
			}
			handles = append(handles, handle)
		}

		if !hook.Multi {
			break
		}
	}
	return handles, nil
}

// invoke calls a hook handler, isolating panics.
func (s *Scheduler) invoke(owner string, actionType hooks.ActionType, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Str("owner", owner).
				Str("action", string(actionType)).
				Msg("hook handler panic")
		}
	}()
	fn()
	s.metrics.RecordHandler()
}
