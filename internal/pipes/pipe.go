// Package pipes defines the common action pipe contract.
//
// DESIGN: One pipe per action type, each in its own package:
//   - npc_interaction/: Player invokes an option on an NPC
//
// FLOW:
//  1. Pipe checks the actor can act (busy guard)
//  2. Pipe looks up hooks for its action type with its own predicates
//  3. hooks.Prioritize applies the quest-gated override
//  4. Pipe returns a Result: Busy, NoMatch, or Dispatched with a bundle
//
// The bundle is handed once to the scheduler (internal/scheduler.Run) and
// then discarded. Pipes perform no I/O and never mutate world state.
//
// NOTE: Pipe configuration types are defined in config.go in this package.
package pipes

import (
	"github.com/runeforge/hookgate/internal/hooks"
	"github.com/runeforge/hookgate/internal/world"
)

// Outcome is the caller-visible result of a dispatch.
type Outcome int

const (
	// OutcomeNoMatch means the interaction was valid but no hook applies.
	OutcomeNoMatch Outcome = iota
	// OutcomeBusy means the actor could not act; no hooks were evaluated.
	OutcomeBusy
	// OutcomeDispatched means a bundle was produced.
	OutcomeDispatched
)

// String returns the wire name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeBusy:
		return "busy"
	case OutcomeDispatched:
		return "dispatched"
	default:
		return "no_match"
	}
}

// RunnableHooks is the bundle a pipe hands to the scheduler.
type RunnableHooks[A any, H hooks.RunnableHook[A]] struct {
	// Hooks that matched, in dispatch order. Never empty.
	Hooks []H

	// Position captured when the action was dispatched.
	ActionPosition world.Position

	// Action-specific payload passed to handlers and tasks.
	Action A
}

// Result is a pipe's answer for one interaction.
type Result[A any, H hooks.RunnableHook[A]] struct {
	Outcome Outcome
	Bundle  *RunnableHooks[A, H] // Set only when Outcome is OutcomeDispatched
}

// Dispatched reports whether the result carries a bundle.
func (r Result[A, H]) Dispatched() bool {
	return r.Outcome == OutcomeDispatched && r.Bundle != nil
}

// Busy returns the busy result.
func Busy[A any, H hooks.RunnableHook[A]]() Result[A, H] {
	return Result[A, H]{Outcome: OutcomeBusy}
}

// NoMatch returns the no-match result.
func NoMatch[A any, H hooks.RunnableHook[A]]() Result[A, H] {
	return Result[A, H]{Outcome: OutcomeNoMatch}
}

// Dispatch wraps a bundle. An empty hook list yields NoMatch.
func Dispatch[A any, H hooks.RunnableHook[A]](matched []H, pos world.Position, action A) Result[A, H] {
	if len(matched) == 0 {
		return NoMatch[A, H]()
	}
	return Result[A, H]{
		Outcome: OutcomeDispatched,
		Bundle: &RunnableHooks[A, H]{
			Hooks:          matched,
			ActionPosition: pos,
			Action:         action,
		},
	}
}

// Pipe is implemented by every action pipe.
type Pipe interface {
	// Name returns the pipe identifier.
	Name() string

	// ActionType returns the registry bucket the pipe reads.
	ActionType() hooks.ActionType

	// Enabled returns whether this pipe is active.
	Enabled() bool
}
