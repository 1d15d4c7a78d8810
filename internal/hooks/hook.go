// Package hooks provides the action-hook registry and the dispatch algorithm
// that turns an in-world action into the hooks that should handle it.
//
// DESIGN: Content registers hooks per action type at startup. Pipes (see
// internal/pipes) look hooks up, filter them, and prioritize them:
//
//	Action → Lookup(type, filter) → Prioritize → RunnableHooks → scheduler
//
// FILES:
//   - hook.go:     Descriptor, Hook[A], quest requirements, strengths
//   - registry.go: Registry (action type → ordered hooks)
//   - filters.go:  Keys membership, quest filter, predicate composition
//   - sort.go:     Quest-gated override
//   - task.go:     Task[A] contract (delay / interval / lifecycle)
//
// The registry is append-only after startup. Nothing in this package does I/O.
package hooks

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// ACTION TYPES
// =============================================================================

// ActionType identifies the category of interaction a hook applies to.
// Unknown types are valid keys; they just have no hooks.
type ActionType string

// Built-in action types.
const (
	ActionNPCInteraction ActionType = "npc_interaction"
)

// =============================================================================
// STRENGTH
// =============================================================================

// Strength describes how forcefully a hook claims its action.
// The dispatch core does not interpret it; the scheduler does.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthNormal Strength = "normal"
	StrengthStrong Strength = "strong"
)

// ParseStrength parses a strength name. Empty means normal.
func ParseStrength(s string) (Strength, error) {
	switch Strength(s) {
	case "":
		return StrengthNormal, nil
	case StrengthWeak, StrengthNormal, StrengthStrong:
		return Strength(s), nil
	default:
		return "", fmt.Errorf("unknown strength %q, must be 'weak', 'normal', or 'strong'", s)
	}
}

// =============================================================================
// QUEST REQUIREMENTS
// =============================================================================

// QuestKey is a quest stage number, or StageComplete.
type QuestKey int

// StageComplete marks a finished quest.
const StageComplete QuestKey = -1

// String returns "complete" or the stage number.
func (k QuestKey) String() string {
	if k == StageComplete {
		return "complete"
	}
	return strconv.Itoa(int(k))
}

// UnmarshalYAML accepts either a stage number or "complete".
func (k *QuestKey) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "complete" {
		*k = StageComplete
		return nil
	}
	n, err := strconv.Atoi(node.Value)
	if err != nil {
		return fmt.Errorf("quest stage must be a number or 'complete', got %q", node.Value)
	}
	*k = QuestKey(n)
	return nil
}

// QuestRequirement gates a hook on quest progression.
//
// With Stages set, the player's stage must be one of them. With Stage set, it
// must equal Stage. With neither, the quest must merely be started.
type QuestRequirement struct {
	QuestID string     `yaml:"id"`
	Stage   *QuestKey  `yaml:"stage,omitempty"`
	Stages  []QuestKey `yaml:"stages,omitempty"`
}

// AtStage builds a requirement for an exact stage.
func AtStage(questID string, stage QuestKey) *QuestRequirement {
	return &QuestRequirement{QuestID: questID, Stage: &stage}
}

// InStages builds a requirement for any of the given stages.
func InStages(questID string, stages ...QuestKey) *QuestRequirement {
	return &QuestRequirement{QuestID: questID, Stages: stages}
}

// Started builds a requirement satisfied by any progress on the quest.
func Started(questID string) *QuestRequirement {
	return &QuestRequirement{QuestID: questID}
}

// =============================================================================
// HOOK DESCRIPTORS
// =============================================================================

// Descriptor is the action-independent part of every hook.
type Descriptor struct {
	Type             ActionType        // Registry bucket
	Multi            bool              // Allow later hooks of the same action to queue after this one
	Priority         int               // Ordering hint for registrants; not used by Prioritize
	Strength         Strength          // Advisory; interpreted by the scheduler
	QuestRequirement *QuestRequirement // Optional quest gate
}

// Describe returns the descriptor. It makes *Descriptor, and any struct that
// embeds one, an ActionHook.
func (d *Descriptor) Describe() *Descriptor { return d }

// QuestGated reports whether the hook carries a quest requirement.
func (d *Descriptor) QuestGated() bool { return d.QuestRequirement != nil }

// ActionHook is anything that can be stored in the registry.
type ActionHook interface {
	Describe() *Descriptor
}

// Handler is the content callback for an action of type A.
type Handler[A any] func(action A)

// Hook is a descriptor plus the typed work it performs.
// Action-specific hooks embed Hook[A] and add their own applicability fields.
type Hook[A any] struct {
	Descriptor
	Handler Handler[A] // Optional, invoked immediately by the runner
	Task    *Task[A]   // Optional, submitted to the scheduler
}

// Runnable returns the typed hook.
func (h *Hook[A]) Runnable() *Hook[A] { return h }

// RunnableHook is an ActionHook whose work operates on actions of type A.
type RunnableHook[A any] interface {
	ActionHook
	Runnable() *Hook[A]
}

// Validate checks that the hook can be registered.
func (h *Hook[A]) Validate() error {
	if h.Type == "" {
		return fmt.Errorf("hook type is required")
	}
	if h.Handler == nil && h.Task == nil {
		return fmt.Errorf("%s hook: handler or task is required", h.Type)
	}
	if h.Task != nil {
		if err := h.Task.Validate(); err != nil {
			return fmt.Errorf("%s hook: %w", h.Type, err)
		}
	}
	if h.QuestRequirement != nil && h.QuestRequirement.QuestID == "" {
		return fmt.Errorf("%s hook: quest requirement without quest id", h.Type)
	}
	return nil
}
