// Hook filters: key membership, quest eligibility, predicate composition.
package hooks

import (
	"slices"

	"gopkg.in/yaml.v3"
)

// Keys is a set of exact-match keys declared by a hook (npc keys, options).
// A nil set (not declared) is a wildcard. A declared empty set matches nothing.
type Keys []string

// Matches reports whether candidate is in the set, or the set is undeclared.
func (k Keys) Matches(candidate string) bool {
	if k == nil {
		return true
	}
	return slices.Contains(k, candidate)
}

// UnmarshalYAML accepts a single scalar or a sequence.
func (k *Keys) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*k = Keys{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	if list == nil {
		list = []string{}
	}
	*k = Keys(list)
	return nil
}

// QuestState answers whether a player satisfies a quest requirement.
// Implemented by the quest progression collaborator (internal/quests).
type QuestState interface {
	Satisfies(playerID string, req QuestRequirement) bool
}

// QuestFilter returns a predicate that passes ungated hooks unconditionally and
// gated hooks only when state reports the requirement satisfied.
func QuestFilter[T ActionHook](state QuestState, playerID string) func(T) bool {
	return func(h T) bool {
		req := h.Describe().QuestRequirement
		if req == nil {
			return true
		}
		if state == nil {
			return false
		}
		return state.Satisfies(playerID, *req)
	}
}

// All combines predicates with logical AND, evaluated in order.
// Nil predicates are treated as always-true.
func All[T any](preds ...func(T) bool) func(T) bool {
	return func(v T) bool {
		for _, p := range preds {
			if p != nil && !p(v) {
				return false
			}
		}
		return true
	}
}
