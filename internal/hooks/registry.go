// Registry manages hook registration and lookup.
//
// DESIGN: Map of action type → hooks in insertion order.
// Content loaders register at startup; pipes read concurrently afterwards.
package hooks

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds registered hooks keyed by action type.
type Registry struct {
	hooks map[ActionType][]ActionHook
	mu    sync.RWMutex
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[ActionType][]ActionHook),
	}
}

// Register appends a hook to the bucket named by its descriptor type.
func (r *Registry) Register(hook ActionHook) error {
	if hook == nil || hook.Describe() == nil {
		return fmt.Errorf("nil hook")
	}
	if v, ok := hook.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	actionType := hook.Describe().Type
	if actionType == "" {
		return fmt.Errorf("hook type is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[actionType] = append(r.hooks[actionType], hook)
	return nil
}

// Count returns the number of hooks registered for an action type.
func (r *Registry) Count(actionType ActionType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[actionType])
}

// Types returns the action types that have at least one hook, sorted.
func (r *Registry) Types() []ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ActionType, 0, len(r.hooks))
	for t, list := range r.hooks {
		if len(list) > 0 {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Lookup returns the hooks registered for actionType in insertion order,
// narrowed by filter when it is non-nil. Hooks of a different Go type than T
// are skipped. An unknown type or empty bucket yields an empty slice.
func Lookup[T ActionHook](r *Registry, actionType ActionType, filter func(T) bool) []T {
	r.mu.RLock()
	bucket := r.hooks[actionType]
	r.mu.RUnlock()

	if len(bucket) == 0 {
		return []T{}
	}

	out := make([]T, 0, len(bucket))
	for _, h := range bucket {
		typed, ok := h.(T)
		if !ok {
			continue
		}
		if filter != nil && !filter(typed) {
			continue
		}
		out = append(out, typed)
	}
	return out
}

// Match looks hooks up and applies the quest-gated override.
func Match[T ActionHook](r *Registry, actionType ActionType, filter func(T) bool) []T {
	return Prioritize(Lookup(r, actionType, filter))
}
