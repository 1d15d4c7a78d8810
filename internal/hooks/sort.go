package hooks

// Prioritize applies the quest override: if any hook is quest-gated, only the
// quest-gated hooks are returned; otherwise all hooks are. Relative order is
// preserved. Priority and Strength are not consulted.
func Prioritize[T ActionHook](matching []T) []T {
	gated := make([]T, 0, len(matching))
	for _, h := range matching {
		if h.Describe().QuestGated() {
			gated = append(gated, h)
		}
	}
	if len(gated) > 0 {
		return gated
	}
	out := make([]T, len(matching))
	copy(out, matching)
	return out
}
