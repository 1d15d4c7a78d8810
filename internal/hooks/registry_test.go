package hooks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runeforge/hookgate/internal/hooks"
)

// =============================================================================
// TEST HOOKS
// =============================================================================

type testAction struct {
	target string
}

type testHook struct {
	hooks.Hook[testAction]
	name string
}

const actionTest hooks.ActionType = "test_action"

func newTestHook(name string, req *hooks.QuestRequirement) *testHook {
	h := &testHook{name: name}
	h.Type = actionTest
	h.QuestRequirement = req
	h.Handler = func(testAction) {}
	return h
}

// otherHook shares the action type but not the Go type.
type otherHook struct {
	hooks.Descriptor
}

func names(list []*testHook) []string {
	out := make([]string, 0, len(list))
	for _, h := range list {
		out = append(out, h.name)
	}
	return out
}

// questState reports satisfied for the quest ids it holds.
type questState map[string]bool

func (q questState) Satisfies(_ string, req hooks.QuestRequirement) bool {
	return q[req.QuestID]
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegistry_LookupPreservesInsertionOrder(t *testing.T) {
	reg := hooks.NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, reg.Register(newTestHook(name, nil)))
	}

	got := hooks.Lookup[*testHook](reg, actionTest, nil)
	assert.Equal(t, []string{"a", "b", "c"}, names(got))
	assert.Equal(t, 3, reg.Count(actionTest))
}

func TestRegistry_LookupUnknownTypeIsEmpty(t *testing.T) {
	reg := hooks.NewRegistry()

	got := hooks.Lookup[*testHook](reg, "never_registered", nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRegistry_LookupAppliesFilter(t *testing.T) {
	reg := hooks.NewRegistry()
	require.NoError(t, reg.Register(newTestHook("keep-1", nil)))
	require.NoError(t, reg.Register(newTestHook("drop", nil)))
	require.NoError(t, reg.Register(newTestHook("keep-2", nil)))

	got := hooks.Lookup(reg, actionTest, func(h *testHook) bool { return h.name != "drop" })
	assert.Equal(t, []string{"keep-1", "keep-2"}, names(got))
}

func TestRegistry_LookupSkipsOtherGoTypes(t *testing.T) {
	reg := hooks.NewRegistry()
	require.NoError(t, reg.Register(newTestHook("typed", nil)))
	require.NoError(t, reg.Register(&otherHook{Descriptor: hooks.Descriptor{Type: actionTest}}))

	got := hooks.Lookup[*testHook](reg, actionTest, nil)
	assert.Equal(t, []string{"typed"}, names(got))
	assert.Equal(t, 2, reg.Count(actionTest))
}

func TestRegistry_RegisterRejectsInvalidHooks(t *testing.T) {
	reg := hooks.NewRegistry()

	noWork := &testHook{name: "no-work"}
	noWork.Type = actionTest
	assert.Error(t, reg.Register(noWork), "hook without handler or task")

	noType := newTestHook("no-type", nil)
	noType.Type = ""
	assert.Error(t, reg.Register(noType))

	noQuestID := newTestHook("no-quest", &hooks.QuestRequirement{})
	assert.Error(t, reg.Register(noQuestID))

	assert.Error(t, reg.Register(nil))
	assert.Equal(t, 0, reg.Count(actionTest))
}

func TestRegistry_Types(t *testing.T) {
	reg := hooks.NewRegistry()
	require.NoError(t, reg.Register(newTestHook("x", nil)))
	require.NoError(t, reg.Register(&otherHook{Descriptor: hooks.Descriptor{Type: "alpha"}}))

	assert.Equal(t, []hooks.ActionType{"alpha", actionTest}, reg.Types())
}

// =============================================================================
// MATCH / PRIORITIZE TESTS
// =============================================================================

func TestPrioritize_NoGatedHooksReturnsAllInOrder(t *testing.T) {
	in := []*testHook{newTestHook("a", nil), newTestHook("b", nil), newTestHook("c", nil)}

	out := hooks.Prioritize(in)
	assert.Equal(t, names(in), names(out))

	// Result is a copy.
	out[0] = newTestHook("z", nil)
	assert.Equal(t, "a", in[0].name)
}

func TestPrioritize_GatedHooksOverrideGeneric(t *testing.T) {
	in := []*testHook{
		newTestHook("generic-1", nil),
		newTestHook("gated-1", hooks.Started("q1")),
		newTestHook("generic-2", nil),
		newTestHook("gated-2", hooks.AtStage("q2", 3)),
	}

	out := hooks.Prioritize(in)
	assert.Equal(t, []string{"gated-1", "gated-2"}, names(out))
}

func TestPrioritize_Empty(t *testing.T) {
	assert.Empty(t, hooks.Prioritize([]*testHook{}))
}

func TestMatch_QuestFilterThenOverride(t *testing.T) {
	reg := hooks.NewRegistry()
	require.NoError(t, reg.Register(newTestHook("generic", nil)))
	require.NoError(t, reg.Register(newTestHook("gated-eligible", hooks.Started("q-yes"))))
	require.NoError(t, reg.Register(newTestHook("gated-ineligible", hooks.Started("q-no"))))

	state := questState{"q-yes": true}
	got := hooks.Match(reg, actionTest, hooks.QuestFilter[*testHook](state, "p1"))
	assert.Equal(t, []string{"gated-eligible"}, names(got))
}

func TestMatch_IneligibleGatedHooksFallBackToGeneric(t *testing.T) {
	reg := hooks.NewRegistry()
	require.NoError(t, reg.Register(newTestHook("gated", hooks.Started("q"))))
	require.NoError(t, reg.Register(newTestHook("generic", nil)))

	got := hooks.Match(reg, actionTest, hooks.QuestFilter[*testHook](questState{}, "p1"))
	assert.Equal(t, []string{"generic"}, names(got))
}
