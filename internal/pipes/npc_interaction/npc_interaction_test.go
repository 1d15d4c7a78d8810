package npcinteraction_test

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runeforge/hookgate/internal/hooks"
	"github.com/runeforge/hookgate/internal/monitoring"
	"github.com/runeforge/hookgate/internal/pipes"
	npcinteraction "github.com/runeforge/hookgate/internal/pipes/npc_interaction"
	"github.com/runeforge/hookgate/internal/quests"
	"github.com/runeforge/hookgate/internal/store"
	"github.com/runeforge/hookgate/internal/world"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	goblin = world.NPC{ID: 3, Key: "goblin", Name: "Grubfoot"}
	here   = world.Position{X: 10, Y: 4, Level: 0}
)

type player struct {
	id   string
	busy bool
}

func (p *player) ID() string { return p.id }
func (p *player) Busy() bool { return p.busy }

// countingState wraps a quest state and counts queries.
type countingState struct {
	inner hooks.QuestState
	calls atomic.Int32
}

func (c *countingState) Satisfies(playerID string, req hooks.QuestRequirement) bool {
	c.calls.Add(1)
	return c.inner.Satisfies(playerID, req)
}

func newHook(npcs, options hooks.Keys, req *hooks.QuestRequirement) *npcinteraction.Hook {
	h := npcinteraction.NewHook()
	h.NPCs = npcs
	h.Options = options
	h.QuestRequirement = req
	h.Handler = func(npcinteraction.Action) {}
	return h
}

func newPipe(t *testing.T, reg *hooks.Registry, state hooks.QuestState) (*npcinteraction.Pipe, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	pipe := npcinteraction.New(pipes.NPCInteractionConfig{Enabled: true}, reg, state).
		WithLogger(zerolog.New(&buf)).
		WithMetrics(monitoring.NewMetricsCollector())
	return pipe, &buf
}

func warnings(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), `"level":"warn"`)
}

// =============================================================================
// DISPATCH TESTS
// =============================================================================

func TestDispatch_EmptyRegistryWarnsOnce(t *testing.T) {
	pipe, buf := newPipe(t, hooks.NewRegistry(), nil)

	res := pipe.Dispatch(context.Background(), &player{id: "p1"}, goblin, here, "talk-to")

	assert.Equal(t, pipes.OutcomeNoMatch, res.Outcome)
	assert.Nil(t, res.Bundle)
	assert.Equal(t, 1, warnings(buf))
	assert.Contains(t, buf.String(), "Unhandled NPC interaction: talk-to goblin (id-3) @ 10,4,0")
	assert.Contains(t, buf.String(), `"npc_name":"Grubfoot"`)
}

func TestDispatch_BusyPlayerSkipsRegistryAndLog(t *testing.T) {
	reg := hooks.NewRegistry()
	require.NoError(t, reg.Register(newHook(nil, nil, hooks.Started("q"))))
	state := &countingState{inner: quests.NewTracker(store.NewMemoryStore())}
	pipe, buf := newPipe(t, reg, state)

	res := pipe.Dispatch(context.Background(), &player{id: "p1", busy: true}, goblin, here, "talk-to")

	assert.Equal(t, pipes.OutcomeBusy, res.Outcome)
	assert.False(t, res.Dispatched())
	assert.Zero(t, state.calls.Load(), "registry hooks must not be evaluated")
	assert.Zero(t, warnings(buf))
	assert.Empty(t, buf.String())
}

func TestDispatch_FiltersByNPCAndOption(t *testing.T) {
	reg := hooks.NewRegistry()
	orcOnly := newHook(hooks.Keys{"orc"}, nil, nil)
	attackOnly := newHook(nil, hooks.Keys{"attack"}, nil)
	goblinTalk := newHook(hooks.Keys{"goblin"}, hooks.Keys{"talk-to"}, nil)
	wildcard := newHook(nil, nil, nil)
	for _, h := range []*npcinteraction.Hook{orcOnly, attackOnly, goblinTalk, wildcard} {
		require.NoError(t, reg.Register(h))
	}
	pipe, buf := newPipe(t, reg, nil)

	res := pipe.Dispatch(context.Background(), &player{id: "p1"}, goblin, here, "talk-to")

	require.True(t, res.Dispatched())
	assert.Equal(t, []*npcinteraction.Hook{goblinTalk, wildcard}, res.Bundle.Hooks)
	assert.Zero(t, warnings(buf))
}

func TestDispatch_BundleSnapshotsInteraction(t *testing.T) {
	reg := hooks.NewRegistry()
	require.NoError(t, reg.Register(newHook(nil, nil, nil)))
	pipe, _ := newPipe(t, reg, nil)
	p := &player{id: "p1"}

	pos := here
	res := pipe.Dispatch(context.Background(), p, goblin, pos, "talk-to")
	pos.X = 99

	require.True(t, res.Dispatched())
	assert.Equal(t, here, res.Bundle.ActionPosition)
	assert.Equal(t, here, res.Bundle.Action.Position)
	assert.Equal(t, goblin, res.Bundle.Action.NPC)
	assert.Equal(t, "talk-to", res.Bundle.Action.Option)
	assert.Same(t, p, res.Bundle.Action.Player)
}

func TestDispatch_QuestOverrideScenario(t *testing.T) {
	st := store.NewMemoryStore()
	tracker := quests.NewTracker(st)

	reg := hooks.NewRegistry()
	h1 := newHook(hooks.Keys{"goblin"}, nil, nil)
	h2 := newHook(hooks.Keys{"goblin"}, nil, hooks.AtStage("Q1", 3))
	require.NoError(t, reg.Register(h1))
	require.NoError(t, reg.Register(h2))
	pipe, _ := newPipe(t, reg, tracker)
	p := &player{id: "p1"}

	res := pipe.Dispatch(context.Background(), p, goblin, here, "talk-to")
	require.True(t, res.Dispatched())
	assert.Equal(t, []*npcinteraction.Hook{h1}, res.Bundle.Hooks, "gated hook excluded before stage 3")

	require.NoError(t, tracker.SetStage("p1", "Q1", 3))

	res = pipe.Dispatch(context.Background(), p, goblin, here, "talk-to")
	require.True(t, res.Dispatched())
	assert.Equal(t, []*npcinteraction.Hook{h2}, res.Bundle.Hooks, "gated hook overrides generic")
}

func TestDispatch_NoMatchingKeyWarns(t *testing.T) {
	reg := hooks.NewRegistry()
	require.NoError(t, reg.Register(newHook(hooks.Keys{"orc"}, nil, nil)))
	pipe, buf := newPipe(t, reg, nil)

	res := pipe.Dispatch(context.Background(), &player{id: "p1"}, goblin, here, "talk-to")

	assert.Equal(t, pipes.OutcomeNoMatch, res.Outcome)
	assert.Equal(t, 1, warnings(buf))
}

func TestDispatch_RecordsMetricsAndTelemetry(t *testing.T) {
	path := t.TempDir() + "/unhandled.jsonl"
	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{Enabled: true, UnhandledLogPath: path})
	require.NoError(t, err)
	metrics := monitoring.NewMetricsCollector()

	reg := hooks.NewRegistry()
	require.NoError(t, reg.Register(newHook(hooks.Keys{"goblin"}, nil, nil)))
	pipe := npcinteraction.New(pipes.NPCInteractionConfig{Enabled: true}, reg, nil).
		WithLogger(zerolog.Nop()).
		WithMetrics(metrics).
		WithTracker(tracker)

	pipe.Dispatch(context.Background(), &player{id: "p1"}, goblin, here, "talk-to")
	pipe.Dispatch(context.Background(), &player{id: "p1"}, world.NPC{ID: 7, Key: "orc"}, here, "talk-to")
	pipe.Dispatch(context.Background(), &player{id: "p1", busy: true}, goblin, here, "talk-to")

	stats := metrics.Stats()
	assert.Equal(t, int64(1), stats["dispatched"])
	assert.Equal(t, int64(1), stats["unhandled"])
	assert.Equal(t, int64(1), stats["busy"])
	assert.Equal(t, 1, tracker.Count())
}

func TestPipe_Identity(t *testing.T) {
	pipe := npcinteraction.New(pipes.NPCInteractionConfig{}, hooks.NewRegistry(), nil)

	assert.Equal(t, "npc_interaction", pipe.Name())
	assert.Equal(t, hooks.ActionNPCInteraction, pipe.ActionType())
	assert.False(t, pipe.Enabled())

	var _ pipes.Pipe = pipe
}
