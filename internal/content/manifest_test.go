package content_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runeforge/hookgate/internal/content"
	"github.com/runeforge/hookgate/internal/hooks"
	npcinteraction "github.com/runeforge/hookgate/internal/pipes/npc_interaction"
	"github.com/runeforge/hookgate/internal/quests"
	"github.com/runeforge/hookgate/internal/store"
	"github.com/runeforge/hookgate/internal/world"
)

const manifestYAML = `
npc_interactions:
  - name: generic
    npcs: goblin
    options: [talk-to, trade]
    say: "Hello {player}, I am {npc}. You chose {option}."

  - name: finish
    npcs: [goblin_chief]
    walk_to: true
    multi: true
    strength: strong
    quest: {id: goblin_diplomacy, stages: [2, 3]}
    set_quest: {id: goblin_diplomacy, stage: complete}
    task: {delay_ticks: 2, interval: 1s, repeat: 2}
`

// messenger records sent messages.
type messenger struct {
	mu   sync.Mutex
	sent []string
}

func (m *messenger) Send(playerID, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, playerID+": "+text)
	return true
}

func action(npc world.NPC, option string) npcinteraction.Action {
	return npcinteraction.Action{Player: world.NewCharacter("p1"), NPC: npc, Option: option}
}

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse(t *testing.T) {
	m, err := content.Parse([]byte(manifestYAML))
	require.NoError(t, err)
	require.Len(t, m.NPCInteractions, 2)

	generic := m.NPCInteractions[0]
	assert.Equal(t, hooks.Keys{"goblin"}, generic.NPCs)
	assert.Equal(t, hooks.Keys{"talk-to", "trade"}, generic.Options)
	assert.Nil(t, generic.Task)

	finish := m.NPCInteractions[1]
	assert.Empty(t, finish.Options)
	require.NotNil(t, finish.Quest)
	assert.Equal(t, []hooks.QuestKey{2, 3}, finish.Quest.Stages)
	require.NotNil(t, finish.SetQuest)
	assert.Equal(t, hooks.StageComplete, finish.SetQuest.Stage)
	require.NotNil(t, finish.Task)
	assert.Equal(t, 2, finish.Task.DelayTicks)
	assert.Equal(t, 2, finish.Task.Repeat)
}

func TestParse_Invalid(t *testing.T) {
	_, err := content.Parse([]byte("npc_interactions: {broken"))
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := content.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// =============================================================================
// BUILD TESTS
// =============================================================================

func TestBuild_HandlerSendsMessage(t *testing.T) {
	msg := &messenger{}
	loader := content.NewLoader(msg, nil)

	hook, err := loader.Build(content.NPCInteraction{
		NPCs: hooks.Keys{"goblin"},
		Say:  "Hello {player}, I am {npc}. You chose {option}.",
	})
	require.NoError(t, err)
	require.NotNil(t, hook.Handler)
	assert.Nil(t, hook.Task)
	assert.Equal(t, hooks.ActionNPCInteraction, hook.Type)
	assert.Equal(t, hooks.StrengthNormal, hook.Strength)

	hook.Handler(action(world.NPC{Key: "goblin", Name: "Grubfoot"}, "talk-to"))

	assert.Equal(t, []string{"p1: Hello p1, I am Grubfoot. You chose talk-to."}, msg.sent)
}

func TestBuild_HandlerSetsQuestStage(t *testing.T) {
	tracker := quests.NewTracker(store.NewMemoryStore())
	loader := content.NewLoader(nil, tracker)

	hook, err := loader.Build(content.NPCInteraction{
		SetQuest: &content.QuestUpdate{ID: "goblin_diplomacy", Stage: 1},
	})
	require.NoError(t, err)

	hook.Handler(action(world.NPC{Key: "goblin_chief"}, "talk-to"))

	assert.Equal(t, hooks.QuestKey(1), stageOf(t, tracker, "p1", "goblin_diplomacy"))
}

func TestBuild_TaskEntry(t *testing.T) {
	tracker := quests.NewTracker(store.NewMemoryStore())
	loader := content.NewLoader(&messenger{}, tracker)

	m, err := content.Parse([]byte(manifestYAML))
	require.NoError(t, err)
	hook, err := loader.Build(m.NPCInteractions[1])
	require.NoError(t, err)

	assert.Nil(t, hook.Handler)
	require.NotNil(t, hook.Task)
	assert.True(t, hook.WalkTo)
	assert.True(t, hook.Multi)
	assert.Equal(t, hooks.StrengthStrong, hook.Strength)
	assert.Equal(t, 2, hook.Task.DelayTicks)
	require.NotNil(t, hook.Task.CanActivate)

	run := &hooks.TaskRun[npcinteraction.Action]{
		Owner:  "p1",
		Action: action(world.NPC{Key: "goblin_chief"}, "talk-to"),
	}
	assert.False(t, hook.Task.CanActivate(context.Background(), run), "quest not at stage 2 or 3")

	require.NoError(t, tracker.SetStage("p1", "goblin_diplomacy", 2))
	assert.True(t, hook.Task.CanActivate(context.Background(), run))

	stops := 0
	run.Stop = func() { stops++ }
	require.NoError(t, hook.Task.Execute(context.Background(), run))
	assert.Zero(t, stops, "first firing keeps repeating")
	assert.Equal(t, hooks.StageComplete, stageOf(t, tracker, "p1", "goblin_diplomacy"))

	run.Iteration = 1
	require.NoError(t, hook.Task.Execute(context.Background(), run))
	assert.Equal(t, 1, stops, "stops after the configured repeat count")
}

func TestBuild_TaskPropagatesStoreError(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Close())
	loader := content.NewLoader(nil, quests.NewTracker(st))

	hook, err := loader.Build(content.NPCInteraction{
		SetQuest: &content.QuestUpdate{ID: "q", Stage: 1},
		Task:     &content.TaskSpec{},
	})
	require.NoError(t, err)

	err = hook.Task.Execute(context.Background(), &hooks.TaskRun[npcinteraction.Action]{
		Owner:  "p1",
		Action: action(world.NPC{Key: "goblin"}, "talk-to"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set quest q")
}

func TestBuild_Errors(t *testing.T) {
	loader := content.NewLoader(nil, nil)

	tests := []struct {
		name  string
		entry content.NPCInteraction
	}{
		{name: "no effect", entry: content.NPCInteraction{}},
		{name: "set_quest without id", entry: content.NPCInteraction{SetQuest: &content.QuestUpdate{Stage: 1}}},
		{name: "unknown strength", entry: content.NPCInteraction{Say: "hi", Strength: "mighty"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Build(tt.entry)
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// REGISTER TESTS
// =============================================================================

func TestRegister(t *testing.T) {
	reg := hooks.NewRegistry()
	loader := content.NewLoader(&messenger{}, quests.NewTracker(store.NewMemoryStore()))

	m, err := content.Parse([]byte(manifestYAML))
	require.NoError(t, err)
	n, err := loader.Register(reg, m)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, reg.Count(hooks.ActionNPCInteraction))
}

func TestRegister_StopsAtFirstBadEntry(t *testing.T) {
	reg := hooks.NewRegistry()
	loader := content.NewLoader(nil, nil)

	m := &content.Manifest{NPCInteractions: []content.NPCInteraction{
		{Name: "ok", Say: "hi"},
		{Name: "bad"},
	}}
	n, err := loader.Register(reg, m)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "npc_interactions[1] bad")
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, reg.Count(hooks.ActionNPCInteraction))
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goblins.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifestYAML), 0600))

	reg := hooks.NewRegistry()
	loader := content.NewLoader(nil, nil)

	n, err := loader.LoadFiles(reg, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = loader.LoadFiles(reg, []string{filepath.Join(dir, "missing.yaml")})
	var pathErr *os.PathError
	assert.True(t, errors.As(err, &pathErr))
}

func stageOf(t *testing.T, tracker *quests.Tracker, playerID, questID string) hooks.QuestKey {
	t.Helper()
	stage, err := tracker.Stage(playerID, questID)
	require.NoError(t, err)
	return stage
}
