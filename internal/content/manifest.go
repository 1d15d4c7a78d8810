// Package content loads declarative hook content into the registry.
//
// DESIGN: Content authors describe NPC dialogue in YAML; each entry becomes one
// NPC interaction hook. Entries without a task block get a Handler that runs
// immediately; entries with a task block get a scheduled Task.
//
// Example:
//
//	npc_interactions:
//	  - name: goblin-quest-talk
//	    npcs: goblin
//	    options: [talk-to]
//	    quest: {id: goblin_diplomacy, stage: 3}
//	    say: "Grubfoot nods at {player}."
//	    set_quest: {id: goblin_diplomacy, stage: complete}
//	    task: {delay_ticks: 2}
package content

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/runeforge/hookgate/internal/hooks"
	npcinteraction "github.com/runeforge/hookgate/internal/pipes/npc_interaction"
)

// =============================================================================
// MANIFEST
// =============================================================================

// Manifest is one content file.
type Manifest struct {
	NPCInteractions []NPCInteraction `yaml:"npc_interactions"`
}

// NPCInteraction declares one NPC interaction hook.
type NPCInteraction struct {
	Name     string                  `yaml:"name"`      // For logs
	NPCs     hooks.Keys              `yaml:"npcs"`      // One key or a list; empty = all NPCs
	Options  hooks.Keys              `yaml:"options"`   // One option or a list; empty = all options
	WalkTo   bool                    `yaml:"walk_to"`   // Walk to the NPC first
	Multi    bool                    `yaml:"multi"`     // Let later hooks run too
	Priority int                     `yaml:"priority"`  // Advisory
	Strength string                  `yaml:"strength"`  // weak | normal | strong
	Quest    *hooks.QuestRequirement `yaml:"quest"`     // Quest gate
	Say      string                  `yaml:"say"`       // Message sent to the player
	SetQuest *QuestUpdate            `yaml:"set_quest"` // Quest stage to record
	Task     *TaskSpec               `yaml:"task"`      // Schedule instead of running immediately
}

// QuestUpdate records a quest stage when the hook runs.
type QuestUpdate struct {
	ID    string         `yaml:"id"`
	Stage hooks.QuestKey `yaml:"stage"`
}

// TaskSpec maps onto hooks.Task timing.
type TaskSpec struct {
	DelayTicks    int           `yaml:"delay_ticks"`
	Delay         time.Duration `yaml:"delay"`
	IntervalTicks int           `yaml:"interval_ticks"`
	Interval      time.Duration `yaml:"interval"`
	Repeat        int           `yaml:"repeat"` // Stop an interval task after this many firings; 0 = until cancelled
}

// Parse decodes a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse content manifest: %w", err)
	}
	return &m, nil
}

// LoadFile reads and decodes a manifest file.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content manifest '%s': %w", path, err)
	}
	return Parse(data)
}

// =============================================================================
// LOADER
// =============================================================================

// Messenger delivers text to a player.
type Messenger interface {
	Send(playerID, text string) bool
}

// Progress reads and writes quest progression.
type Progress interface {
	hooks.QuestState
	SetStage(playerID, questID string, stage hooks.QuestKey) error
}

// Loader compiles manifests into hooks.
type Loader struct {
	messenger Messenger
	progress  Progress
}

// NewLoader creates a loader whose hooks talk to messenger and progress.
func NewLoader(messenger Messenger, progress Progress) *Loader {
	return &Loader{messenger: messenger, progress: progress}
}

// LoadFiles registers every manifest in paths and returns the hook count.
func (l *Loader) LoadFiles(reg *hooks.Registry, paths []string) (int, error) {
	total := 0
	for _, path := range paths {
		m, err := LoadFile(path)
		if err != nil {
			return total, err
		}
		n, err := l.Register(reg, m)
		total += n
		if err != nil {
			return total, fmt.Errorf("%s: %w", path, err)
		}
		log.Info().Str("manifest", path).Int("hooks", n).Msg("content loaded")
	}
	return total, nil
}

// Register compiles and registers every entry of m.
func (l *Loader) Register(reg *hooks.Registry, m *Manifest) (int, error) {
	for i, entry := range m.NPCInteractions {
		hook, err := l.Build(entry)
		if err != nil {
			return i, fmt.Errorf("npc_interactions[%d] %s: %w", i, entry.Name, err)
		}
		if err := reg.Register(hook); err != nil {
			return i, fmt.Errorf("npc_interactions[%d] %s: %w", i, entry.Name, err)
		}
	}
	return len(m.NPCInteractions), nil
}

// Build compiles one entry into an NPC interaction hook.
func (l *Loader) Build(entry NPCInteraction) (*npcinteraction.Hook, error) {
	if entry.Say == "" && entry.SetQuest == nil {
		return nil, fmt.Errorf("say or set_quest is required")
	}
	if entry.SetQuest != nil && entry.SetQuest.ID == "" {
		return nil, fmt.Errorf("set_quest.id is required")
	}
	strength, err := hooks.ParseStrength(entry.Strength)
	if err != nil {
		return nil, err
	}

	hook := npcinteraction.NewHook()
	hook.Multi = entry.Multi
	hook.Priority = entry.Priority
	hook.Strength = strength
	hook.QuestRequirement = entry.Quest
	hook.NPCs = entry.NPCs
	hook.Options = entry.Options
	hook.WalkTo = entry.WalkTo

	if entry.Task == nil {
		hook.Handler = func(action npcinteraction.Action) {
			if err := l.apply(entry, action); err != nil {
				log.Error().Err(err).Str("hook", entry.Name).Msg("content handler failed")
			}
		}
		return hook, nil
	}

	spec := entry.Task
	task := &hooks.Task[npcinteraction.Action]{
		DelayTicks:    spec.DelayTicks,
		Delay:         spec.Delay,
		IntervalTicks: spec.IntervalTicks,
		Interval:      spec.Interval,
		Execute: func(_ context.Context, run *hooks.TaskRun[npcinteraction.Action]) error {
			if err := l.apply(entry, run.Action); err != nil {
				return err
			}
			if spec.Repeat > 0 && run.Iteration+1 >= spec.Repeat && run.Stop != nil {
				run.Stop()
			}
			return nil
		},
	}
	if entry.Quest != nil && l.progress != nil {
		req := *entry.Quest
		task.CanActivate = func(_ context.Context, run *hooks.TaskRun[npcinteraction.Action]) bool {
			return l.progress.Satisfies(run.Owner, req)
		}
	}
	hook.Task = task
	return hook, nil
}

// apply performs an entry's effects for one action.
func (l *Loader) apply(entry NPCInteraction, action npcinteraction.Action) error {
	playerID := action.Player.ID()

	if entry.Say != "" && l.messenger != nil {
		text := strings.NewReplacer(
			"{player}", playerID,
			"{npc}", action.NPC.Name,
			"{option}", action.Option,
		).Replace(entry.Say)
		if !l.messenger.Send(playerID, text) {
			log.Warn().Str("player", playerID).Str("hook", entry.Name).Msg("message dropped")
		}
	}

	if entry.SetQuest != nil && l.progress != nil {
		if err := l.progress.SetStage(playerID, entry.SetQuest.ID, entry.SetQuest.Stage); err != nil {
			return fmt.Errorf("set quest %s: %w", entry.SetQuest.ID, err)
		}
	}
	return nil
}
