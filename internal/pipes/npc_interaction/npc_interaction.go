// Package npcinteraction implements the NPC interaction action pipe.
//
// DESIGN: A player invokes an option ("talk-to", "attack", ...) on an NPC.
//  1. Busy players are refused before any hook is looked at (no warning)
//  2. Hooks are filtered by quest eligibility, then NPC key, then option
//  3. Quest-gated matches override generic ones
//  4. No match: one warning naming option, NPC and position
//  5. Otherwise the hooks and a snapshot of the interaction are bundled
//
// Running the bundle (walk-to, scheduling) is done by Runner in runner.go.
package npcinteraction

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/runeforge/hookgate/internal/hooks"
	"github.com/runeforge/hookgate/internal/monitoring"
	"github.com/runeforge/hookgate/internal/pipes"
	"github.com/runeforge/hookgate/internal/world"
)

// Action is the payload handed to NPC interaction handlers and tasks.
type Action struct {
	Player   world.Player   // The player performing the action
	NPC      world.NPC      // The NPC the action targets
	Position world.Position // Where the NPC was when the action started
	Option   string         // The option used, e.g. "talk-to"
}

// Hook is an NPC interaction hook.
type Hook struct {
	hooks.Hook[Action]

	NPCs    hooks.Keys // NPC keys this hook applies to; empty = all
	Options hooks.Keys // Options this hook applies to; empty = all
	WalkTo  bool       // Walk the player to the NPC before running
}

// Bundle is a dispatched NPC interaction.
type Bundle = pipes.RunnableHooks[Action, *Hook]

// Result is the pipe's answer for one interaction.
type Result = pipes.Result[Action, *Hook]

// NewHook creates a hook with its descriptor type set.
func NewHook() *Hook {
	h := &Hook{}
	h.Type = hooks.ActionNPCInteraction
	return h
}

// Pipe dispatches NPC interactions.
type Pipe struct {
	cfg      pipes.NPCInteractionConfig
	registry *hooks.Registry
	quests   hooks.QuestState
	logger   zerolog.Logger
	metrics  *monitoring.MetricsCollector
	tracker  *monitoring.Tracker
}

// New creates an NPC interaction pipe over a registry and quest state.
func New(cfg pipes.NPCInteractionConfig, registry *hooks.Registry, quests hooks.QuestState) *Pipe {
	return &Pipe{
		cfg:      cfg,
		registry: registry,
		quests:   quests,
		logger:   log.Logger,
	}
}

// WithLogger sets the logger used for unhandled-interaction warnings.
func (p *Pipe) WithLogger(logger zerolog.Logger) *Pipe {
	p.logger = logger
	return p
}

// WithMetrics attaches a metrics collector.
func (p *Pipe) WithMetrics(metrics *monitoring.MetricsCollector) *Pipe {
	p.metrics = metrics
	return p
}

// WithTracker attaches the unhandled-interaction tracker.
func (p *Pipe) WithTracker(tracker *monitoring.Tracker) *Pipe {
	p.tracker = tracker
	return p
}

// Name returns the pipe name.
func (p *Pipe) Name() string { return string(hooks.ActionNPCInteraction) }

// ActionType returns the registry bucket this pipe reads.
func (p *Pipe) ActionType() hooks.ActionType { return hooks.ActionNPCInteraction }

// Enabled returns whether the pipe is active.
func (p *Pipe) Enabled() bool { return p.cfg.Enabled }

// Dispatch matches an interaction against the registered NPC hooks.
func (p *Pipe) Dispatch(ctx context.Context, player world.Player, npc world.NPC, pos world.Position, option string) Result {
	if player.Busy() {
		p.metrics.RecordBusy()
		return pipes.Busy[Action, *Hook]()
	}

	matched := hooks.Match(p.registry, hooks.ActionNPCInteraction, hooks.All(
		hooks.QuestFilter[*Hook](p.quests, player.ID()),
		func(h *Hook) bool { return h.NPCs.Matches(npc.Key) },
		func(h *Hook) bool { return h.Options.Matches(option) },
	))

	if len(matched) == 0 {
		p.reportUnhandled(ctx, player, npc, pos, option)
		return pipes.NoMatch[Action, *Hook]()
	}

	p.metrics.RecordDispatched(len(matched))
	return pipes.Dispatch(matched, pos, Action{
		Player:   player,
		NPC:      npc,
		Position: pos,
		Option:   option,
	})
}

func (p *Pipe) reportUnhandled(ctx context.Context, player world.Player, npc world.NPC, pos world.Position, option string) {
	requestID := monitoring.RequestIDFromContext(ctx)

	p.logger.Warn().
		Str("request_id", requestID).
		Str("player", player.ID()).
		Str("option", option).
		Str("npc", npc.Key).
		Int("npc_id", npc.ID).
		Str("npc_name", npc.Name).
		Str("position", pos.String()).
		Msgf("Unhandled NPC interaction: %s %s (id-%d) @ %s", option, npc.Key, npc.ID, pos)

	p.metrics.RecordUnhandled()
	p.tracker.RecordUnhandled(monitoring.UnhandledEvent{
		RequestID:  requestID,
		ActionType: string(hooks.ActionNPCInteraction),
		PlayerID:   player.ID(),
		Option:     option,
		TargetID:   npc.ID,
		TargetKey:  npc.Key,
		TargetName: npc.Name,
		Position:   pos.String(),
	})
}
