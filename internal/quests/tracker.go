// Package quests answers quest-requirement queries from stored progression.
//
// DESIGN: Tracker implements hooks.QuestState over a store.Store.
// Evaluation rules (first match wins):
//  1. Stages set: current stage must be one of them
//  2. Stage set:  current stage must equal it
//  3. Neither:    quest must be started (non-zero stage)
//
// A player with no record is at stage 0. If the store cannot be read, no
// requirement is satisfied.
package quests

import (
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/runeforge/hookgate/internal/hooks"
	"github.com/runeforge/hookgate/internal/store"
)

// Tracker reads and advances quest progression.
type Tracker struct {
	store store.Store
}

// NewTracker creates a tracker over st.
func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st}
}

// Stage returns the player's current stage for a quest (0 when not started).
func (t *Tracker) Stage(playerID, questID string) (hooks.QuestKey, error) {
	stage, ok, err := t.store.Stage(playerID, questID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return hooks.QuestKey(stage), nil
}

// SetStage records the player's stage for a quest.
func (t *Tracker) SetStage(playerID, questID string, stage hooks.QuestKey) error {
	if err := t.store.SetStage(playerID, questID, int(stage)); err != nil {
		return err
	}
	log.Debug().
		Str("player", playerID).
		Str("quest", questID).
		Str("stage", stage.String()).
		Msg("quest stage updated")
	return nil
}

// Satisfies implements hooks.QuestState. A failed lookup satisfies nothing.
func (t *Tracker) Satisfies(playerID string, req hooks.QuestRequirement) bool {
	stage, err := t.Stage(playerID, req.QuestID)
	if err != nil {
		log.Error().
			Err(err).
			Str("player", playerID).
			Str("quest", req.QuestID).
			Msg("quest lookup failed")
		return false
	}
	return Evaluate(req, stage)
}

// Evaluate checks a requirement against a known stage.
func Evaluate(req hooks.QuestRequirement, current hooks.QuestKey) bool {
	switch {
	case len(req.Stages) > 0:
		return slices.Contains(req.Stages, current)
	case req.Stage != nil:
		return current == *req.Stage
	default:
		return current != 0
	}
}
