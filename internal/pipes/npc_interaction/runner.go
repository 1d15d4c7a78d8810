package npcinteraction

import (
	"context"
	"errors"
	"fmt"

	"github.com/runeforge/hookgate/internal/scheduler"
	"github.com/runeforge/hookgate/internal/world"
)

// ErrBusy is returned when the player became busy before a walk could start.
var ErrBusy = errors.New("player busy")

// Locker marks a player busy for the duration of a walk.
type Locker interface {
	Lock(playerID string) bool
	Unlock(playerID string)
}

// Runner walks the player to the NPC when the lead hook asks for it, then
// hands the bundle to the scheduler.
type Runner struct {
	scheduler *scheduler.Scheduler
	mover     world.Mover
	locker    Locker
	walkTo    bool
}

// NewRunner creates a runner. mover and locker may be nil, in which case
// walk-to is skipped.
func NewRunner(s *scheduler.Scheduler, mover world.Mover, locker Locker, honorWalkTo bool) *Runner {
	return &Runner{
		scheduler: s,
		mover:     mover,
		locker:    locker,
		walkTo:    honorWalkTo,
	}
}

// Run executes a dispatched bundle and returns the submitted task handles.
func (r *Runner) Run(ctx context.Context, bundle *Bundle) ([]*scheduler.Handle, error) {
	if bundle == nil || len(bundle.Hooks) == 0 {
		return nil, nil
	}
	player := bundle.Action.Player

	if r.walkTo && r.mover != nil && bundle.Hooks[0].WalkTo {
		if r.locker != nil {
			if !r.locker.Lock(player.ID()) {
				return nil, ErrBusy
			}
			defer r.locker.Unlock(player.ID())
		}
		if err := r.mover.WalkTo(ctx, player, bundle.ActionPosition); err != nil {
			return nil, fmt.Errorf("walk to %s: %w", bundle.Action.NPC.Key, err)
		}
	}

	return scheduler.Run(r.scheduler, player.ID(), bundle)
}
