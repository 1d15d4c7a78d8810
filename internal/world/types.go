// Package world defines the actor-side collaborators the dispatch core reads.
//
// DESIGN: The core only needs three things from the world:
//   - Position:   where an interaction happened (snapshotted by value)
//   - Player:     who is acting, and whether they are busy
//   - NPC:        what is being interacted with (id, key, name)
//
// Roster is an in-memory player registry used by the gateway. It owns the
// busy flag; pipes only read it.
package world

import (
	"context"
	"fmt"
)

// Position is a tile coordinate on a map level.
// It is a value type so a captured position cannot change under a bundle.
type Position struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Level int `json:"level"`
}

// String formats the position as "x,y,level".
func (p Position) String() string {
	return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Level)
}

// Player is the acting entity.
type Player interface {
	// ID returns the unique player identifier.
	ID() string

	// Busy reports whether the player is in the middle of another action.
	Busy() bool
}

// NPC describes a non-player character targeted by an interaction.
type NPC struct {
	ID   int    `json:"id"`   // World instance id
	Key  string `json:"key"`  // Content key, e.g. "goblin"
	Name string `json:"name"` // Display name
}

// Mover walks a player to a position before an action runs.
type Mover interface {
	WalkTo(ctx context.Context, player Player, pos Position) error
}
