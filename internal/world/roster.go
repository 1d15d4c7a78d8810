// Roster tracks connected players and their busy flags.
package world

import (
	"context"
	"sync"
	"sync/atomic"
)

// outboxSize bounds queued messages per player.
const outboxSize = 64

// Character is the in-memory Player used by the gateway.
type Character struct {
	id       string
	busy     atomic.Bool
	position atomic.Pointer[Position]
	outbox   chan string
}

// NewCharacter creates a character standing at the origin.
func NewCharacter(id string) *Character {
	c := &Character{id: id, outbox: make(chan string, outboxSize)}
	c.position.Store(&Position{})
	return c
}

// ID returns the player identifier.
func (c *Character) ID() string { return c.id }

// Busy reports whether the character is locked by an action.
func (c *Character) Busy() bool { return c.busy.Load() }

// TryAcquire sets the busy flag if it is clear. Returns false when already busy.
func (c *Character) TryAcquire() bool { return c.busy.CompareAndSwap(false, true) }

// Release clears the busy flag.
func (c *Character) Release() { c.busy.Store(false) }

// Position returns the character's current position.
func (c *Character) Position() Position { return *c.position.Load() }

// MoveTo teleports the character.
func (c *Character) MoveTo(pos Position) { c.position.Store(&pos) }

// Send queues a message for the player. Drops the message if the outbox is full.
func (c *Character) Send(text string) bool {
	select {
	case c.outbox <- text:
		return true
	default:
		return false
	}
}

// Outbox returns the channel of queued messages.
func (c *Character) Outbox() <-chan string { return c.outbox }

// Roster is a thread-safe map of player id → Character.
type Roster struct {
	players map[string]*Character
	mu      sync.RWMutex
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{players: make(map[string]*Character)}
}

// Join returns the character for id, creating it on first use.
func (r *Roster) Join(id string) *Character {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.players[id]; ok {
		return c
	}
	c := NewCharacter(id)
	r.players[id] = c
	return c
}

// TryJoin creates a character for id. Returns false if id is already connected.
func (r *Roster) TryJoin(id string) (*Character, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[id]; ok {
		return nil, false
	}
	c := NewCharacter(id)
	r.players[id] = c
	return c, true
}

// Get returns a character by id.
func (r *Roster) Get(id string) (*Character, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.players[id]
	return c, ok
}

// Leave removes a character.
func (r *Roster) Leave(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, id)
}

// Len returns the number of connected players.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Send delivers a message to a connected player. Returns false if the player
// is unknown or their outbox is full.
func (r *Roster) Send(playerID, text string) bool {
	c, ok := r.Get(playerID)
	if !ok {
		return false
	}
	return c.Send(text)
}

// Lock marks a connected player busy. Returns false if unknown or already busy.
func (r *Roster) Lock(playerID string) bool {
	c, ok := r.Get(playerID)
	if !ok {
		return false
	}
	return c.TryAcquire()
}

// Unlock clears a player's busy flag.
func (r *Roster) Unlock(playerID string) {
	if c, ok := r.Get(playerID); ok {
		c.Release()
	}
}

// WalkTo moves the player instantly. The roster has no pathfinding; a real
// world implementation would path the player across ticks.
func (r *Roster) WalkTo(ctx context.Context, player Player, pos Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c, ok := r.Get(player.ID()); ok {
		c.MoveTo(pos)
	}
	return nil
}
