// Package store provides quest progression storage.
//
// DESIGN: One integer stage per (player, quest):
//   - 0 or missing: quest not started
//   - > 0:          stage reached
//   - StageComplete (-1): quest finished
//
// MemoryStore is used for tests and single-process servers. SQLiteStore
// persists progress across restarts (see sqlite.go).
package store

import (
	"fmt"
	"sync"
	"time"
)

// StageComplete marks a finished quest.
const StageComplete = -1

// Store defines the interface for quest progression storage.
type Store interface {
	// SetStage records the player's stage for a quest.
	SetStage(playerID, questID string, stage int) error

	// Stage returns the player's stage for a quest and whether it is recorded.
	// A missing record is not an error; a failed lookup is.
	Stage(playerID, questID string) (int, bool, error)

	// Delete removes the player's record for a quest.
	Delete(playerID, questID string) error

	// Close cleans up resources.
	Close() error
}

// New creates a store of the given type ("memory" or "sqlite").
func New(storeType, path string) (Store, error) {
	switch storeType {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store type %q, must be 'memory' or 'sqlite'", storeType)
	}
}

// MemoryStore is a simple in-memory implementation of Store.
type MemoryStore struct {
	data    map[progressKey]entry
	mu      sync.RWMutex
	stopped bool
}

type progressKey struct {
	player string
	quest  string
}

type entry struct {
	stage     int
	updatedAt time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[progressKey]entry),
	}
}

// SetStage records a stage.
func (s *MemoryStore) SetStage(playerID, questID string, stage int) error {
	if playerID == "" || questID == "" {
		return fmt.Errorf("player id and quest id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("store closed")
	}

	s.data[progressKey{playerID, questID}] = entry{stage: stage, updatedAt: time.Now()}
	return nil
}

// Stage returns a recorded stage.
func (s *MemoryStore) Stage(playerID, questID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return 0, false, fmt.Errorf("store closed")
	}
	e, ok := s.data[progressKey{playerID, questID}]
	if !ok {
		return 0, false, nil
	}
	return e.stage, true, nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(playerID, questID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, progressKey{playerID, questID})
	return nil
}

// Close stops the store. Later reads and writes fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.data = make(map[progressKey]entry)
	return nil
}
