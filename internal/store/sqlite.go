// SQLite-backed quest progression store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS quest_progress (
	player_id  TEXT    NOT NULL,
	quest_id   TEXT    NOT NULL,
	stage      INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (player_id, quest_id)
)`

// SQLiteStore persists quest progress in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
// ":memory:" opens a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create quest_progress table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SetStage upserts a stage.
func (s *SQLiteStore) SetStage(playerID, questID string, stage int) error {
	if playerID == "" || questID == "" {
		return fmt.Errorf("player id and quest id are required")
	}
	_, err := s.db.Exec(
		`INSERT INTO quest_progress (player_id, quest_id, stage, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (player_id, quest_id) DO UPDATE SET stage = excluded.stage, updated_at = excluded.updated_at`,
		playerID, questID, stage, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set quest stage: %w", err)
	}
	return nil
}

// Stage returns a recorded stage.
func (s *SQLiteStore) Stage(playerID, questID string) (int, bool, error) {
	var stage int
	err := s.db.QueryRow(
		`SELECT stage FROM quest_progress WHERE player_id = ? AND quest_id = ?`,
		playerID, questID,
	).Scan(&stage)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("get quest stage: %w", err)
	}
	return stage, true, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *SQLiteStore) Delete(playerID, questID string) error {
	_, err := s.db.Exec(`DELETE FROM quest_progress WHERE player_id = ? AND quest_id = ?`, playerID, questID)
	if err != nil {
		return fmt.Errorf("delete quest stage: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
