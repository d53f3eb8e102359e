package store

import (
	"context"
	"encoding/json"
	"time"
)

// GameRecord is the persisted form of a session. Live connections and
// timers are process-local and never stored; the JSON columns hold the
// engine params, the registered players with their tokens, the applied
// move history and the terminal outcome (null while in progress).
type GameRecord struct {
	ID        string
	GameType  string
	Params    json.RawMessage
	Players   json.RawMessage
	History   json.RawMessage
	Outcome   json.RawMessage
	UpdatedAt time.Time
}

// GameStore handles session record persistence.
type GameStore interface {
	// SaveGame upserts a record by id.
	SaveGame(ctx context.Context, rec *GameRecord) error

	// ListGames returns all records for a game type, used to
	// repopulate a registry at startup.
	ListGames(ctx context.Context, gameType string) ([]*GameRecord, error)

	// GetGame retrieves one record by id.
	GetGame(ctx context.Context, id string) (*GameRecord, error)
}

// Store is the full persistence surface.
type Store interface {
	GameStore
	Close() error
}
