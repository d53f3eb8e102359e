package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vladbarsukov/gameroom-server/internal/store"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	game_type  TEXT NOT NULL,
	params     TEXT,
	players    TEXT,
	history    TEXT,
	outcome    TEXT,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_games_type ON games(game_type);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply an alternative schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveGame upserts a session record by id.
func (s *SQLiteStore) SaveGame(ctx context.Context, rec *store.GameRecord) error {
	query := `
		INSERT INTO games (id, game_type, params, players, history, outcome, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			params     = excluded.params,
			players    = excluded.players,
			history    = excluded.history,
			outcome    = excluded.outcome,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.GameType,
		nullable(rec.Params), nullable(rec.Players),
		nullable(rec.History), nullable(rec.Outcome))
	if err != nil {
		return fmt.Errorf("save game %s: %w", rec.ID, err)
	}
	return nil
}

// ListGames returns all records for a game type.
func (s *SQLiteStore) ListGames(ctx context.Context, gameType string) ([]*store.GameRecord, error) {
	query := `
		SELECT id, game_type, params, players, history, outcome, updated_at
		FROM games
		WHERE game_type = ?
		ORDER BY updated_at
	`
	rows, err := s.db.QueryContext(ctx, query, gameType)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var recs []*store.GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// GetGame retrieves one record by id.
func (s *SQLiteStore) GetGame(ctx context.Context, id string) (*store.GameRecord, error) {
	query := `
		SELECT id, game_type, params, players, history, outcome, updated_at
		FROM games
		WHERE id = ?
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return scanGame(rows)
}

func scanGame(rows *sql.Rows) (*store.GameRecord, error) {
	var rec store.GameRecord
	var params, players, history, outcome sql.NullString
	if err := rows.Scan(&rec.ID, &rec.GameType, &params, &players, &history, &outcome, &rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan game: %w", err)
	}
	rec.Params = rawOrNil(params)
	rec.Players = rawOrNil(players)
	rec.History = rawOrNil(history)
	rec.Outcome = rawOrNil(outcome)
	return &rec, nil
}

func nullable(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func rawOrNil(v sql.NullString) []byte {
	if !v.Valid {
		return nil
	}
	return []byte(v.String)
}
