package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vladbarsukov/gameroom-server/internal/game"
	"github.com/vladbarsukov/gameroom-server/internal/store"
)

// Outcome is the persisted terminal result. Winners is empty on a
// draw; Error marks a rule engine fault.
type Outcome struct {
	Winners []int `json:"winners"`
	Error   bool  `json:"error,omitempty"`
}

type persistedPlayer struct {
	Slot  int    `json:"player"`
	Token string `json:"token"`
}

// Record snapshots the session into its persisted form.
func (s *Session) Record() *store.GameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked()
}

func (s *Session) recordLocked() *store.GameRecord {
	rec := &store.GameRecord{ID: s.id, GameType: s.gameType}

	var err error
	if rec.Params, err = json.Marshal(s.engine.Params()); err != nil {
		s.log.Error().Err(err).Msg("marshal params for record")
	}

	players := make([]persistedPlayer, len(s.players))
	for i, p := range s.players {
		players[i] = persistedPlayer{Slot: p.Slot, Token: p.Token}
	}
	if rec.Players, err = json.Marshal(players); err != nil {
		s.log.Error().Err(err).Msg("marshal players for record")
	}

	if rec.History, err = json.Marshal(s.history); err != nil {
		s.log.Error().Err(err).Msg("marshal history for record")
	}

	var out *Outcome
	switch s.status {
	case StatusEnded:
		out = &Outcome{Winners: s.engine.Winners()}
	case StatusErrored:
		out = &Outcome{Error: true}
	}
	if out != nil {
		if rec.Outcome, err = json.Marshal(out); err != nil {
			s.log.Error().Err(err).Msg("marshal outcome for record")
		}
	}
	return rec
}

// Restore rebuilds a session from a persisted record by constructing a
// fresh engine from the stored params and replaying the history
// through it. The restored session has no connections and no armed
// timer; the first Connect re-arms it. A non-terminal session with a
// full roster resumes as active, otherwise it stays pending.
func Restore(rec *store.GameRecord, factory game.Factory, logger *zerolog.Logger, save SaveFunc) (*Session, error) {
	var params game.Params
	if len(rec.Params) > 0 {
		if err := json.Unmarshal(rec.Params, &params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
	}
	eng, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("rebuild engine: %w", err)
	}

	var players []persistedPlayer
	if len(rec.Players) > 0 {
		if err := json.Unmarshal(rec.Players, &players); err != nil {
			return nil, fmt.Errorf("decode players: %w", err)
		}
	}

	var history []game.HistoryEntry
	if len(rec.History) > 0 {
		if err := json.Unmarshal(rec.History, &history); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	for i, entry := range history {
		if entry.Timeout {
			eng.OnMoveTimeout()
			continue
		}
		eng.Move(entry.Player, entry.Move, time.Duration(entry.ElapsedMs)*time.Millisecond)
		if eng.Errored() && !storedError(rec.Outcome) {
			return nil, fmt.Errorf("history replay failed at entry %d", i)
		}
	}

	s := New(rec.ID, rec.GameType, eng, logger, save)
	s.history = history
	for _, p := range players {
		s.players = append(s.players, &Player{Slot: p.Slot, Token: p.Token})
	}

	switch {
	case eng.Errored():
		s.status = StatusErrored
	case eng.Ended():
		s.status = StatusEnded
	case len(s.players) == eng.PlayerCount():
		s.status = StatusActive
		s.timerHold = true
		for _, p := range s.players {
			p.everConnected = true
		}
	}
	return s, nil
}

func storedError(outcome json.RawMessage) bool {
	if len(outcome) == 0 {
		return false
	}
	var out Outcome
	if err := json.Unmarshal(outcome, &out); err != nil {
		return false
	}
	return out.Error
}
