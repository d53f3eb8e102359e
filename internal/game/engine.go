// Package game defines the contract a rule engine implements to be
// hosted by a session. Engines are not safe for concurrent use; the
// owning session serializes every call.
package game

import (
	"encoding/json"
	"time"
)

// Move is an opaque, engine-specific payload. Its validity is defined
// only relative to the current state and the acting player.
type Move = json.RawMessage

// Engine is the capability set a game type implements.
//
// Mutation happens only through Move and OnMoveTimeout, and only the
// session that owns the engine may invoke them. A Move with an invalid
// (player, move) pair puts the engine into an error condition
// observable via Errored instead of panicking across the boundary, so
// the caller can tell "rejected, unchanged" (ValidMove false) from
// "applied" and from "corrupted".
type Engine interface {
	// PlayerCount is the number of player slots the game requires.
	PlayerCount() int

	// Ended reports whether the game reached a regular terminal state.
	Ended() bool

	// Errored reports whether the engine entered its error condition.
	Errored() bool

	// Winners is nil while the game is unresolved, an empty slice on a
	// draw, and otherwise the winning player slots in ascending order.
	Winners() []int

	// NextPlayer is the slot due to move, or 0 once Ended or Errored.
	NextPlayer() int

	// ValidMove is a pure predicate with no side effects; it must
	// agree with what Move would accept at the same instant.
	ValidMove(player int, mv Move) bool

	// Move applies mv for player. elapsed is the time the player took.
	Move(player int, mv Move, elapsed time.Duration)

	// MoveTimeLimit is how long a player may take per move; zero or
	// negative disables the timer.
	MoveTimeLimit() time.Duration

	// OnMoveTimeout resolves a missed move against the player that was
	// due, and reports whether the game is now terminal.
	OnMoveTimeout() bool

	// Params returns the engine's configuration as normalized during
	// construction. Immutable afterwards.
	Params() Params

	// FullState returns the complete authoritative state. Callers must
	// not retain references into it across mutations; implementations
	// return a detached copy.
	FullState() any

	// StateView projects full into what player is allowed to see.
	// Player 0 is the spectator view. This is the single point where
	// hidden information is redacted.
	StateView(full any, player int) any
}

// Factory builds an engine from its (already decoded) params.
type Factory func(params Params) (Engine, error)

// State is shorthand for the view of the current full state.
func State(e Engine, player int) any {
	return e.StateView(e.FullState(), player)
}
