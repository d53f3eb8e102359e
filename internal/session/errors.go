package session

import "errors"

var (
	// ErrSessionFull rejects registration beyond the player count.
	ErrSessionFull = errors.New("all player slots are taken")
	// ErrUnknownPlayer rejects an operation for an unregistered slot.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrNotStarted rejects state reads while players are still joining.
	ErrNotStarted = errors.New("game has not started yet")
	// ErrNotActive rejects moves outside the active state.
	ErrNotActive = errors.New("game is not accepting moves")
	// ErrInvalidMove rejects a move the rule engine would not accept.
	// Session state is unchanged and no event is emitted.
	ErrInvalidMove = errors.New("illegal move")
)
