// Package proto defines the wire schema of the realtime stream.
//
// Server to client: a stream of ServerEvent frames. Client to server:
// one raw move payload per frame, forwarded verbatim to the session; a
// rejected move is answered with an "error" frame to the sender only.
package proto

import "encoding/json"

const ProtocolVersion = 1

// Server event types, in the order a client observes them.
const (
	// EventStart is sent once when the game becomes active, or
	// immediately on attach if it already is.
	EventStart = "start"
	// EventState is sent after every committed state change.
	EventState = "state"
	// EventMove announces an applied move to every connection,
	// spectators included.
	EventMove = "move"
	// EventRequestMove is sent only to the player whose turn it is.
	EventRequestMove = "requestMove"
	// EventEnd is terminal; the server closes the connection after it.
	EventEnd = "end"
	// EventError answers a rejected inbound move.
	EventError = "error"
)

// ServerEvent is a server push frame. State carries the per-player
// view for start/state/requestMove/end; Player and Move are set on
// move frames.
type ServerEvent struct {
	EventType string          `json:"eventType"`
	State     any             `json:"state,omitempty"`
	Player    int             `json:"player,omitempty"`
	Move      json.RawMessage `json:"move,omitempty"`
	Error     *Error          `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
