package session

import "github.com/vladbarsukov/gameroom-server/internal/game"

// EventType labels a session transition as observed by a connection.
type EventType string

const (
	EventStart       EventType = "start"
	EventState       EventType = "state"
	EventMove        EventType = "move"
	EventRequestMove EventType = "requestMove"
	EventEnd         EventType = "end"
)

// Event is one outbound notification. State is already projected for
// the subscriber the event is delivered to; Player and Move are set on
// move events.
type Event struct {
	Type   EventType
	State  any
	Player int
	Move   game.Move
}

const subscriberBuffer = 32

// Subscriber is one connection's ordered event feed. Events arrive in
// commit order; a feed that falls behind has events dropped rather
// than stalling the session or its peers. The channel is closed when
// the session ends or the subscriber is detached.
type Subscriber struct {
	sess   *Session
	player int // 0 for spectators
	events chan Event
}

// Player returns the player slot this feed is bound to, 0 for
// spectators.
func (s *Subscriber) Player() int { return s.player }

// Events returns the feed channel.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Close detaches the subscriber from the session. Safe to call more
// than once.
func (s *Subscriber) Close() { s.sess.unsubscribe(s) }
