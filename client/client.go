// Package client consumes the realtime game stream: it dials the
// stream endpoint for one (game, player) pair, surfaces server events
// on a channel and sends raw move payloads back.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/vladbarsukov/gameroom-server/internal/proto"
)

// EventType labels a stream event. Besides the server event types, the
// client reports its own connection lifecycle: Opened on dial, then
// exactly one of Closed (the game ended or Close was called) or
// ConnectionError (abnormal loss) before the channel is closed.
type EventType string

const (
	EventOpened          EventType = "opened"
	EventStart           EventType = "start"
	EventState           EventType = "state"
	EventMove            EventType = "move"
	EventRequestMove     EventType = "requestMove"
	EventEnd             EventType = "end"
	EventRejected        EventType = "rejected"
	EventClosed          EventType = "closed"
	EventConnectionError EventType = "connectionError"
)

// Event is one stream notification. State is the raw per-player view
// for start/state/requestMove/end; Player and Move are set on move
// events; Err describes a rejected move.
type Event struct {
	Type   EventType
	State  json.RawMessage
	Player int
	Move   json.RawMessage
	Err    *proto.Error
}

// Stream is one live connection to a game.
type Stream struct {
	conn           *websocket.Conn
	events         chan Event
	closeRequested atomic.Bool
}

// Dial opens a stream to gameID of gameType on the server at baseURL
// (http or https scheme). An empty playerToken attaches as spectator.
func Dial(ctx context.Context, baseURL, gameType, gameID, playerToken string) (*Stream, error) {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) +
		"/api/" + url.PathEscape(gameType) + "/" + url.PathEscape(gameID) + "/stream"
	if playerToken != "" {
		wsURL += "?playerId=" + url.QueryEscape(playerToken)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial stream: %w", err)
	}

	s := &Stream{
		conn:   conn,
		events: make(chan Event, 32),
	}
	s.events <- Event{Type: EventOpened}
	go s.readLoop()
	return s, nil
}

// Events returns the event feed. The channel closes after the Closed
// or ConnectionError event.
func (s *Stream) Events() <-chan Event { return s.events }

// SendMove submits a raw move payload. There is no acknowledgment on
// the happy path; a rejected move arrives as an EventRejected.
func (s *Stream) SendMove(ctx context.Context, move json.RawMessage) error {
	return s.conn.Write(ctx, websocket.MessageText, move)
}

// Close requests a clean shutdown of the stream.
func (s *Stream) Close() {
	s.closeRequested.Store(true)
	s.conn.Close(websocket.StatusNormalClosure, "closing")
}

type serverEvent struct {
	EventType string          `json:"eventType"`
	State     json.RawMessage `json:"state,omitempty"`
	Player    int             `json:"player,omitempty"`
	Move      json.RawMessage `json:"move,omitempty"`
	Error     *proto.Error    `json:"error,omitempty"`
}

func (s *Stream) readLoop() {
	ctx := context.Background()
	ended := false

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			clean := ended || s.closeRequested.Load() ||
				status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
			if clean {
				s.events <- Event{Type: EventClosed}
			} else {
				s.events <- Event{Type: EventConnectionError}
			}
			close(s.events)
			return
		}

		var ev serverEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		switch ev.EventType {
		case proto.EventStart:
			s.events <- Event{Type: EventStart, State: ev.State}
		case proto.EventState:
			s.events <- Event{Type: EventState, State: ev.State}
		case proto.EventMove:
			s.events <- Event{Type: EventMove, Player: ev.Player, Move: ev.Move}
		case proto.EventRequestMove:
			s.events <- Event{Type: EventRequestMove, State: ev.State}
		case proto.EventEnd:
			ended = true
			s.events <- Event{Type: EventEnd, State: ev.State}
		case proto.EventError:
			s.events <- Event{Type: EventRejected, Err: ev.Error}
		}
	}
}
