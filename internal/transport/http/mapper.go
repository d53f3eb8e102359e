package http

import (
	"encoding/json"

	"github.com/vladbarsukov/gameroom-server/internal/proto"
	"github.com/vladbarsukov/gameroom-server/internal/session"
)

func outboundFromEvent(ev session.Event) proto.ServerEvent {
	switch ev.Type {
	case session.EventMove:
		return proto.ServerEvent{
			EventType: proto.EventMove,
			Player:    ev.Player,
			Move:      json.RawMessage(ev.Move),
		}
	case session.EventStart, session.EventState, session.EventRequestMove, session.EventEnd:
		return proto.ServerEvent{
			EventType: string(ev.Type),
			State:     ev.State,
		}
	default:
		return proto.ServerEvent{EventType: string(ev.Type)}
	}
}
