package http

import (
	"context"
	"errors"
	"io"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/vladbarsukov/gameroom-server/internal/proto"
	"github.com/vladbarsukov/gameroom-server/internal/session"
)

// Stream upgrades the connection and bridges it to a session event
// feed: server events flow out, raw move payloads flow in. The server
// closes the connection after the terminal event.
// GET /api/:gameType/:gameID/stream?playerId=token
func (h *GameHandlers) Stream(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, present, ok := h.player(c, sess)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	slot := 0
	if present {
		slot = p.Slot
	}

	sub := sess.Subscribe(slot)
	defer sub.Close()
	if present {
		if err := sess.Connect(slot); err != nil {
			conn.Close(websocket.StatusPolicyViolation, "invalid player")
			return
		}
		defer sess.Disconnect(slot)
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.streamReadLoop(ctx, conn, sess, slot)
	}()
	go func() {
		errCh <- h.streamWriteLoop(ctx, conn, sub)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("game_id", sess.ID()).Msg("stream closed with error")
		}
	}

	conn.Close(status, reason)
}

// streamReadLoop forwards inbound frames to the session as moves.
// Rejected moves answer the sender with an error frame and leave the
// session untouched.
func (h *GameHandlers) streamReadLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, slot int) error {
	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if slot == 0 {
			// Spectators cannot move.
			continue
		}
		if err := sess.Move(slot, payload); err != nil {
			h.log.Debug().Err(err).Str("game_id", sess.ID()).Int("player", slot).Msg("stream move rejected")
			if writeErr := wsjson.Write(ctx, conn, proto.ServerEvent{
				EventType: proto.EventError,
				Error:     &proto.Error{Code: moveErrorCode(err), Msg: err.Error()},
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *GameHandlers) streamWriteLoop(ctx context.Context, conn *websocket.Conn, sub *session.Subscriber) error {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(ev)); err != nil {
				return err
			}
			if ev.Type == session.EventEnd {
				return conn.Close(websocket.StatusNormalClosure, "game over")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func moveErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrNotActive):
		return "not_active"
	case errors.Is(err, session.ErrInvalidMove):
		return "illegal_move"
	default:
		return "unknown_player"
	}
}
