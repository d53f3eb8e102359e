package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vladbarsukov/gameroom-server/internal/game"
	"github.com/vladbarsukov/gameroom-server/internal/session"
)

const maxMoveBytes = 1 << 20

// GameHandlers provides the HTTP handlers for the per-game-type API.
type GameHandlers struct {
	services map[string]*GameService
	log      *zerolog.Logger
}

// NewGameHandlers creates a new game handlers instance.
func NewGameHandlers(services map[string]*GameService, logger *zerolog.Logger) *GameHandlers {
	return &GameHandlers{
		services: services,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateGameResponse carries the id of a freshly created game.
type CreateGameResponse struct {
	GameID string `json:"gameId"`
}

// StatusResponse acknowledges an accepted request.
type StatusResponse struct {
	Status string `json:"status"`
}

// ListGamesResponse lists the live games of one game type.
type ListGamesResponse struct {
	GameType    string         `json:"gameType"`
	DisplayName string         `json:"displayName"`
	Games       []session.Info `json:"games"`
}

// ListGames handles listing live games.
// GET /api/:gameType/games
func (h *GameHandlers) ListGames(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}

	resp := ListGamesResponse{
		GameType:    svc.Type,
		DisplayName: svc.DisplayName,
		Games:       []session.Info{},
	}
	for sess := range svc.Registry.List() {
		resp.Games = append(resp.Games, sess.Info())
	}
	c.JSON(http.StatusOK, resp)
}

// CreateGame handles game creation. The request body is the opaque
// params blob handed to the rule engine.
// POST /api/:gameType/create
func (h *GameHandlers) CreateGame(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}

	params := game.Params{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			h.log.Debug().Err(err).Msg("invalid create game params")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid params"})
			return
		}
	}

	id, _, err := svc.Registry.Create(params)
	if err != nil {
		h.log.Warn().Err(err).Str("game_type", svc.Type).Msg("could not create game")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not create game"})
		return
	}
	c.JSON(http.StatusOK, CreateGameResponse{GameID: id})
}

// RegisterPlayer handles player registration.
// POST /api/:gameType/:gameID/register
func (h *GameHandlers) RegisterPlayer(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	p, err := sess.Register()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not register new player"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// Connect marks a player connected without opening a stream.
// GET /api/:gameType/:gameID/connect?playerId=token
func (h *GameHandlers) Connect(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, present, ok := h.player(c, sess)
	if !ok {
		return
	}
	if !present {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "playerId is required"})
		return
	}

	if err := sess.Connect(p.Slot); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid player"})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "connected"})
}

// GetState returns the caller's view of the game state.
// GET /api/:gameType/:gameID/state?playerId=token
func (h *GameHandlers) GetState(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, _, ok := h.player(c, sess)
	if !ok {
		return
	}

	view, err := sess.State(p.Slot)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "game has not started yet"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitMove applies a move submitted over plain HTTP. The body is the
// raw move payload, passed verbatim to the session.
// POST /api/:gameType/:gameID/move?playerId=token
func (h *GameHandlers) SubmitMove(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, present, ok := h.player(c, sess)
	if !ok {
		return
	}
	if !present {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "playerId is required"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMoveBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable move payload"})
		return
	}

	switch err := sess.Move(p.Slot, payload); {
	case err == nil:
		c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
	case errors.Is(err, session.ErrNotActive):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "game is not accepting moves"})
	case errors.Is(err, session.ErrInvalidMove):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "illegal move"})
	default:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid player"})
	}
}

// GetHistory returns the caller-visible move history.
// GET /api/:gameType/:gameID/history?playerId=token
func (h *GameHandlers) GetHistory(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	p, _, ok := h.player(c, sess)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.History(p.Slot))
}

func (h *GameHandlers) service(c *gin.Context) (*GameService, bool) {
	svc, ok := h.services[c.Param("gameType")]
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown game type"})
		return nil, false
	}
	return svc, true
}

func (h *GameHandlers) session(c *gin.Context) (*session.Session, bool) {
	svc, ok := h.service(c)
	if !ok {
		return nil, false
	}
	sess, ok := svc.Registry.Get(c.Param("gameID"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "the requested game does not exist"})
		return nil, false
	}
	return sess, true
}

// player resolves the optional playerId query token. present is false
// for spectator requests; ok is false when the token does not resolve
// (a 404 has been written).
func (h *GameHandlers) player(c *gin.Context, sess *session.Session) (p session.Player, present, ok bool) {
	token := c.Query("playerId")
	if token == "" {
		return session.Player{}, false, true
	}
	p, found := sess.PlayerByToken(token)
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid player"})
		return session.Player{}, true, false
	}
	return p, true, true
}
