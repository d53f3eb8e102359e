// Package session turns a rule engine into a live, timed,
// multi-connection game. The session is the unit of mutation
// exclusivity: every external effect on game state passes through its
// mutex, so a move arriving and the move timer firing for the same
// turn commit exactly one winner.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vladbarsukov/gameroom-server/internal/game"
	"github.com/vladbarsukov/gameroom-server/internal/store"
	"github.com/vladbarsukov/gameroom-server/internal/utils"
)

// Status is the session lifecycle state.
type Status string

const (
	// StatusPending: created, players still registering/connecting.
	StatusPending Status = "pending"
	// StatusActive: all players connected, accepting moves.
	StatusActive Status = "active"
	// StatusEnded: the game reached a regular terminal state.
	StatusEnded Status = "ended"
	// StatusErrored: the rule engine entered its error condition.
	StatusErrored Status = "errored"
)

// Player is a registered slot and its credential. The token is issued
// once at registration and maps to the same slot forever.
type Player struct {
	Slot  int    `json:"player"`
	Token string `json:"token"`

	connected     bool
	everConnected bool
}

// SaveFunc receives the session record after every committed
// transition. It is called outside the session lock.
type SaveFunc func(*store.GameRecord)

// Info is the public listing view of a session.
type Info struct {
	ID          string `json:"id"`
	GameType    string `json:"gameType"`
	Status      Status `json:"status"`
	PlayerCount int    `json:"playerCount"`
	Registered  int    `json:"registered"`
	Connected   int    `json:"connected"`
}

// Session orchestrates one engine instance: players, connections, the
// move timer, history and the lifecycle state machine.
type Session struct {
	id       string
	gameType string
	engine   game.Engine
	save     SaveFunc
	log      zerolog.Logger

	mu        sync.Mutex
	status    Status
	players   []*Player
	subs      map[*Subscriber]struct{}
	history   []game.HistoryEntry
	timer     *time.Timer
	timerGen  uint64
	timerHold bool
	lastMove  time.Time
}

// New creates a pending session owning eng exclusively.
func New(id, gameType string, eng game.Engine, logger *zerolog.Logger, save SaveFunc) *Session {
	l := logger.With().Str("game_type", gameType).Str("game_id", id).Logger()
	return &Session{
		id:       id,
		gameType: gameType,
		engine:   eng,
		save:     save,
		log:      l,
		status:   StatusPending,
		subs:     make(map[*Subscriber]struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// GameType returns the configured game type id.
func (s *Session) GameType() string { return s.gameType }

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Register allocates the next free player slot with a fresh token.
func (s *Session) Register() (Player, error) {
	s.mu.Lock()
	if len(s.players) >= s.engine.PlayerCount() {
		s.mu.Unlock()
		return Player{}, ErrSessionFull
	}
	p := &Player{Slot: len(s.players) + 1, Token: utils.NewToken()}
	s.players = append(s.players, p)
	s.log.Debug().Int("player", p.Slot).Msg("player registered")
	rec := s.recordLocked()
	s.mu.Unlock()

	s.persist(rec)
	return *p, nil
}

// PlayerByToken resolves a registration token to its player.
func (s *Session) PlayerByToken(token string) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.Token == token {
			return *p, true
		}
	}
	return Player{}, false
}

// Connect marks a player connected. The session goes active once every
// slot has been registered and connected at least once; a restored
// session re-arms its move timer on the first connect instead.
func (s *Session) Connect(slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.playerLocked(slot)
	if p == nil {
		return ErrUnknownPlayer
	}
	p.connected = true
	p.everConnected = true

	switch {
	case s.status == StatusPending:
		s.maybeStartLocked()
	case s.status == StatusActive && s.timerHold:
		s.timerHold = false
		s.lastMove = time.Now()
		s.armTimerLocked()
	}
	return nil
}

// Disconnect marks a player disconnected. Game state is unaffected.
func (s *Session) Disconnect(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.playerLocked(slot); p != nil {
		p.connected = false
	}
}

// Move applies a move for player. The move is rejected without any
// state change or event unless the session is active and the engine
// accepts the (player, move) pair.
func (s *Session) Move(player int, mv game.Move) error {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return ErrNotActive
	}
	if player < 1 || player > s.engine.PlayerCount() {
		s.mu.Unlock()
		return ErrUnknownPlayer
	}
	if !s.engine.ValidMove(player, mv) {
		s.mu.Unlock()
		return ErrInvalidMove
	}

	s.cancelTimerLocked()
	elapsed := time.Since(s.lastMove)
	s.engine.Move(player, mv, elapsed)
	s.lastMove = time.Now()
	s.history = append(s.history, game.HistoryEntry{
		Player:    player,
		Move:      append(game.Move(nil), mv...),
		ElapsedMs: elapsed.Milliseconds(),
	})

	s.emitMoveLocked(player, mv)
	full := s.engine.FullState()
	s.emitStateLocked(EventState, full)

	if s.engine.Ended() || s.engine.Errored() {
		s.finishLocked(full)
	} else {
		s.emitRequestMoveLocked(full)
		s.armTimerLocked()
	}
	rec := s.recordLocked()
	s.mu.Unlock()

	s.persist(rec)
	return nil
}

// State returns the player's view of the current state; player 0 is
// the spectator view.
func (s *Session) State(player int) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusPending {
		return nil, ErrNotStarted
	}
	return game.State(s.engine, player), nil
}

// History returns the applied transitions visible to player. Moves are
// broadcast to every connection once applied, so the filter is
// currently the identity; the parameter is kept for engines with
// hidden moves.
func (s *Session) History(player int) []game.HistoryEntry {
	_ = player
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]game.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// Info returns the listing view.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	connected := 0
	for _, p := range s.players {
		if p.connected {
			connected++
		}
	}
	return Info{
		ID:          s.id,
		GameType:    s.gameType,
		Status:      s.status,
		PlayerCount: s.engine.PlayerCount(),
		Registered:  len(s.players),
		Connected:   connected,
	}
}

// Subscribe attaches an event feed for player (0 for spectators). If
// the game already started the feed is primed with a catch-up start
// event, plus a move request when it is that player's turn; on a
// finished session it delivers a terminal end event and nothing else.
// A player slot keeps at most one live feed: a new one displaces the
// previous.
func (s *Session) Subscribe(player int) *Subscriber {
	sub := &Subscriber{sess: s, player: player, events: make(chan Event, subscriberBuffer)}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusEnded, StatusErrored:
		sub.events <- Event{Type: EventEnd, State: game.State(s.engine, player)}
		close(sub.events)
		return sub
	case StatusActive:
		s.displaceLocked(player)
		s.subs[sub] = struct{}{}
		full := s.engine.FullState()
		sub.events <- Event{Type: EventStart, State: s.engine.StateView(full, player)}
		if player != 0 && player == s.engine.NextPlayer() {
			sub.events <- Event{Type: EventRequestMove, State: s.engine.StateView(full, player)}
		}
	default:
		s.displaceLocked(player)
		s.subs[sub] = struct{}{}
	}
	return sub
}

func (s *Session) unsubscribe(sub *Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.events)
}

func (s *Session) displaceLocked(player int) {
	if player == 0 {
		return
	}
	for existing := range s.subs {
		if existing.player == player {
			delete(s.subs, existing)
			close(existing.events)
		}
	}
}

func (s *Session) playerLocked(slot int) *Player {
	if slot < 1 || slot > len(s.players) {
		return nil
	}
	return s.players[slot-1]
}

func (s *Session) maybeStartLocked() {
	if len(s.players) < s.engine.PlayerCount() {
		return
	}
	for _, p := range s.players {
		if !p.everConnected {
			return
		}
	}

	s.status = StatusActive
	s.lastMove = time.Now()
	s.log.Info().Msg("game started")

	full := s.engine.FullState()
	s.emitStateLocked(EventStart, full)
	s.emitRequestMoveLocked(full)
	s.armTimerLocked()
}

func (s *Session) finishLocked(full any) {
	s.cancelTimerLocked()
	if s.engine.Errored() {
		s.status = StatusErrored
		s.log.Warn().Msg("game entered error state")
	} else {
		s.status = StatusEnded
		s.log.Info().Ints("winners", s.engine.Winners()).Msg("game ended")
	}

	s.emitStateLocked(EventEnd, full)
	for sub := range s.subs {
		close(sub.events)
	}
	s.subs = make(map[*Subscriber]struct{})
}

// emitStateLocked fans a view-carrying event out to every subscriber.
// All views derive from the one full snapshot taken at commit, so two
// feeds never observe contradictory shared facts.
func (s *Session) emitStateLocked(t EventType, full any) {
	for sub := range s.subs {
		s.send(sub, Event{Type: t, State: s.engine.StateView(full, sub.player)})
	}
}

func (s *Session) emitMoveLocked(player int, mv game.Move) {
	ev := Event{Type: EventMove, Player: player, Move: mv}
	for sub := range s.subs {
		s.send(sub, ev)
	}
}

func (s *Session) emitRequestMoveLocked(full any) {
	next := s.engine.NextPlayer()
	if next == 0 {
		return
	}
	for sub := range s.subs {
		if sub.player == next {
			s.send(sub, Event{Type: EventRequestMove, State: s.engine.StateView(full, sub.player)})
		}
	}
}

func (s *Session) send(sub *Subscriber, ev Event) {
	select {
	case sub.events <- ev:
	default:
		// Drop if slow consumer.
		s.log.Warn().Int("player", sub.player).Str("event", string(ev.Type)).Msg("subscriber lagging, event dropped")
	}
}

func (s *Session) armTimerLocked() {
	limit := s.engine.MoveTimeLimit()
	if limit <= 0 || s.engine.NextPlayer() == 0 {
		return
	}
	s.timerGen++
	gen := s.timerGen
	s.timer = time.AfterFunc(limit, func() { s.moveTimeout(gen) })
}

func (s *Session) cancelTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// moveTimeout runs on the timer goroutine. A move that won the race
// has already bumped the generation, making a stale firing a no-op.
func (s *Session) moveTimeout(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen || s.status != StatusActive {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	due := s.engine.NextPlayer()
	s.log.Info().Int("player", due).Msg("move timed out")
	terminal := s.engine.OnMoveTimeout()
	s.history = append(s.history, game.HistoryEntry{Player: due, Timeout: true})

	full := s.engine.FullState()
	if terminal {
		s.emitStateLocked(EventState, full)
		s.finishLocked(full)
	} else {
		s.lastMove = time.Now()
		s.emitStateLocked(EventState, full)
		s.emitRequestMoveLocked(full)
		s.armTimerLocked()
	}
	rec := s.recordLocked()
	s.mu.Unlock()

	s.persist(rec)
}

func (s *Session) persist(rec *store.GameRecord) {
	if s.save != nil && rec != nil {
		s.save(rec)
	}
}
