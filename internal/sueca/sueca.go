// Package sueca implements the Portuguese trick-taking card game for
// four players in fixed partnerships: slots 1 and 3 against 2 and 4.
package sueca

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	mrand "math/rand"
	"time"

	"github.com/vladbarsukov/gameroom-server/internal/game"
)

const (
	playerCount = 4
	handSize    = 10
	trickCount  = 10
)

var suits = []string{"clubs", "diamonds", "hearts", "spades"}

// values in descending strength. A and 7 outrank the court cards.
var values = []string{"A", "7", "K", "J", "Q", "6", "5", "4", "3", "2"}

var points = map[string]int{"A": 11, "7": 10, "K": 4, "J": 3, "Q": 2}

var strength = func() map[string]int {
	m := make(map[string]int, len(values))
	for i, v := range values {
		m[v] = len(values) - i
	}
	return m
}()

// Card is the move payload: a suit and a value from the 40-card deck.
type Card struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// FullState is the authoritative game state. Hands are indexed by
// player slot minus one; CurrentTrick likewise, nil until played.
type FullState struct {
	Hands        [4][]Card `json:"hands"`
	NextPlayer   int       `json:"nextPlayer"`
	TrumpPlayer  int       `json:"trumpPlayer"`
	Trump        Card      `json:"trump"`
	LastTrick    []Card    `json:"lastTrick"`
	CurrentTrick [4]*Card  `json:"currentTrick"`
	TrickSuit    string    `json:"trickSuit"`
	TricksDone   int       `json:"tricksDone"`
	Score        [2]int    `json:"score"`
}

// View is the per-player projection: the player's own hand plus the
// public table state. Spectators (player 0) see no hand at all.
type View struct {
	Player       int      `json:"player"`
	Hand         []Card   `json:"hand,omitempty"`
	HandSizes    [4]int   `json:"handSizes"`
	NextPlayer   int      `json:"nextPlayer"`
	TrumpPlayer  int      `json:"trumpPlayer"`
	Trump        Card     `json:"trump"`
	LastTrick    []Card   `json:"lastTrick"`
	CurrentTrick [4]*Card `json:"currentTrick"`
	TrickSuit    string   `json:"trickSuit"`
	TricksDone   int      `json:"tricksDone"`
	Score        [2]int   `json:"score"`
}

// Game implements game.Engine. Not safe for concurrent use.
type Game struct {
	params game.Params

	hands        [4][]Card
	trump        Card
	trumpPlayer  int
	next         int
	currentTrick [4]*Card
	trickSuit    string
	lastTrick    []Card
	tricksDone   int
	score        [2]int

	ended   bool
	errored bool
	winners []int
}

// New deals a fresh game. The shuffle seed is read from params, or
// drawn and captured into them, so rebuilding from the same params
// reproduces the deal. Seeds stay below 2^53 so they survive a trip
// through JSON numbers intact.
func New(params game.Params) (*Game, error) {
	p := params.Clone()
	seed, ok := seedFrom(p)
	if !ok {
		seed = newSeed()
		p["seed"] = seed
	}

	g := &Game{params: p}
	g.deal(seed)
	return g, nil
}

func (g *Game) deal(seed int64) {
	rng := mrand.New(mrand.NewSource(seed))

	deck := make([]Card, 0, len(suits)*len(values))
	for _, s := range suits {
		for _, v := range values {
			deck = append(deck, Card{Suit: s, Value: v})
		}
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	for i := 0; i < playerCount; i++ {
		g.hands[i] = deck[i*handSize : (i+1)*handSize : (i+1)*handSize]
	}

	// The dealer gets the last card as trump and the player to their
	// left leads the first trick.
	g.next = rng.Intn(playerCount) + 1
	g.trumpPlayer = prevPlayer(g.next)
	g.trump = g.hands[g.trumpPlayer-1][handSize-1]
}

func (g *Game) PlayerCount() int { return playerCount }

func (g *Game) Ended() bool { return g.ended }

func (g *Game) Errored() bool { return g.errored }

func (g *Game) Winners() []int {
	if g.winners == nil {
		return nil
	}
	out := make([]int, len(g.winners))
	copy(out, g.winners)
	return out
}

func (g *Game) NextPlayer() int { return g.next }

func (g *Game) MoveTimeLimit() time.Duration { return g.params.MoveTimeLimit() }

func (g *Game) Params() game.Params { return g.params }

// ValidMove checks turn order, card ownership and the follow-suit rule.
func (g *Game) ValidMove(player int, mv game.Move) bool {
	if g.ended || g.errored || player != g.next {
		return false
	}
	card, ok := decodeCard(mv)
	if !ok {
		return false
	}
	hand := g.hands[player-1]
	if !containsCard(hand, card) {
		return false
	}
	if g.trickSuit != "" && card.Suit != g.trickSuit && hasSuit(hand, g.trickSuit) {
		return false
	}
	return true
}

func (g *Game) Move(player int, mv game.Move, _ time.Duration) {
	if g.ended || g.errored {
		return
	}
	if !g.ValidMove(player, mv) {
		g.errored = true
		g.next = 0
		return
	}

	card, _ := decodeCard(mv)
	g.hands[player-1] = removeCard(g.hands[player-1], card)
	placed := card
	g.currentTrick[player-1] = &placed
	if g.trickSuit == "" {
		g.trickSuit = card.Suit
	}

	if g.trickFull() {
		g.resolveTrick()
	} else {
		g.next = nextPlayer(player)
	}
}

// OnMoveTimeout forfeits the game for the side of the player that was
// due to move.
func (g *Game) OnMoveTimeout() bool {
	if g.ended || g.errored {
		return true
	}
	due := g.next
	g.ended = true
	g.next = 0
	if due%2 == 1 {
		g.winners = []int{2, 4}
	} else {
		g.winners = []int{1, 3}
	}
	return true
}

func (g *Game) FullState() any {
	st := &FullState{
		NextPlayer:  g.next,
		TrumpPlayer: g.trumpPlayer,
		Trump:       g.trump,
		TrickSuit:   g.trickSuit,
		TricksDone:  g.tricksDone,
		Score:       g.score,
	}
	for i, hand := range g.hands {
		st.Hands[i] = append([]Card(nil), hand...)
	}
	if g.lastTrick != nil {
		st.LastTrick = append([]Card(nil), g.lastTrick...)
	}
	for i, c := range g.currentTrick {
		if c != nil {
			placed := *c
			st.CurrentTrick[i] = &placed
		}
	}
	return st
}

func (g *Game) StateView(full any, player int) any {
	st, ok := full.(*FullState)
	if !ok {
		return nil
	}
	view := &View{
		Player:       player,
		NextPlayer:   st.NextPlayer,
		TrumpPlayer:  st.TrumpPlayer,
		Trump:        st.Trump,
		LastTrick:    st.LastTrick,
		CurrentTrick: st.CurrentTrick,
		TrickSuit:    st.TrickSuit,
		TricksDone:   st.TricksDone,
		Score:        st.Score,
	}
	for i, hand := range st.Hands {
		view.HandSizes[i] = len(hand)
	}
	if player >= 1 && player <= playerCount {
		view.Hand = st.Hands[player-1]
	}
	return view
}

func (g *Game) trickFull() bool {
	for _, c := range g.currentTrick {
		if c == nil {
			return false
		}
	}
	return true
}

func (g *Game) resolveTrick() {
	lead := g.trickSuit
	winner := 0
	var best Card
	trickPoints := 0
	trick := make([]Card, playerCount)
	for seat := 1; seat <= playerCount; seat++ {
		card := *g.currentTrick[seat-1]
		trick[seat-1] = card
		trickPoints += points[card.Value]
		if winner == 0 || g.beats(card, best, lead) {
			winner, best = seat, card
		}
	}

	g.score[(winner-1)%2] += trickPoints
	g.lastTrick = trick
	g.currentTrick = [4]*Card{}
	g.trickSuit = ""
	g.tricksDone++

	if g.tricksDone == trickCount {
		g.finish()
	} else {
		g.next = winner
	}
}

// beats ranks card against the current best of a trick led in lead:
// trumps beat everything else, cards of the led suit beat discards,
// and within one suit strength decides. The comparison is seat-order
// independent, so the trick can be scanned without knowing its leader.
func (g *Game) beats(card, best Card, lead string) bool {
	if card.Suit == best.Suit {
		return strength[card.Value] > strength[best.Value]
	}
	if card.Suit == g.trump.Suit {
		return true
	}
	return card.Suit == lead && best.Suit != g.trump.Suit
}

func (g *Game) finish() {
	g.ended = true
	g.next = 0
	switch {
	case g.score[0] > g.score[1]:
		g.winners = []int{1, 3}
	case g.score[1] > g.score[0]:
		g.winners = []int{2, 4}
	default:
		g.winners = []int{}
	}
}

func decodeCard(mv game.Move) (Card, bool) {
	var c Card
	if err := json.Unmarshal(mv, &c); err != nil {
		return Card{}, false
	}
	if c.Suit == "" || c.Value == "" {
		return Card{}, false
	}
	return c, true
}

func containsCard(hand []Card, c Card) bool {
	for _, h := range hand {
		if h == c {
			return true
		}
	}
	return false
}

func hasSuit(hand []Card, suit string) bool {
	for _, h := range hand {
		if h.Suit == suit {
			return true
		}
	}
	return false
}

func removeCard(hand []Card, c Card) []Card {
	out := make([]Card, 0, len(hand)-1)
	for _, h := range hand {
		if h != c {
			out = append(out, h)
		}
	}
	return out
}

func nextPlayer(p int) int { return p%playerCount + 1 }

func prevPlayer(p int) int { return (p+2)%playerCount + 1 }

func seedFrom(p game.Params) (int64, bool) {
	switch v := p["seed"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func newSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 12)
}
