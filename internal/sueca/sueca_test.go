package sueca

import (
	"encoding/json"
	"testing"

	"github.com/vladbarsukov/gameroom-server/internal/game"
)

func newGame(t *testing.T) *Game {
	t.Helper()
	g, err := New(game.Params{})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g
}

func view(t *testing.T, g *Game, player int) *View {
	t.Helper()
	v, ok := game.State(g, player).(*View)
	if !ok {
		t.Fatalf("unexpected view type for player %d", player)
	}
	return v
}

func mustMove(t *testing.T, g *Game, player int, c Card) {
	t.Helper()
	mv, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal card: %v", err)
	}
	g.Move(player, mv, 0)
}

func marshalCard(t *testing.T, c Card) game.Move {
	t.Helper()
	mv, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal card: %v", err)
	}
	return mv
}

// validCard picks a card the player due to move is allowed to play.
func validCard(t *testing.T, g *Game) Card {
	t.Helper()
	v := view(t, g, g.NextPlayer())
	if v.TrickSuit != "" {
		for _, c := range v.Hand {
			if c.Suit == v.TrickSuit {
				return c
			}
		}
	}
	return v.Hand[0]
}

// invalidCard picks an off-suit card while the hand can still follow
// suit; reports false when every card is playable.
func invalidCard(t *testing.T, g *Game) (Card, bool) {
	t.Helper()
	v := view(t, g, g.NextPlayer())
	var offSuit []Card
	for _, c := range v.Hand {
		if c.Suit != v.TrickSuit {
			offSuit = append(offSuit, c)
		}
	}
	if len(offSuit) == 0 || len(offSuit) == len(v.Hand) {
		return Card{}, false
	}
	return offSuit[0], true
}

func quickPlay(t *testing.T, g *Game, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		mustMove(t, g, g.NextPlayer(), validCard(t, g))
		if g.Errored() {
			t.Fatalf("game errored after %d valid moves", i+1)
		}
	}
}

func TestPlayerCount(t *testing.T) {
	if got := newGame(t).PlayerCount(); got != 4 {
		t.Fatalf("player count = %d, want 4", got)
	}
}

func TestInitialState(t *testing.T) {
	g := newGame(t)

	if g.Ended() || g.Errored() {
		t.Fatal("fresh game must not be ended or errored")
	}
	if g.Winners() != nil {
		t.Fatalf("winners = %v, want nil", g.Winners())
	}

	player := g.NextPlayer()
	if player < 1 || player > 4 {
		t.Fatalf("next player = %d, want 1..4", player)
	}

	full, ok := g.FullState().(*FullState)
	if !ok {
		t.Fatal("unexpected full state type")
	}
	if full.NextPlayer != player {
		t.Fatalf("full state next player = %d, want %d", full.NextPlayer, player)
	}

	seen := map[Card]bool{}
	for i, hand := range full.Hands {
		if len(hand) != 10 {
			t.Fatalf("hand %d has %d cards, want 10", i+1, len(hand))
		}
		for _, c := range hand {
			if seen[c] {
				t.Fatalf("card %v dealt twice", c)
			}
			seen[c] = true
		}
	}

	if full.TrumpPlayer != prevPlayer(player) {
		t.Fatalf("trump player = %d, want %d", full.TrumpPlayer, prevPlayer(player))
	}
	if full.Trump.Suit == "" || full.Trump.Value == "" {
		t.Fatalf("trump %v is not a card", full.Trump)
	}
	if !containsCard(full.Hands[full.TrumpPlayer-1], full.Trump) {
		t.Fatal("trump card must be in the trump player's hand")
	}

	if full.LastTrick != nil {
		t.Fatalf("last trick = %v, want nil", full.LastTrick)
	}
	for i, c := range full.CurrentTrick {
		if c != nil {
			t.Fatalf("current trick slot %d = %v, want empty", i, c)
		}
	}
	if full.TrickSuit != "" || full.TricksDone != 0 {
		t.Fatalf("trick suit %q / tricks done %d, want empty / 0", full.TrickSuit, full.TricksDone)
	}
	if full.Score != [2]int{} {
		t.Fatalf("score = %v, want zeros", full.Score)
	}

	for p := 1; p <= 4; p++ {
		v := view(t, g, p)
		if len(v.Hand) != len(full.Hands[p-1]) {
			t.Fatalf("player %d view hand size mismatch", p)
		}
		for i, c := range v.Hand {
			if c != full.Hands[p-1][i] {
				t.Fatalf("player %d view hand differs from full state", p)
			}
		}
	}

	if spec := view(t, g, 0); spec.Hand != nil {
		t.Fatal("spectator view must not contain a hand")
	}
}

func TestPlayThroughToEnd(t *testing.T) {
	g := newGame(t)

	for turn := 0; turn < 40; turn++ {
		player := g.NextPlayer()
		card := validCard(t, g)
		mustMove(t, g, player, card)

		if g.Errored() {
			t.Fatalf("errored on turn %d", turn)
		}
		if turn < 39 {
			if g.Winners() != nil {
				t.Fatalf("winners before end on turn %d", turn)
			}
			if g.Ended() {
				t.Fatalf("ended early on turn %d", turn)
			}
		}

		full := g.FullState().(*FullState)
		if turn%4 != 3 {
			if got := g.NextPlayer(); got != nextPlayer(player) {
				t.Fatalf("turn %d: next player = %d, want %d", turn, got, nextPlayer(player))
			}
			placed := full.CurrentTrick[player-1]
			if placed == nil || *placed != card {
				t.Fatalf("turn %d: card not on the table", turn)
			}
		}
		if full.TricksDone != (turn+1)/4 {
			t.Fatalf("turn %d: tricks done = %d, want %d", turn, full.TricksDone, (turn+1)/4)
		}
	}

	if !g.Ended() || g.Errored() {
		t.Fatal("game must end cleanly after 40 moves")
	}
	if g.NextPlayer() != 0 {
		t.Fatalf("next player after end = %d, want 0", g.NextPlayer())
	}

	winners := g.Winners()
	if winners == nil {
		t.Fatal("winners must be resolved at the end")
	}
	full := g.FullState().(*FullState)
	if isDraw := full.Score[0] == full.Score[1]; isDraw != (len(winners) == 0) {
		t.Fatalf("draw/winners mismatch: score %v, winners %v", full.Score, winners)
	}
}

func TestInvalidMoveSetsErrorState(t *testing.T) {
	t.Run("card not in hand", func(t *testing.T) {
		g := newGame(t)
		other := nextPlayer(g.NextPlayer())
		mustMove(t, g, g.NextPlayer(), view(t, g, other).Hand[0])
		if !g.Errored() {
			t.Fatal("playing another player's card must error the game")
		}
		if g.NextPlayer() != 0 {
			t.Fatal("no further turns after error")
		}
	})

	t.Run("wrong player", func(t *testing.T) {
		g := newGame(t)
		card := validCard(t, g)
		mustMove(t, g, nextPlayer(g.NextPlayer()), card)
		if !g.Errored() {
			t.Fatal("moving out of turn must error the game")
		}
	})

	t.Run("not following suit", func(t *testing.T) {
		g := newGame(t)
		for {
			if card, ok := invalidCard(t, g); ok {
				mustMove(t, g, g.NextPlayer(), card)
				if !g.Errored() {
					t.Fatal("breaking the follow-suit rule must error the game")
				}
				return
			}
			mustMove(t, g, g.NextPlayer(), validCard(t, g))
			// Needs an absurdly rare distribution, but is reachable.
			if g.Ended() {
				return
			}
		}
	})
}

func TestValidMove(t *testing.T) {
	g := newGame(t)

	if !g.ValidMove(g.NextPlayer(), marshalCard(t, validCard(t, g))) {
		t.Fatal("a legal card must validate")
	}

	other := nextPlayer(g.NextPlayer())
	if g.ValidMove(g.NextPlayer(), marshalCard(t, view(t, g, other).Hand[0])) {
		t.Fatal("a card outside the hand must not validate")
	}

	if g.ValidMove(other, marshalCard(t, validCard(t, g))) {
		t.Fatal("an out-of-turn move must not validate")
	}

	if g.ValidMove(g.NextPlayer(), game.Move(`"not a card"`)) {
		t.Fatal("a malformed payload must not validate")
	}

	mustMove(t, g, g.NextPlayer(), validCard(t, g))
	if card, ok := invalidCard(t, g); ok {
		if g.ValidMove(g.NextPlayer(), marshalCard(t, card)) {
			t.Fatal("an off-suit card must not validate while the suit can be followed")
		}
	}
}

func TestMoveTimeoutForfeitsDuePlayersTeam(t *testing.T) {
	g := newGame(t)
	due := g.NextPlayer()

	if !g.OnMoveTimeout() {
		t.Fatal("timeout must resolve the game")
	}
	if g.NextPlayer() != 0 {
		t.Fatal("no further turns after a timeout")
	}

	want := []int{1, 3}
	if due%2 == 1 {
		want = []int{2, 4}
	}
	got := g.Winners()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("winners = %v, want %v (player %d timed out)", got, want, due)
	}
}

func TestScoreAfterTricks(t *testing.T) {
	g := newGame(t)
	quickPlay(t, g, 4)

	full := g.FullState().(*FullState)
	trickPoints := 0
	for _, c := range full.LastTrick {
		trickPoints += points[c.Value]
	}

	score := full.Score
	if !(score[0] == 0 && score[1] == trickPoints || score[1] == 0 && score[0] == trickPoints) {
		t.Fatalf("score = %v, want one side holding the %d trick points", score, trickPoints)
	}

	quickPlay(t, g, 36)
	full = g.FullState().(*FullState)
	if full.Score[0]+full.Score[1] != 120 {
		t.Fatalf("total points = %d, want 120", full.Score[0]+full.Score[1])
	}
}

func TestSeededDealIsDeterministic(t *testing.T) {
	a, err := New(game.Params{"seed": 42})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	b, err := New(a.Params())
	if err != nil {
		t.Fatalf("new game from captured params: %v", err)
	}

	stateA, _ := json.Marshal(a.FullState())
	stateB, _ := json.Marshal(b.FullState())
	if string(stateA) != string(stateB) {
		t.Fatal("same params must reproduce the same deal")
	}
}

func TestFreshDealCapturesSeed(t *testing.T) {
	g := newGame(t)
	if _, ok := seedFrom(g.Params()); !ok {
		t.Fatal("a fresh deal must capture its seed into params")
	}

	replay, err := New(g.Params())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	stateA, _ := json.Marshal(g.FullState())
	stateB, _ := json.Marshal(replay.FullState())
	if string(stateA) != string(stateB) {
		t.Fatal("captured params must reproduce the deal")
	}
}
