package game

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
)

var testNow = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

// dealtGame deals a round from a literal shoe. Cards are dealt one per seat
// in seat order, then the dealer, twice over.
func dealtGame(t *testing.T, shoe string, players ...string) (*GameState, *deck.Cursor) {
	t.Helper()
	g := NewGameState("game-1", "seed", "hash", players[0], testNow)
	for _, p := range players[1:] {
		g.Players.Players = append(g.Players.Players, PlayerSeat{PlayerID: p})
	}
	cur := deck.NewCursor(deck.MustParseCards(shoe), 0)
	wagers := make(map[string]*Wager, len(players))
	for _, p := range players {
		wagers[p] = &Wager{Amount: decimal.NewFromInt(10)}
	}
	require.NoError(t, Deal(g, wagers, cur, testNow))
	return g, cur
}

func cards(s string) []deck.Card {
	return deck.MustParseCards(s)
}

func handOf(t *testing.T, g *GameState, player string, idx int) *PlayerHand {
	t.Helper()
	seat, err := g.Players.Seat(player)
	require.NoError(t, err)
	h, err := seat.Hand(idx)
	require.NoError(t, err)
	return h
}

func newCursor(shoe string) *deck.Cursor {
	return deck.NewCursor(deck.MustParseCards(shoe), 0)
}
