package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
)

var now = time.Date(2025, time.May, 1, 9, 30, 0, 0, time.UTC)

func activeGame(t *testing.T) *game.GameState {
	t.Helper()
	g := game.NewGameState("game-1", "seed", "hash", "alice", now)
	g.Players.Players = append(g.Players.Players, game.PlayerSeat{PlayerID: "bob"})
	g.Players.Players[0].BetID = "bet-1"
	wagers := map[string]*game.Wager{"alice": {
		Amount: decimal.RequireFromString("12.50"),
		Sides:  []game.SideWager{{Type: game.WagerPerfectPair, Amount: decimal.NewFromInt(1)}},
	}}
	cur := deck.NewCursor(deck.MustParseCards("8s9c7d8hTh6c"), 0)
	require.NoError(t, game.Deal(g, wagers, cur, now))
	return g
}

func TestCodecRoundTrip(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)
	g := activeGame(t)

	data, err := c.Encode(g)
	require.NoError(t, err)

	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, game.StatusActive, got.Status)
	require.Len(t, got.Players.Players, 2)

	hand := got.Players.Players[0].Hands[0]
	require.NotNil(t, hand.Wager)
	assert.True(t, decimal.RequireFromString("12.5").Equal(hand.Wager.Amount))
	assert.Equal(t, g.Players.Players[0].Hands[0].Cards, hand.Cards)
	assert.True(t, got.Players.DealerHand().Cards[1].Hidden)
	assert.Nil(t, got.Players.Players[1].Hands[0].Wager)
}

func TestCodecPendingGame(t *testing.T) {
	c := MustCodec()
	g := game.NewGameState("game-2", "seed", "hash", "alice", now)

	data, err := c.Encode(g)
	require.NoError(t, err)
	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, game.StatusPending, got.Status)
	assert.Empty(t, got.Players.Players[0].Hands)
}

func TestCodecRejectsInvalidDocuments(t *testing.T) {
	c := MustCodec()
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing players", `{"id":"g","seed":"","hash":"","status":"pending","createdAt":"2025-01-01T00:00:00Z","updatedAt":"2025-01-01T00:00:00Z"}`},
		{"bad status", `{"id":"g","seed":"","hash":"","status":"paused","players":[{"playerId":"dealer","hands":[]}],"createdAt":"2025-01-01T00:00:00Z","updatedAt":"2025-01-01T00:00:00Z"}`},
		{"numeric amount", `{"id":"g","seed":"","hash":"","status":"active","players":[{"playerId":"a","hands":[{"handIndex":0,"wager":{"type":"main","amount":10}}]},{"playerId":"dealer","hands":[]}],"createdAt":"2025-01-01T00:00:00Z","updatedAt":"2025-01-01T00:00:00Z"}`},
		{"dealer not last", `{"id":"g","seed":"","hash":"","status":"pending","players":[{"playerId":"dealer","hands":[]},{"playerId":"a","hands":[]}],"createdAt":"2025-01-01T00:00:00Z","updatedAt":"2025-01-01T00:00:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}
