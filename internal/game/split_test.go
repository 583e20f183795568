package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Parallel()
	// alice: 8s 8d; dealer: Td 9c; split draws 3h then 2c.
	g, cur := dealtGame(t, "8sTd8d9c3h2c", "alice")

	res, err := Split(g, "alice", 0, cur, testNow)
	require.NoError(t, err)

	seat, err := g.Players.Seat("alice")
	require.NoError(t, err)
	require.Len(t, seat.Hands, 2)

	first, second := res.First, res.Second
	assert.Equal(t, 0, first.HandIndex)
	assert.Equal(t, 1, second.HandIndex)
	assert.Equal(t, "8♠3♥", first.Cards[0].String()+first.Cards[1].String())
	assert.Equal(t, "8♦2♣", second.Cards[0].String()+second.Cards[1].String())

	assert.Equal(t,
		[]HandActionType{ActionDeal, ActionDeal, ActionSplit, ActionDeal},
		actionTypes(first.Actions))
	assert.Equal(t,
		[]HandActionType{ActionDeal, ActionDeal, ActionDeal, ActionSplit},
		actionTypes(second.Actions))

	require.NotNil(t, second.Status.SplitFrom)
	assert.Equal(t, first.HandIndex, *second.Status.SplitFrom)
	assert.Nil(t, first.Status.SplitFrom)
	assert.Equal(t, 11, first.Status.Value)
	assert.Equal(t, 10, second.Status.Value)

	require.NotNil(t, second.Wager)
	assert.True(t, second.Wager.Amount.Equal(first.Wager.Amount))
	assert.Empty(t, second.Wager.Sides)

	assert.Equal(t, 6, NextShoeIndex(g))
}

func TestSplitIndexInvariant(t *testing.T) {
	t.Parallel()
	pairs := []string{"AsAd", "2h2c", "KsKd", "TsTh", "9c9d"}
	for _, pair := range pairs {
		t.Run(pair, func(t *testing.T) {
			shoe := pair[:2] + "7d" + pair[2:] + "9c" + "4h5s"
			g, cur := dealtGame(t, shoe, "alice")
			res, err := Split(g, "alice", 0, cur, testNow)
			require.NoError(t, err)
			assert.Equal(t, res.First.HandIndex+1, res.Second.HandIndex)
			require.NotNil(t, res.Second.Status.SplitFrom)
			assert.Equal(t, res.First.HandIndex, *res.Second.Status.SplitFrom)
		})
	}
}

func TestSplitFromIsSticky(t *testing.T) {
	g, cur := dealtGame(t, "8sTd8d9c3h2c5s", "alice")
	_, err := Split(g, "alice", 0, cur, testNow)
	require.NoError(t, err)

	h, err := Hit(g, "alice", 1, cur, testNow)
	require.NoError(t, err)
	require.NotNil(t, h.Status.SplitFrom)
	assert.Equal(t, 0, *h.Status.SplitFrom)

	RecomputeAll(&g.Players)
	h = handOf(t, g, "alice", 1)
	require.NotNil(t, h.Status.SplitFrom)
	assert.Equal(t, 0, *h.Status.SplitFrom)
}

func TestSplitRequiresPair(t *testing.T) {
	g, cur := dealtGame(t, "8sTd9d9c3h2c", "alice")
	_, err := Split(g, "alice", 0, cur, testNow)
	require.ErrorIs(t, err, ErrActionNotAllowed)
}

func TestNoResplit(t *testing.T) {
	g, cur := dealtGame(t, "8sTd8d9c8h2c", "alice")
	_, err := Split(g, "alice", 0, cur, testNow)
	require.NoError(t, err)
	_, err = Split(g, "alice", 0, cur, testNow)
	require.ErrorIs(t, err, ErrActionNotAllowed)
}
