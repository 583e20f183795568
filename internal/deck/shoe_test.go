package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvableShoeDeterministic(t *testing.T) {
	t.Parallel()
	src := NewProvableShoe(6)
	hash := src.Commit("seed-1", "game-1")

	a, err := src.Shoe(hash)
	require.NoError(t, err)
	b, err := src.Shoe(hash)
	require.NoError(t, err)

	require.Len(t, a, 6*52)
	assert.Equal(t, a, b)

	other, err := src.Shoe(src.Commit("seed-2", "game-1"))
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestProvableShoeComposition(t *testing.T) {
	t.Parallel()
	cards, err := NewProvableShoe(2).Shoe("abc")
	require.NoError(t, err)

	counts := make(map[Card]int)
	for _, c := range cards {
		counts[c]++
	}
	assert.Len(t, counts, 52)
	for c, n := range counts {
		assert.Equal(t, 2, n, "card %s", c)
	}
}

func TestProvableShoeRejectsEmptyCommitment(t *testing.T) {
	_, err := NewProvableShoe(1).Shoe("")
	require.Error(t, err)
}

func TestCursorDrawsFrontToBack(t *testing.T) {
	cards := MustParseCards("As2h3d")
	cur := NewCursor(cards, 1)

	c, idx, err := cur.Draw()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.True(t, c.SameFace(cards[1]))

	_, idx, err = cur.Draw()
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, 0, cur.CardsRemaining())

	_, _, err = cur.Draw()
	require.ErrorIs(t, err, ErrShoeExhausted)
}
