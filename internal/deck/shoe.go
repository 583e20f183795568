package deck

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/lox/blackjack/internal/randutil"
)

// DefaultDecks is the number of 52-card decks in a standard shoe.
const DefaultDecks = 6

// ErrShoeExhausted is returned when a cursor runs past the end of its shoe.
var ErrShoeExhausted = errors.New("shoe exhausted")

// ProvableShoe derives a round commitment from a seed and expands the
// commitment into a shuffled multi-deck sequence. The same commitment always
// produces the same sequence.
type ProvableShoe struct {
	Decks int
}

// NewProvableShoe creates a shoe source with the given number of decks.
func NewProvableShoe(decks int) ProvableShoe {
	if decks <= 0 {
		decks = DefaultDecks
	}
	return ProvableShoe{Decks: decks}
}

// Commit returns the hash commitment for a seed and game.
func (p ProvableShoe) Commit(seed, gameID string) string {
	sum := sha256.Sum256([]byte(seed + ":" + gameID))
	return hex.EncodeToString(sum[:])
}

// Shoe returns the full shuffled sequence for a commitment.
func (p ProvableShoe) Shoe(hash string) ([]Card, error) {
	if hash == "" {
		return nil, fmt.Errorf("shoe: empty commitment")
	}
	decks := p.Decks
	if decks <= 0 {
		decks = DefaultDecks
	}

	cards := make([]Card, 0, decks*52)
	for range decks {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Ace; rank <= King; rank++ {
				cards = append(cards, NewCard(suit, rank))
			}
		}
	}

	// Fisher-Yates
	rng := randutil.FromCommitment(hash)
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return cards, nil
}

// Cursor deals a shoe strictly front to back starting at a fixed position.
type Cursor struct {
	cards []Card
	next  int
}

// NewCursor positions a cursor at next within cards.
func NewCursor(cards []Card, next int) *Cursor {
	if next < 0 {
		next = 0
	}
	return &Cursor{cards: cards, next: next}
}

// Draw returns the next card and its shoe index.
func (c *Cursor) Draw() (Card, int, error) {
	if c.next >= len(c.cards) {
		return Card{}, c.next, ErrShoeExhausted
	}
	idx := c.next
	c.next++
	return c.cards[idx], idx, nil
}

// Position returns the index of the next card to be dealt.
func (c *Cursor) Position() int {
	return c.next
}

// CardsRemaining returns the number of cards left in the shoe
func (c *Cursor) CardsRemaining() int {
	return len(c.cards) - c.next
}
