package game

import (
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/deck"
)

// holeCard is the position of the dealer's concealed card.
const holeCard = 1

// Deal moves a pending round to active: every seat gets one hand, two
// cards are dealt around the table in two passes with the dealer last, and
// the dealer's second card is hidden. wagers maps player id to the seat's
// main wager; a missing entry makes the seat a demo seat.
func Deal(g *GameState, wagers map[string]*Wager, cur *deck.Cursor, now time.Time) error {
	if g.Status != StatusPending {
		return fmt.Errorf("%w: deal while game is %s", ErrActionNotAllowed, g.Status)
	}
	if len(g.Players.Players) == 0 {
		return fmt.Errorf("%w: no player seats", ErrActionNotAllowed)
	}

	for i := range g.Players.Players {
		seat := &g.Players.Players[i]
		hand := PlayerHand{Hand: Hand{HandIndex: 0}}
		if w, ok := wagers[seat.PlayerID]; ok && w != nil {
			cp := *w
			cp.Type = WagerMain
			cp.Sides = append(make([]SideWager, 0, len(w.Sides)), w.Sides...)
			for j := range cp.Sides {
				cp.Sides[j].Outcome = OutcomeUnknown
			}
			hand.Wager = &cp
		}
		seat.Hands = []PlayerHand{hand}
	}
	g.Players.Dealer = DealerSeat{Hand: Hand{}}

	for range 2 {
		for i := range g.Players.Players {
			seat := &g.Players.Players[i]
			if err := drawInto(&seat.Hands[0].Hand, cur, ActionDeal, now); err != nil {
				return err
			}
		}
		if err := drawInto(g.Players.DealerHand(), cur, ActionDeal, now); err != nil {
			return err
		}
	}

	g.Players.DealerHand().Cards[holeCard].Hidden = true
	g.Status = StatusActive
	RecomputeAll(&g.Players)
	return nil
}
