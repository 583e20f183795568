package game

import (
	"time"

	"github.com/lox/blackjack/internal/deck"
)

// DealerStandValue is the total at which the dealer stops drawing. The rule
// is a strict threshold: a soft 17 stands.
const DealerStandValue = 17

// DealerTurn reports whether every player hand has finished acting.
func DealerTurn(g *GameState) bool {
	if g.Status != StatusActive {
		return false
	}
	turn := true
	g.Players.EachPlayerHand(func(_ *PlayerSeat, h *PlayerHand) {
		if h.Status == nil || h.Status.Playable() {
			turn = false
		}
	})
	return turn
}

// PlayDealer draws for the dealer until its value reaches the stand
// threshold, then logs a stand. It is a no-op outside the dealer's turn.
func PlayDealer(g *GameState, cur *deck.Cursor, now time.Time) error {
	if !DealerTurn(g) {
		return nil
	}
	dealer := g.Players.DealerHand()
	Recompute(dealer, nil)

	for dealer.Status.Value < DealerStandValue {
		card, idx, err := cur.Draw()
		if err != nil {
			return err
		}
		dealer.Cards = append(dealer.Cards, card)
		dealer.Actions = append(dealer.Actions, Action{
			Type:        ActionHit,
			Timestamp:   now,
			ShoeIndices: []int{idx},
		})
		Recompute(dealer, nil)
	}

	if !dealer.HasAction(ActionStand) {
		dealer.Actions = append(dealer.Actions, Action{Type: ActionStand, Timestamp: now})
		Recompute(dealer, nil)
	}
	return nil
}
