package game

import (
	"time"

	"github.com/lox/blackjack/internal/deck"
)

// PostActionProcess brings a round up to date after any mutation: the
// dealer plays if no player hand can act, every status is recomputed
// against the dealer, unknown side bets are resolved, the round completes
// once no hand can act, and the hole card follows the round status.
func PostActionProcess(g *GameState, cur *deck.Cursor, now time.Time) error {
	if g.Status != StatusActive {
		return nil
	}

	RecomputeAll(&g.Players)
	if err := PlayDealer(g, cur, now); err != nil {
		return err
	}
	RecomputeAll(&g.Players)
	ResolveSideBets(&g.Players)

	if AllResolved(g) {
		g.Status = StatusComplete
	}
	SetHoleCardHidden(g, g.Status != StatusComplete)
	g.UpdatedAt = now
	return nil
}

// AllResolved reports whether no hand, player or dealer, can act.
func AllResolved(g *GameState) bool {
	if g.Players.DealerHand().Status.Playable() {
		return false
	}
	resolved := true
	g.Players.EachPlayerHand(func(_ *PlayerSeat, h *PlayerHand) {
		if h.Status == nil || h.Status.Playable() {
			resolved = false
		}
	})
	return resolved
}

// SetHoleCardHidden toggles the client-visible concealment of the hole card.
func SetHoleCardHidden(g *GameState, hidden bool) {
	dealer := g.Players.DealerHand()
	if len(dealer.Cards) > holeCard {
		dealer.Cards[holeCard].Hidden = hidden
	}
}
