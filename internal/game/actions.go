package game

import (
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/deck"
)

// actingHand locates a player hand and refreshes its status before
// validation.
func actingHand(g *GameState, playerID string, handIndex int, action HandActionType) (*PlayerSeat, *PlayerHand, error) {
	if g.Status != StatusActive {
		return nil, nil, fmt.Errorf("%w: %s while game is %s", ErrActionNotAllowed, action, g.Status)
	}
	seat, err := g.Players.Seat(playerID)
	if err != nil {
		return nil, nil, err
	}
	hand, err := seat.Hand(handIndex)
	if err != nil {
		return nil, nil, err
	}
	Recompute(&hand.Hand, g.Players.DealerHand())
	return seat, hand, nil
}

func notAllowed(action HandActionType, playerID string, handIndex int) error {
	return fmt.Errorf("%w: %s on player %s hand %d", ErrActionNotAllowed, action, playerID, handIndex)
}

func drawInto(h *Hand, cur *deck.Cursor, t HandActionType, now time.Time) error {
	card, idx, err := cur.Draw()
	if err != nil {
		return err
	}
	h.Cards = append(h.Cards, card)
	h.Actions = append(h.Actions, Action{Type: t, Timestamp: now, ShoeIndices: []int{idx}})
	return nil
}

// Hit deals one card to the hand.
func Hit(g *GameState, playerID string, handIndex int, cur *deck.Cursor, now time.Time) (*PlayerHand, error) {
	_, hand, err := actingHand(g, playerID, handIndex, ActionHit)
	if err != nil {
		return nil, err
	}
	if !hand.Status.CanHit {
		return nil, notAllowed(ActionHit, playerID, handIndex)
	}
	if err := drawInto(&hand.Hand, cur, ActionHit, now); err != nil {
		return nil, err
	}
	Recompute(&hand.Hand, g.Players.DealerHand())
	return hand, nil
}

// Stand ends the hand's turn.
func Stand(g *GameState, playerID string, handIndex int, now time.Time) (*PlayerHand, error) {
	_, hand, err := actingHand(g, playerID, handIndex, ActionStand)
	if err != nil {
		return nil, err
	}
	if !hand.Status.CanStand {
		return nil, notAllowed(ActionStand, playerID, handIndex)
	}
	hand.Actions = append(hand.Actions, Action{Type: ActionStand, Timestamp: now})
	Recompute(&hand.Hand, g.Players.DealerHand())
	return hand, nil
}

// DoubleDown deals exactly one card and stands. The wager increase is
// applied by the caller.
func DoubleDown(g *GameState, playerID string, handIndex int, cur *deck.Cursor, now time.Time) (*PlayerHand, error) {
	_, hand, err := actingHand(g, playerID, handIndex, ActionDoubleDown)
	if err != nil {
		return nil, err
	}
	if !hand.Status.CanDoubleDown {
		return nil, notAllowed(ActionDoubleDown, playerID, handIndex)
	}
	if err := drawInto(&hand.Hand, cur, ActionDoubleDown, now); err != nil {
		return nil, err
	}
	hand.Actions = append(hand.Actions, Action{Type: ActionStand, Timestamp: now})
	Recompute(&hand.Hand, g.Players.DealerHand())
	hand.Status.WasDoubled = true
	return hand, nil
}

// Insure records the player's answer to the insurance offer. The
// insurance side wager is attached by the caller when accept is true.
func Insure(g *GameState, playerID string, handIndex int, accept bool, now time.Time) (*PlayerHand, error) {
	_, hand, err := actingHand(g, playerID, handIndex, ActionInsurance)
	if err != nil {
		return nil, err
	}
	if !hand.Status.CanInsure {
		return nil, notAllowed(ActionInsurance, playerID, handIndex)
	}
	hand.Actions = append(hand.Actions, Action{Type: ActionInsurance, Timestamp: now, Accept: &accept})
	Recompute(&hand.Hand, g.Players.DealerHand())
	return hand, nil
}
