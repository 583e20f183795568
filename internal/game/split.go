package game

import (
	"slices"
	"time"

	"github.com/lox/blackjack/internal/deck"
)

// SplitResult identifies the two hands produced by a split.
type SplitResult struct {
	First  *PlayerHand
	Second *PlayerHand
}

// Split separates a pair into two hands. The first keeps the original
// index and logs [..., split, deal]; the second takes index+1, records
// SplitFrom and logs [..., deal, split]. Seat hands are then renumbered by
// position so later hands shift up by one.
func Split(g *GameState, playerID string, handIndex int, cur *deck.Cursor, now time.Time) (SplitResult, error) {
	seat, hand, err := actingHand(g, playerID, handIndex, ActionSplit)
	if err != nil {
		return SplitResult{}, err
	}
	if !hand.Status.CanSplit {
		return SplitResult{}, notAllowed(ActionSplit, playerID, handIndex)
	}

	pos := slices.IndexFunc(seat.Hands, func(h PlayerHand) bool { return h.HandIndex == handIndex })

	first := seat.Hands[pos]
	second := PlayerHand{
		Hand: Hand{
			Cards:     []deck.Card{first.Cards[1]},
			Actions:   slices.Clone(first.Actions),
			HandIndex: first.HandIndex + 1,
		},
	}
	first.Cards = []deck.Card{first.Cards[0]}
	first.Actions = slices.Clone(first.Actions)
	if first.Wager != nil {
		second.Wager = &Wager{
			Type:        WagerMain,
			Amount:      first.Wager.Amount,
			BalanceType: first.Wager.BalanceType,
			Sides:       []SideWager{},
		}
	}

	first.Actions = append(first.Actions, Action{Type: ActionSplit, Timestamp: now})
	if err := drawInto(&first.Hand, cur, ActionDeal, now); err != nil {
		return SplitResult{}, err
	}
	if err := drawInto(&second.Hand, cur, ActionDeal, now); err != nil {
		return SplitResult{}, err
	}
	second.Actions = append(second.Actions, Action{Type: ActionSplit, Timestamp: now})

	hands := make([]PlayerHand, 0, len(seat.Hands)+1)
	hands = append(hands, seat.Hands[:pos]...)
	hands = append(hands, first, second)
	hands = append(hands, seat.Hands[pos+1:]...)
	for i := range hands {
		hands[i].HandIndex = i
	}
	slices.SortStableFunc(hands, func(a, b PlayerHand) int { return a.HandIndex - b.HandIndex })
	seat.Hands = hands

	firstHand := &seat.Hands[pos]
	secondHand := &seat.Hands[pos+1]
	from := firstHand.HandIndex
	secondHand.Status = &HandStatus{SplitFrom: &from}

	dealer := g.Players.DealerHand()
	Recompute(&firstHand.Hand, dealer)
	Recompute(&secondHand.Hand, dealer)
	return SplitResult{First: firstHand, Second: secondHand}, nil
}
