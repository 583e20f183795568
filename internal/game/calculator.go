package game

import "github.com/lox/blackjack/internal/deck"

// HandValue sums cards at their low value. With useAlts, one alt-valued card
// is counted high when that keeps the total at or below 21; soft reports
// whether that happened. At most one Ace is ever counted high because a
// second would add at least 10 more and bust.
func HandValue(cards []deck.Card, useAlts bool) (value int, soft bool) {
	bump := 0
	for _, c := range cards {
		value += c.Value()
		if useAlts && c.HasAlt() && bump == 0 {
			bump = c.AltValue() - c.Value()
		}
	}
	if bump > 0 && value+bump <= 21 {
		return value + bump, true
	}
	return value, false
}

// ComputeStatus derives the status of hand against the dealer hand. prev is
// the last snapshot of the same hand; SplitFrom, WasDoubled and a final
// Outcome are carried forward from it. dealer is nil when computing the
// dealer's own status.
func ComputeStatus(hand *Hand, dealer *Hand, prev *HandStatus) HandStatus {
	value, soft := HandValue(hand.Cards, true)
	stood := hand.HasAction(ActionStand)
	split := hand.HasAction(ActionSplit)

	st := HandStatus{
		Value:   value,
		IsSoft:  soft,
		IsHard:  !soft,
		IsBust:  value > 21,
		Outcome: OutcomeUnknown,
	}
	if prev != nil {
		st.SplitFrom = prev.SplitFrom
		st.WasDoubled = prev.WasDoubled
	}
	if hand.HasAction(ActionDoubleDown) {
		st.WasDoubled = true
	}

	st.IsBlackjack = len(hand.Cards) == 2 && value == 21 && !split && st.SplitFrom == nil
	st.CanHit = !stood && value < 21
	st.CanStand = st.CanHit
	st.CanDoubleDown = len(hand.Cards) == 2 && !stood && value < 21
	st.CanSplit = len(hand.Cards) == 2 &&
		hand.Cards[0].Rank == hand.Cards[1].Rank &&
		!stood && hand.OnlyDealt()

	if dealer != nil {
		st.CanInsure = len(dealer.Cards) > 0 && dealer.Cards[0].IsAce() && !hand.HasAction(ActionInsurance)
	}

	switch {
	case prev != nil && prev.Outcome.IsFinal():
		st.Outcome = prev.Outcome
	case dealer != nil && !st.Playable() && dealer.Status != nil && !dealer.Status.Playable():
		st.Outcome = HandOutcome(st, *dealer.Status)
	}
	return st
}

// Recompute replaces the hand's status with a fresh snapshot.
func Recompute(hand *Hand, dealer *Hand) {
	st := ComputeStatus(hand, dealer, hand.Status)
	hand.Status = &st
}

// RecomputeDealer replaces the dealer hand's status.
func RecomputeDealer(t *Table) {
	Recompute(t.DealerHand(), nil)
}

// RecomputeAll recomputes the dealer and then every player hand against it.
func RecomputeAll(t *Table) {
	RecomputeDealer(t)
	dealer := t.DealerHand()
	t.EachPlayerHand(func(_ *PlayerSeat, h *PlayerHand) {
		Recompute(&h.Hand, dealer)
	})
}

// HandOutcome compares a finished player hand with a finished dealer hand.
func HandOutcome(player, dealer HandStatus) WagerOutcomeType {
	switch {
	case player.IsBust:
		return OutcomeLoss
	case dealer.IsBust:
		return OutcomeWin
	case player.IsBlackjack && dealer.IsBlackjack:
		return OutcomePush
	case player.IsBlackjack:
		return OutcomeWin
	case dealer.IsBlackjack:
		return OutcomeLoss
	case player.Value > dealer.Value:
		return OutcomeWin
	case player.Value < dealer.Value:
		return OutcomeLoss
	default:
		return OutcomePush
	}
}
