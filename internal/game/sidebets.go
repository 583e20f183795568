package game

import (
	"slices"

	"github.com/lox/blackjack/internal/deck"
)

// PerfectPairTier classifies the first two cards of a hand.
type PerfectPairTier string

const (
	PairNone    PerfectPairTier = ""
	PairMixed   PerfectPairTier = "mixed"
	PairColored PerfectPairTier = "colored"
	PairPerfect PerfectPairTier = "perfect"
)

// ThreeCardTier classifies a 21+3 hand: the player's first two cards plus
// the dealer up card.
type ThreeCardTier string

const (
	ThreeCardNone          ThreeCardTier = ""
	ThreeCardFlush         ThreeCardTier = "flush"
	ThreeCardStraight      ThreeCardTier = "straight"
	ThreeCardThreeOfAKind  ThreeCardTier = "three_of_a_kind"
	ThreeCardStraightFlush ThreeCardTier = "straight_flush"
	ThreeCardSuitedTriple  ThreeCardTier = "suited_triple"
)

// IsPerfectPair reports same rank and suit.
func IsPerfectPair(a, b deck.Card) bool {
	return a.Rank == b.Rank && a.Suit == b.Suit
}

// IsColoredPair reports same rank and suit color.
func IsColoredPair(a, b deck.Card) bool {
	return a.Rank == b.Rank && a.IsRed() == b.IsRed()
}

// IsMixedPair reports same rank in different colors.
func IsMixedPair(a, b deck.Card) bool {
	return a.Rank == b.Rank && a.IsRed() != b.IsRed()
}

// ClassifyPerfectPair returns the best pair tier.
func ClassifyPerfectPair(a, b deck.Card) PerfectPairTier {
	switch {
	case IsPerfectPair(a, b):
		return PairPerfect
	case IsColoredPair(a, b):
		return PairColored
	case IsMixedPair(a, b):
		return PairMixed
	default:
		return PairNone
	}
}

// IsFlush reports three cards of one suit.
func IsFlush(a, b, c deck.Card) bool {
	return a.Suit == b.Suit && b.Suit == c.Suit
}

// IsThreeOfAKind reports three cards of one rank.
func IsThreeOfAKind(a, b, c deck.Card) bool {
	return a.Rank == b.Rank && b.Rank == c.Rank
}

// IsSuitedTriple reports three identical cards.
func IsSuitedTriple(a, b, c deck.Card) bool {
	return IsThreeOfAKind(a, b, c) && IsFlush(a, b, c)
}

// IsStraight reports three consecutive ranks. An Ace plays low (A-2-3) or,
// through its alternate ordinal, high (Q-K-A). Ranks never wrap past the Ace.
func IsStraight(a, b, c deck.Card) bool {
	low := []int{a.Ordinal(), b.Ordinal(), c.Ordinal()}
	high := []int{a.AltOrdinal(), b.AltOrdinal(), c.AltOrdinal()}
	return consecutive(low) || consecutive(high)
}

// IsStraightFlush reports a straight in one suit.
func IsStraightFlush(a, b, c deck.Card) bool {
	return IsStraight(a, b, c) && IsFlush(a, b, c)
}

// ClassifyTwentyOnePlusThree returns the best 21+3 tier.
func ClassifyTwentyOnePlusThree(a, b, c deck.Card) ThreeCardTier {
	switch {
	case IsSuitedTriple(a, b, c):
		return ThreeCardSuitedTriple
	case IsStraightFlush(a, b, c):
		return ThreeCardStraightFlush
	case IsThreeOfAKind(a, b, c):
		return ThreeCardThreeOfAKind
	case IsStraight(a, b, c):
		return ThreeCardStraight
	case IsFlush(a, b, c):
		return ThreeCardFlush
	default:
		return ThreeCardNone
	}
}

func consecutive(ordinals []int) bool {
	s := slices.Clone(ordinals)
	slices.Sort(s)
	return s[1] == s[0]+1 && s[2] == s[1]+1
}

// ResolveSideBets settles side wagers still unknown. Perfect Pair and 21+3
// depend only on cards and resolve as soon as they are dealt. Insurance
// resolves once the dealer hand is final: it wins iff the dealer has
// blackjack.
func ResolveSideBets(t *Table) {
	dealer := t.DealerHand()
	t.EachPlayerHand(func(_ *PlayerSeat, h *PlayerHand) {
		if h.Wager == nil {
			return
		}
		for i := range h.Wager.Sides {
			side := &h.Wager.Sides[i]
			if side.Outcome.IsFinal() {
				continue
			}
			resolveSide(side, &h.Hand, dealer)
		}
	})
}

func resolveSide(side *SideWager, hand *Hand, dealer *Hand) {
	switch side.Type {
	case WagerPerfectPair:
		if len(hand.Cards) < 2 {
			return
		}
		tier := ClassifyPerfectPair(hand.Cards[0], hand.Cards[1])
		side.Tier = string(tier)
		side.Outcome = winIf(tier != PairNone)
	case WagerTwentyOnePlusThree:
		if len(hand.Cards) < 2 || len(dealer.Cards) < 1 {
			return
		}
		tier := ClassifyTwentyOnePlusThree(hand.Cards[0], hand.Cards[1], dealer.Cards[0])
		side.Tier = string(tier)
		side.Outcome = winIf(tier != ThreeCardNone)
	case WagerInsurance:
		if dealer.Status == nil || dealer.Status.Playable() {
			return
		}
		side.Outcome = winIf(dealer.Status.IsBlackjack)
	}
}

func winIf(ok bool) WagerOutcomeType {
	if ok {
		return OutcomeWin
	}
	return OutcomeLoss
}
