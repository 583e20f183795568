// Package payout computes settlement amounts for finished blackjack hands.
// All arithmetic is decimal; a payout is the total returned to the player,
// stake included.
package payout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/game"
)

var (
	// ErrUnknownOutcome is returned when a hand reaches settlement before
	// its outcome is final.
	ErrUnknownOutcome = errors.New("hand outcome unknown at settlement")
	// ErrDealerStatusMissing is returned when the dealer hand has no status.
	ErrDealerStatusMissing = errors.New("dealer hand has no status")
)

// Rules holds the payout rates and side-bet pay tables. Multipliers are
// "to one": a 25 pays 25 times the stake on top of the returned stake.
type Rules struct {
	BlackjackRate      decimal.Decimal
	StandardRate       decimal.Decimal
	InsuranceRate      decimal.Decimal
	PerfectPair        map[game.PerfectPairTier]decimal.Decimal
	TwentyOnePlusThree map[game.ThreeCardTier]decimal.Decimal
}

// DefaultRules returns 3:2 blackjack, even money, half-stake insurance and
// the standard side-bet tables.
func DefaultRules() Rules {
	return Rules{
		BlackjackRate: decimal.NewFromFloat(1.5),
		StandardRate:  decimal.NewFromInt(1),
		InsuranceRate: decimal.NewFromFloat(0.5),
		PerfectPair: map[game.PerfectPairTier]decimal.Decimal{
			game.PairPerfect: decimal.NewFromInt(25),
			game.PairColored: decimal.NewFromInt(12),
			game.PairMixed:   decimal.NewFromInt(6),
		},
		TwentyOnePlusThree: map[game.ThreeCardTier]decimal.Decimal{
			game.ThreeCardSuitedTriple:  decimal.NewFromInt(100),
			game.ThreeCardStraightFlush: decimal.NewFromInt(40),
			game.ThreeCardThreeOfAKind:  decimal.NewFromInt(30),
			game.ThreeCardStraight:      decimal.NewFromInt(10),
			game.ThreeCardFlush:         decimal.NewFromInt(5),
		},
	}
}

// InsuranceCost returns the insurance stake for a main wager.
func (r Rules) InsuranceCost(wager decimal.Decimal) decimal.Decimal {
	return wager.Mul(r.InsuranceRate)
}

// HandResult is the settlement of one hand.
type HandResult struct {
	HandIndex int                   `json:"handIndex"`
	Outcome   game.WagerOutcomeType `json:"outcome"`
	Main      decimal.Decimal       `json:"main"`
	Sides     decimal.Decimal       `json:"sides"`
	Total     decimal.Decimal       `json:"total"`
}

// Hand settles a live hand against the dealer. Demo hands pay zero.
func (r Rules) Hand(hand *game.PlayerHand, dealer *game.HandStatus) (HandResult, error) {
	res := HandResult{HandIndex: hand.HandIndex, Main: decimal.Zero, Sides: decimal.Zero, Total: decimal.Zero}
	if dealer == nil {
		return res, ErrDealerStatusMissing
	}
	if hand.Status == nil || !hand.Status.Outcome.IsFinal() {
		return res, fmt.Errorf("%w: hand %d", ErrUnknownOutcome, hand.HandIndex)
	}
	res.Outcome = hand.Status.Outcome
	if hand.Wager == nil {
		return res, nil
	}

	res.Main = r.Main(hand.Wager.Amount, hand.Status.Outcome, hand.Status.IsBlackjack)
	res.Sides = r.SideValue(hand.Wager.Sides, hand.Status, dealer)
	res.Total = res.Main.Add(res.Sides)
	return res, nil
}

// Main returns the main-wager payout for an outcome.
func (r Rules) Main(wager decimal.Decimal, outcome game.WagerOutcomeType, blackjack bool) decimal.Decimal {
	switch outcome {
	case game.OutcomeWin:
		rate := r.StandardRate
		if blackjack {
			rate = r.BlackjackRate
		}
		return wager.Add(wager.Mul(rate))
	case game.OutcomePush:
		return wager
	default:
		return decimal.Zero
	}
}

// SideValue sums the payouts of the side wagers.
func (r Rules) SideValue(sides []game.SideWager, player, dealer *game.HandStatus) decimal.Decimal {
	total := decimal.Zero
	for _, side := range sides {
		total = total.Add(r.Side(side, player, dealer))
	}
	return total
}

// Side returns the payout of one side wager. Perfect Pair and 21+3 pay from
// the tier recorded when the wager resolved. Insurance pays only when the
// dealer has blackjack and the player does not.
func (r Rules) Side(side game.SideWager, player, dealer *game.HandStatus) decimal.Decimal {
	switch side.Type {
	case game.WagerPerfectPair:
		return r.tiered(side, r.PerfectPair[game.PerfectPairTier(side.Tier)])
	case game.WagerTwentyOnePlusThree:
		return r.tiered(side, r.TwentyOnePlusThree[game.ThreeCardTier(side.Tier)])
	case game.WagerInsurance:
		if dealer != nil && dealer.IsBlackjack && (player == nil || !player.IsBlackjack) {
			return side.Amount.Mul(r.InsuranceRate)
		}
	}
	return decimal.Zero
}

func (r Rules) tiered(side game.SideWager, multiplier decimal.Decimal) decimal.Decimal {
	if side.Outcome != game.OutcomeWin || multiplier.IsZero() {
		return decimal.Zero
	}
	return side.Amount.Add(side.Amount.Mul(multiplier))
}
