// Package account holds the user, balance and active-bet records shared by
// the engine and the ledger services that back it.
package account

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/game"
)

// DefaultBalanceType is used when a wager does not name a balance.
const DefaultBalanceType = "cash"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoActiveBet       = errors.New("no active bet")
	ErrInvalidDelta      = errors.New("invalid bet delta")
)

// User is a player with balances keyed by balance type.
type User struct {
	ID       string                     `json:"id"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// Balance returns the balance of the given type, zero when absent.
func (u *User) Balance(balanceType string) decimal.Decimal {
	if u == nil || u.Balances == nil {
		return decimal.Zero
	}
	return u.Balances[BalanceType(balanceType)]
}

// BalanceType normalises an empty balance type to the default.
func BalanceType(t string) string {
	if t == "" {
		return DefaultBalanceType
	}
	return t
}

// HandWager is the money riding on one hand of an active bet.
type HandWager struct {
	HandIndex int              `json:"handIndex"`
	Amount    decimal.Decimal  `json:"amount"`
	Sides     []game.SideWager `json:"sides"`
}

// Side returns the side wager of the given type, if any.
func (h *HandWager) Side(t game.HandWagerType) (*game.SideWager, bool) {
	for i := range h.Sides {
		if h.Sides[i].Type == t {
			return &h.Sides[i], true
		}
	}
	return nil, false
}

// ActiveBet is the open bet for one seat in one round.
type ActiveBet struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	GameID      string          `json:"gameId"`
	BalanceType string          `json:"balanceType"`
	SeatIndex   *int            `json:"seatIndex,omitempty"`
	PlayerCount int             `json:"playerCount"`
	BetAmount   decimal.Decimal `json:"betAmount"`
	HandWagers  []HandWager     `json:"handWagers"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Usable reports whether the bet carries the seat and hand structure
// settlement needs.
func (b *ActiveBet) Usable() bool {
	return b != nil && b.SeatIndex != nil && b.PlayerCount > 0 && len(b.HandWagers) > 0
}

// HandWager returns the hand wager for handIndex.
func (b *ActiveBet) HandWager(handIndex int) (*HandWager, bool) {
	for i := range b.HandWagers {
		if b.HandWagers[i].HandIndex == handIndex {
			return &b.HandWagers[i], true
		}
	}
	return nil, false
}

// BetDelta is a field-level increment applied to an active bet. It never
// replaces the document, so concurrent edits to other hands survive.
type BetDelta struct {
	// BetAmount is added to the bet's total.
	BetAmount decimal.Decimal `json:"betAmount"`
	HandIndex int             `json:"handIndex"`
	// AddAmount is added to the hand wager at HandIndex.
	AddAmount decimal.Decimal `json:"addAmount"`
	// AppendSides are appended to the hand wager at HandIndex.
	AppendSides []game.SideWager `json:"appendSides,omitempty"`
	// InsertHand, when set, inserts a new hand wager at HandIndex and
	// shifts later hands up by one.
	InsertHand *HandWager `json:"insertHand,omitempty"`
}

// Apply merges the delta into bet.
func (d BetDelta) Apply(bet *ActiveBet) error {
	if d.InsertHand != nil {
		pos := slices.IndexFunc(bet.HandWagers, func(h HandWager) bool { return h.HandIndex >= d.HandIndex })
		if pos < 0 {
			pos = len(bet.HandWagers)
		}
		hw := *d.InsertHand
		hw.Sides = slices.Clone(hw.Sides)
		bet.HandWagers = slices.Insert(bet.HandWagers, pos, hw)
		for i := range bet.HandWagers {
			bet.HandWagers[i].HandIndex = i
		}
	} else if !d.AddAmount.IsZero() || len(d.AppendSides) > 0 {
		hw, ok := bet.HandWager(d.HandIndex)
		if !ok {
			return ErrInvalidDelta
		}
		hw.Amount = hw.Amount.Add(d.AddAmount)
		hw.Sides = append(hw.Sides, d.AppendSides...)
	}
	bet.BetAmount = bet.BetAmount.Add(d.BetAmount)
	return nil
}

// HandSettlement is the payout of one hand at closeout.
type HandSettlement struct {
	HandIndex int                   `json:"handIndex"`
	Outcome   game.WagerOutcomeType `json:"outcome"`
	Payout    decimal.Decimal       `json:"payout"`
}

// FinalBet is handed to the bet service to close an active bet.
type FinalBet struct {
	Payout   decimal.Decimal  `json:"payout"`
	Hands    []HandSettlement `json:"hands"`
	ClosedAt time.Time        `json:"closedAt"`
}

// SettledBet is the archived form of a closed bet.
type SettledBet struct {
	Bet      ActiveBet        `json:"bet"`
	Payout   decimal.Decimal  `json:"payout"`
	Profit   decimal.Decimal  `json:"profit"`
	Hands    []HandSettlement `json:"hands"`
	ClosedAt time.Time        `json:"closedAt"`
}
