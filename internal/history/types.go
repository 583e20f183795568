package history

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/game"
)

// Record is the archived form of a completed round.
type Record struct {
	GameID      string          `toml:"game" json:"gameId"`
	Seed        string          `toml:"seed" json:"seed"`
	Hash        string          `toml:"hash" json:"hash"`
	CreatedAt   time.Time       `toml:"created_at" json:"createdAt"`
	CompletedAt time.Time       `toml:"completed_at" json:"completedAt"`
	Dealer      HandRecord      `toml:"dealer" json:"dealer"`
	Seats       []SeatRecord    `toml:"seats" json:"seats"`
	TotalWager  decimal.Decimal `toml:"total_wager" json:"totalWager"`
	TotalPayout decimal.Decimal `toml:"total_payout" json:"totalPayout"`
	State       *game.GameState `toml:"-" json:"state,omitempty"`
}

// SeatRecord summarises one seat.
type SeatRecord struct {
	Seat     int             `toml:"seat" json:"seat"`
	PlayerID string          `toml:"player" json:"playerId"`
	BetID    string          `toml:"bet,omitempty" json:"betId,omitempty"`
	Wager    decimal.Decimal `toml:"wager" json:"wager"`
	Payout   decimal.Decimal `toml:"payout" json:"payout"`
	Hands    []HandRecord    `toml:"hands" json:"hands"`
}

// HandRecord is one hand's cards, action log and result.
type HandRecord struct {
	Index   int             `toml:"index" json:"index"`
	Cards   []string        `toml:"cards" json:"cards"`
	Actions []string        `toml:"actions" json:"actions"`
	Value   int             `toml:"value" json:"value"`
	Outcome string          `toml:"outcome,omitempty" json:"outcome,omitempty"`
	Wager   decimal.Decimal `toml:"wager" json:"wager"`
	Sides   []SideRecord    `toml:"sides,omitempty" json:"sides,omitempty"`
	Payout  decimal.Decimal `toml:"payout" json:"payout"`
}

// SideRecord is one side wager's result.
type SideRecord struct {
	Type    string          `toml:"type" json:"type"`
	Amount  decimal.Decimal `toml:"amount" json:"amount"`
	Outcome string          `toml:"outcome" json:"outcome"`
	Tier    string          `toml:"tier,omitempty" json:"tier,omitempty"`
}
