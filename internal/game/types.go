package game

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
)

// DealerID is the reserved player id of the dealer seat.
const DealerID = "dealer"

// GameStatus is the lifecycle state of a round.
type GameStatus string

const (
	StatusPending  GameStatus = "pending"
	StatusActive   GameStatus = "active"
	StatusComplete GameStatus = "complete"
)

// HandActionType enumerates entries in a hand's action log.
type HandActionType string

const (
	ActionDeal       HandActionType = "deal"
	ActionHit        HandActionType = "hit"
	ActionStand      HandActionType = "stand"
	ActionDoubleDown HandActionType = "double_down"
	ActionSplit      HandActionType = "split"
	ActionInsurance  HandActionType = "insurance"
)

// HandWagerType enumerates main and side wagers.
type HandWagerType string

const (
	WagerMain               HandWagerType = "main"
	WagerPerfectPair        HandWagerType = "perfect_pair"
	WagerTwentyOnePlusThree HandWagerType = "twenty_one_plus_three"
	WagerInsurance          HandWagerType = "insurance"
)

// WagerOutcomeType is the result of a hand or side wager.
type WagerOutcomeType string

const (
	OutcomeUnknown WagerOutcomeType = "unknown"
	OutcomeWin     WagerOutcomeType = "win"
	OutcomeLoss    WagerOutcomeType = "loss"
	OutcomePush    WagerOutcomeType = "push"
)

// IsFinal reports whether the outcome has been decided.
func (o WagerOutcomeType) IsFinal() bool {
	return o == OutcomeWin || o == OutcomeLoss || o == OutcomePush
}

// Action is one entry in a hand's action log.
type Action struct {
	Type        HandActionType `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	ShoeIndices []int          `json:"shoeIndices,omitempty"`
	Accept      *bool          `json:"accept,omitempty"`
}

// SideWager is an auxiliary bet attached to a main wager. Tier records the
// classified hand the outcome was resolved from.
type SideWager struct {
	Type    HandWagerType    `json:"type"`
	Amount  decimal.Decimal  `json:"amount"`
	Outcome WagerOutcomeType `json:"outcome"`
	Tier    string           `json:"tier,omitempty"`
}

// Wager is the money riding on a player hand.
type Wager struct {
	Type        HandWagerType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	BalanceType string          `json:"balanceType,omitempty"`
	Sides       []SideWager     `json:"sides"`
}

// Side returns the side wager of the given type, if any.
func (w *Wager) Side(t HandWagerType) (*SideWager, bool) {
	if w == nil {
		return nil, false
	}
	for i := range w.Sides {
		if w.Sides[i].Type == t {
			return &w.Sides[i], true
		}
	}
	return nil, false
}

// HandStatus is the derived snapshot of a hand. SplitFrom and WasDoubled are
// carried forward across recomputes; Outcome never leaves a final value.
type HandStatus struct {
	Value         int              `json:"value"`
	IsHard        bool             `json:"isHard"`
	IsSoft        bool             `json:"isSoft"`
	IsBust        bool             `json:"isBust"`
	IsBlackjack   bool             `json:"isBlackjack"`
	CanHit        bool             `json:"canHit"`
	CanStand      bool             `json:"canStand"`
	CanInsure     bool             `json:"canInsure"`
	CanSplit      bool             `json:"canSplit"`
	CanDoubleDown bool             `json:"canDoubleDown"`
	SplitFrom     *int             `json:"splitFrom,omitempty"`
	WasDoubled    bool             `json:"wasDoubled"`
	Outcome       WagerOutcomeType `json:"outcome"`
}

// Playable reports whether the hand can still act.
func (s *HandStatus) Playable() bool {
	return s != nil && (s.CanHit || s.CanStand)
}

// Hand is a sequence of dealt cards and the actions that produced them.
type Hand struct {
	Cards     []deck.Card `json:"cards"`
	Actions   []Action    `json:"actions"`
	HandIndex int         `json:"handIndex"`
	Status    *HandStatus `json:"status,omitempty"`
}

// HasAction reports whether the action log contains an action of type t.
func (h *Hand) HasAction(t HandActionType) bool {
	for _, a := range h.Actions {
		if a.Type == t {
			return true
		}
	}
	return false
}

// OnlyDealt reports whether every logged action is a deal.
func (h *Hand) OnlyDealt() bool {
	for _, a := range h.Actions {
		if a.Type != ActionDeal {
			return false
		}
	}
	return true
}

// PlayerHand is a hand with an optional wager. A nil wager marks a demo hand.
type PlayerHand struct {
	Hand
	Wager *Wager `json:"wager,omitempty"`
}

// IsLive reports whether the hand carries a real-money wager.
func (h *PlayerHand) IsLive() bool {
	return h.Wager != nil
}

// GameState is the persisted document for one round.
type GameState struct {
	ID        string     `json:"id"`
	Seed      string     `json:"seed"`
	Hash      string     `json:"hash"`
	Status    GameStatus `json:"status"`
	Players   Table      `json:"players"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewGameState creates a pending round with the creator's seat.
func NewGameState(id, seed, hash, creatorID string, now time.Time) *GameState {
	return &GameState{
		ID:     id,
		Seed:   seed,
		Hash:   hash,
		Status: StatusPending,
		Players: Table{
			Players: []PlayerSeat{{PlayerID: creatorID}},
			Dealer:  DealerSeat{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NextShoeIndex returns the shoe position after the last card dealt in the
// round, derived from the action logs.
func NextShoeIndex(g *GameState) int {
	next := 0
	visit := func(h *Hand) {
		for _, a := range h.Actions {
			for _, idx := range a.ShoeIndices {
				if idx+1 > next {
					next = idx + 1
				}
			}
		}
	}
	for i := range g.Players.Players {
		for j := range g.Players.Players[i].Hands {
			visit(&g.Players.Players[i].Hands[j].Hand)
		}
	}
	visit(&g.Players.Dealer.Hand)
	return next
}
