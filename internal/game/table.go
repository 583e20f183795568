package game

import (
	"encoding/json"
	"fmt"
)

// PlayerSeat is a non-dealer seat. BetID links live hands to the external
// active bet.
type PlayerSeat struct {
	PlayerID string       `json:"playerId"`
	BetID    string       `json:"betId,omitempty"`
	Hands    []PlayerHand `json:"hands"`
}

// IsLive reports whether any hand in the seat carries a wager.
func (s *PlayerSeat) IsLive() bool {
	for i := range s.Hands {
		if s.Hands[i].IsLive() {
			return true
		}
	}
	return false
}

// Hand returns the hand with the given index.
func (s *PlayerSeat) Hand(handIndex int) (*PlayerHand, error) {
	for i := range s.Hands {
		if s.Hands[i].HandIndex == handIndex {
			return &s.Hands[i], nil
		}
	}
	return nil, fmt.Errorf("%w: player %s hand %d", ErrHandNotFound, s.PlayerID, handIndex)
}

// DealerSeat holds the dealer's single hand. It never carries a wager.
type DealerSeat struct {
	Hand Hand
}

// Table is the ordered list of player seats plus the dealer seat. On the
// wire the dealer seat is always the last element of the list.
type Table struct {
	Players []PlayerSeat
	Dealer  DealerSeat
}

// DealerHand returns the dealer's hand.
func (t *Table) DealerHand() *Hand {
	return &t.Dealer.Hand
}

// Seat returns the seat for a player.
func (t *Table) Seat(playerID string) (*PlayerSeat, error) {
	if playerID == DealerID {
		return nil, fmt.Errorf("%w: %s is reserved", ErrSeatNotFound, DealerID)
	}
	for i := range t.Players {
		if t.Players[i].PlayerID == playerID {
			return &t.Players[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSeatNotFound, playerID)
}

// SeatIndex returns the position of a player's seat.
func (t *Table) SeatIndex(playerID string) int {
	for i := range t.Players {
		if t.Players[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// EachPlayerHand calls fn for every player hand in seat order.
func (t *Table) EachPlayerHand(fn func(seat *PlayerSeat, hand *PlayerHand)) {
	for i := range t.Players {
		seat := &t.Players[i]
		for j := range seat.Hands {
			fn(seat, &seat.Hands[j])
		}
	}
}

type seatDoc struct {
	PlayerID string       `json:"playerId"`
	BetID    string       `json:"betId,omitempty"`
	Hands    []PlayerHand `json:"hands"`
}

// MarshalJSON encodes the table as an ordered seat list, dealer last.
func (t Table) MarshalJSON() ([]byte, error) {
	docs := make([]seatDoc, 0, len(t.Players)+1)
	for _, p := range t.Players {
		hands := p.Hands
		if hands == nil {
			hands = []PlayerHand{}
		}
		docs = append(docs, seatDoc{PlayerID: p.PlayerID, BetID: p.BetID, Hands: hands})
	}
	dealerHands := []PlayerHand{}
	if len(t.Dealer.Hand.Cards) > 0 || len(t.Dealer.Hand.Actions) > 0 || t.Dealer.Hand.Status != nil {
		dealerHands = append(dealerHands, PlayerHand{Hand: t.Dealer.Hand})
	}
	docs = append(docs, seatDoc{PlayerID: DealerID, Hands: dealerHands})
	return json.Marshal(docs)
}

// UnmarshalJSON decodes an ordered seat list, requiring exactly one dealer
// seat in last position.
func (t *Table) UnmarshalJSON(data []byte) error {
	var docs []seatDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no seats", ErrInvalidTable)
	}
	last := docs[len(docs)-1]
	if last.PlayerID != DealerID {
		return fmt.Errorf("%w: dealer seat must be last", ErrInvalidTable)
	}
	if len(last.Hands) > 1 {
		return fmt.Errorf("%w: dealer has %d hands", ErrInvalidTable, len(last.Hands))
	}

	players := make([]PlayerSeat, 0, len(docs)-1)
	for _, d := range docs[:len(docs)-1] {
		if d.PlayerID == DealerID {
			return fmt.Errorf("%w: duplicate dealer seat", ErrInvalidTable)
		}
		players = append(players, PlayerSeat(d))
	}

	var dealer DealerSeat
	if len(last.Hands) == 1 {
		if last.Hands[0].Wager != nil {
			return fmt.Errorf("%w: dealer hand carries a wager", ErrInvalidTable)
		}
		dealer.Hand = last.Hands[0].Hand
	}

	t.Players = players
	t.Dealer = dealer
	return nil
}
