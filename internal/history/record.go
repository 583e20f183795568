// Package history builds and exports archived records of completed rounds.
package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/payout"
)

// NewRecord summarises a completed round. Payouts are recomputed from the
// final state with rules, so the record matches what seats were paid.
func NewRecord(g *game.GameState, rules payout.Rules, completedAt time.Time) (Record, error) {
	if g.Status != game.StatusComplete {
		return Record{}, fmt.Errorf("history: game %s is %s", g.ID, g.Status)
	}

	dealer := g.Players.DealerHand()
	rec := Record{
		GameID:      g.ID,
		Seed:        g.Seed,
		Hash:        g.Hash,
		CreatedAt:   g.CreatedAt,
		CompletedAt: completedAt,
		Dealer:      handRecord("d", &game.PlayerHand{Hand: *dealer}),
		TotalWager:  decimal.Zero,
		TotalPayout: decimal.Zero,
		State:       g,
	}

	for i := range g.Players.Players {
		seat := &g.Players.Players[i]
		sr := SeatRecord{
			Seat:     i,
			PlayerID: seat.PlayerID,
			BetID:    seat.BetID,
			Wager:    decimal.Zero,
			Payout:   decimal.Zero,
		}
		for j := range seat.Hands {
			h := &seat.Hands[j]
			hr := handRecord(fmt.Sprintf("p%d.%d", i+1, h.HandIndex), h)
			if h.IsLive() {
				res, err := rules.Hand(h, dealer.Status)
				if err != nil {
					return Record{}, fmt.Errorf("history: seat %d hand %d: %w", i, h.HandIndex, err)
				}
				hr.Payout = res.Total
				sr.Wager = sr.Wager.Add(hr.Wager)
				for _, side := range hr.Sides {
					sr.Wager = sr.Wager.Add(side.Amount)
				}
				sr.Payout = sr.Payout.Add(res.Total)
			}
			sr.Hands = append(sr.Hands, hr)
		}
		rec.TotalWager = rec.TotalWager.Add(sr.Wager)
		rec.TotalPayout = rec.TotalPayout.Add(sr.Payout)
		rec.Seats = append(rec.Seats, sr)
	}
	return rec, nil
}

func handRecord(actor string, h *game.PlayerHand) HandRecord {
	hr := HandRecord{
		Index:  h.HandIndex,
		Cards:  make([]string, 0, len(h.Cards)),
		Wager:  decimal.Zero,
		Payout: decimal.Zero,
	}
	for _, c := range h.Cards {
		hr.Cards = append(hr.Cards, c.Code())
	}
	for _, a := range h.Actions {
		hr.Actions = append(hr.Actions, FormatAction(actor, a))
	}
	if h.Status != nil {
		hr.Value = h.Status.Value
		if h.Wager != nil || h.Status.Outcome.IsFinal() {
			hr.Outcome = string(h.Status.Outcome)
		}
	}
	if h.Wager != nil {
		hr.Wager = h.Wager.Amount
		for _, s := range h.Wager.Sides {
			hr.Sides = append(hr.Sides, SideRecord{
				Type:    string(s.Type),
				Amount:  s.Amount,
				Outcome: string(s.Outcome),
				Tier:    s.Tier,
			})
		}
	}
	return hr
}

// FormatAction renders a logged action as "<actor> <action> [#shoe...]",
// e.g. "p1.0 hit #7" or "p2.0 insurance decline".
func FormatAction(actor string, a game.Action) string {
	parts := []string{actor, string(a.Type)}
	if a.Type == game.ActionInsurance {
		if a.Accept != nil && *a.Accept {
			parts = append(parts, "accept")
		} else {
			parts = append(parts, "decline")
		}
	}
	for _, idx := range a.ShoeIndices {
		parts = append(parts, fmt.Sprintf("#%d", idx))
	}
	return strings.Join(parts, " ")
}
