package engine

import (
	"context"
	"fmt"

	"github.com/lox/blackjack/internal/account"
	"github.com/lox/blackjack/internal/game"
)

// Hit deals one card to a player hand.
func (e *Engine) Hit(ctx context.Context, gameID, playerID string, handIndex int) (*game.GameState, error) {
	return e.WithActiveGame(ctx, gameID, func(ctx context.Context, g *game.GameState) (Result, error) {
		cur, err := e.cursor(g)
		if err != nil {
			return NoOp(), err
		}
		if _, err := game.Hit(g, playerID, handIndex, cur, e.now()); err != nil {
			return NoOp(), err
		}
		return Mutated(g), nil
	})
}

// Stand ends play on a player hand.
func (e *Engine) Stand(ctx context.Context, gameID, playerID string, handIndex int) (*game.GameState, error) {
	return e.WithActiveGame(ctx, gameID, func(ctx context.Context, g *game.GameState) (Result, error) {
		if _, err := game.Stand(g, playerID, handIndex, e.now()); err != nil {
			return NoOp(), err
		}
		return Mutated(g), nil
	})
}

// DoubleDown doubles a live hand's main wager, deals one card and stands.
func (e *Engine) DoubleDown(ctx context.Context, gameID, playerID string, handIndex int) (*game.GameState, error) {
	return e.WithActiveGame(ctx, gameID, func(ctx context.Context, g *game.GameState) (Result, error) {
		cur, err := e.cursor(g)
		if err != nil {
			return NoOp(), err
		}
		hand, err := game.DoubleDown(g, playerID, handIndex, cur, e.now())
		if err != nil {
			return NoOp(), err
		}
		if !hand.IsLive() {
			return Mutated(g), nil
		}

		amount := hand.Wager.Amount
		hand.Wager.Amount = amount.Add(amount)
		err = e.placeWager(ctx, wagerChange{
			gameID:      g.ID,
			userID:      playerID,
			balanceType: account.BalanceType(hand.Wager.BalanceType),
			amount:      amount,
			delta: account.BetDelta{
				BetAmount: amount,
				HandIndex: hand.HandIndex,
				AddAmount: amount,
			},
		})
		if err != nil {
			return NoOp(), err
		}
		return Mutated(g), nil
	})
}

// Insure answers the insurance offer. Accepting on a live hand stakes
// the main wager times the insurance rate as a side wager.
func (e *Engine) Insure(ctx context.Context, gameID, playerID string, handIndex int, accept bool) (*game.GameState, error) {
	return e.WithActiveGame(ctx, gameID, func(ctx context.Context, g *game.GameState) (Result, error) {
		hand, err := game.Insure(g, playerID, handIndex, accept, e.now())
		if err != nil {
			return NoOp(), err
		}
		if !accept || !hand.IsLive() {
			return Mutated(g), nil
		}
		if _, placed := hand.Wager.Side(game.WagerInsurance); placed {
			return NoOp(), fmt.Errorf("%w: hand %d", ErrInsuranceAlreadyPlaced, handIndex)
		}

		side := game.SideWager{
			Type:    game.WagerInsurance,
			Amount:  e.rules.InsuranceCost(hand.Wager.Amount),
			Outcome: game.OutcomeUnknown,
		}
		hand.Wager.Sides = append(hand.Wager.Sides, side)
		err = e.placeWager(ctx, wagerChange{
			gameID:      g.ID,
			userID:      playerID,
			balanceType: account.BalanceType(hand.Wager.BalanceType),
			amount:      side.Amount,
			insurance:   true,
			delta: account.BetDelta{
				BetAmount:   side.Amount,
				HandIndex:   hand.HandIndex,
				AppendSides: []game.SideWager{side},
			},
		})
		if err != nil {
			return NoOp(), err
		}
		return Mutated(g), nil
	})
}

// Split splits a pair into two hands. On a live hand the second hand
// carries a copy of the main wager, paid for by a fresh debit.
func (e *Engine) Split(ctx context.Context, gameID, playerID string, handIndex int) (*game.GameState, error) {
	return e.WithActiveGame(ctx, gameID, func(ctx context.Context, g *game.GameState) (Result, error) {
		cur, err := e.cursor(g)
		if err != nil {
			return NoOp(), err
		}
		res, err := game.Split(g, playerID, handIndex, cur, e.now())
		if err != nil {
			return NoOp(), err
		}
		if !res.Second.IsLive() {
			return Mutated(g), nil
		}

		amount := res.Second.Wager.Amount
		err = e.placeWager(ctx, wagerChange{
			gameID:      g.ID,
			userID:      playerID,
			balanceType: account.BalanceType(res.Second.Wager.BalanceType),
			amount:      amount,
			delta: account.BetDelta{
				BetAmount: amount,
				HandIndex: res.Second.HandIndex,
				InsertHand: &account.HandWager{
					HandIndex: res.Second.HandIndex,
					Amount:    amount,
					Sides:     []game.SideWager{},
				},
			},
		})
		if err != nil {
			return NoOp(), err
		}
		return Mutated(g), nil
	})
}

// CommandType names a player action.
type CommandType string

const (
	CommandHit        CommandType = "hit"
	CommandStand      CommandType = "stand"
	CommandDoubleDown CommandType = "double_down"
	CommandInsure     CommandType = "insure"
	CommandSplit      CommandType = "split"
)

// Command is a serialised player action.
type Command struct {
	Type      CommandType `json:"type"`
	PlayerID  string      `json:"playerId"`
	HandIndex int         `json:"handIndex"`
	Accept    bool        `json:"accept,omitempty"`
}

// Apply dispatches a command to its handler.
func (e *Engine) Apply(ctx context.Context, gameID string, cmd Command) (*game.GameState, error) {
	switch cmd.Type {
	case CommandHit:
		return e.Hit(ctx, gameID, cmd.PlayerID, cmd.HandIndex)
	case CommandStand:
		return e.Stand(ctx, gameID, cmd.PlayerID, cmd.HandIndex)
	case CommandDoubleDown:
		return e.DoubleDown(ctx, gameID, cmd.PlayerID, cmd.HandIndex)
	case CommandInsure:
		return e.Insure(ctx, gameID, cmd.PlayerID, cmd.HandIndex, cmd.Accept)
	case CommandSplit:
		return e.Split(ctx, gameID, cmd.PlayerID, cmd.HandIndex)
	default:
		return nil, e.wrap(KindValidation, gameID, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type))
	}
}
