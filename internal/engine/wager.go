package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/account"
	"github.com/lox/blackjack/internal/game"
)

// wagerChange is additional money put on an existing live hand.
type wagerChange struct {
	gameID      string
	userID      string
	balanceType string
	amount      decimal.Decimal
	delta       account.BetDelta
	insurance   bool
}

// checkFunds loads the user and returns their balance if it covers amount.
func (e *Engine) checkFunds(ctx context.Context, userID, balanceType string, amount decimal.Decimal) (decimal.Decimal, error) {
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load user %s: %w", userID, err)
	}
	balance := user.Balance(balanceType)
	if balance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, userID, balance, amount)
	}
	return balance, nil
}

// deduct takes funds from a user. A debit that does not lower the balance
// means the ledger is corrupt.
func (e *Engine) deduct(ctx context.Context, userID, balanceType string, amount, before decimal.Decimal) error {
	after, err := e.ledger.DeductFromBalance(ctx, userID, balanceType, amount)
	if err != nil {
		return fmt.Errorf("debit %s: %w", userID, err)
	}
	if !after.LessThan(before) {
		return fmt.Errorf("%w: debit of %s left %s balance at %s (was %s)", ErrSettlementInconsistency, amount, userID, after, before)
	}
	return nil
}

// placeWager moves money for an in-round wager increase. Checks that fail
// before the debit leave funds untouched. A bet update failing after the
// debit is a settlement inconsistency.
func (e *Engine) placeWager(ctx context.Context, ch wagerChange) error {
	before, err := e.checkFunds(ctx, ch.userID, ch.balanceType, ch.amount)
	if err != nil {
		return err
	}
	bet, err := e.bets.GetActiveBet(ctx, ch.userID, ch.gameID)
	if err != nil {
		if errors.Is(err, ErrNoActiveBet) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrNoActiveBet, err)
	}
	if !bet.Usable() {
		return fmt.Errorf("%w: bet %s has no seat or hand wagers", ErrNoActiveBet, bet.ID)
	}
	if ch.insurance {
		if hw, ok := bet.HandWager(ch.delta.HandIndex); ok {
			if _, placed := hw.Side(game.WagerInsurance); placed {
				return fmt.Errorf("%w: hand %d", ErrInsuranceAlreadyPlaced, ch.delta.HandIndex)
			}
		}
	}

	if err := e.deduct(ctx, ch.userID, ch.balanceType, ch.amount, before); err != nil {
		return err
	}
	if err := e.bets.UpdateActiveBetForUser(ctx, ch.userID, bet.ID, ch.delta); err != nil {
		return fmt.Errorf("%w: debited %s from %s but bet %s update failed: %w",
			ErrSettlementInconsistency, ch.amount, ch.userID, bet.ID, err)
	}

	e.logger.Info().
		Str("game_id", ch.gameID).
		Str("player_id", ch.userID).
		Int("hand_index", ch.delta.HandIndex).
		Str("amount", ch.amount.String()).
		Msg("Wager placed")
	return nil
}

// stake is the total money a starting wager puts at risk.
func stake(w *game.Wager) decimal.Decimal {
	total := w.Amount
	for _, s := range w.Sides {
		total = total.Add(s.Amount)
	}
	return total
}

// validateStartingWager rejects wagers that cannot open a round.
func validateStartingWager(playerID string, w *game.Wager) error {
	if !w.Amount.IsPositive() {
		return fmt.Errorf("%w: %s main wager %s must be positive", ErrInvalidWager, playerID, w.Amount)
	}
	seen := make(map[game.HandWagerType]bool, len(w.Sides))
	for _, s := range w.Sides {
		switch s.Type {
		case game.WagerPerfectPair, game.WagerTwentyOnePlusThree:
		default:
			return fmt.Errorf("%w: %s cannot open with a %s side wager", ErrInvalidWager, playerID, s.Type)
		}
		if seen[s.Type] {
			return fmt.Errorf("%w: %s has two %s side wagers", ErrInvalidWager, playerID, s.Type)
		}
		seen[s.Type] = true
		if !s.Amount.IsPositive() {
			return fmt.Errorf("%w: %s %s wager %s must be positive", ErrInvalidWager, playerID, s.Type, s.Amount)
		}
	}
	return nil
}
