package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/account"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/history"
)

// CloseoutGame settles a completed round: every live seat is paid
// concurrently, the round is archived and, once archived, removed from the
// active store. Seat failures are logged and do not stop the other seats
// or archival; they are returned joined with any archival failure. Callers
// must hold the round's lock; WithActiveGame does this for rounds that
// complete under it.
func (e *Engine) CloseoutGame(ctx context.Context, g *game.GameState) error {
	logger := e.logger.With().Str("game_id", g.ID).Str("scope", e.lockScope).Logger()
	seatErr, err := e.closeout(ctx, g, logger)
	if err != nil {
		e.logFailure(logger, err)
	}
	return errors.Join(seatErr, err)
}

// closeout returns seat failures, already logged, separately from the
// failures that stop archival.
func (e *Engine) closeout(ctx context.Context, g *game.GameState, logger zerolog.Logger) (seatErr, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.CloseoutGame", trace.WithAttributes(attribute.String("game.id", g.ID)))
	defer span.End()

	if g.Status != game.StatusComplete {
		return nil, e.wrap(KindValidation, g.ID, fmt.Errorf("%w: %s", ErrGameNotComplete, g.Status))
	}

	game.SetHoleCardHidden(g, false)
	game.RecomputeAll(&g.Players)

	var (
		mu     sync.Mutex
		failed []error
		eg     errgroup.Group
	)
	for i := range g.Players.Players {
		seat := &g.Players.Players[i]
		if !seat.IsLive() {
			continue
		}
		eg.Go(func() error {
			if err := e.closeOutSeat(ctx, g, seat); err != nil {
				mu.Lock()
				failed = append(failed, fmt.Errorf("seat %d (%s): %w", i, seat.PlayerID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()

	if len(failed) > 0 {
		seatErr = e.wrap(KindAggregate, g.ID, &AggregateError{Errors: failed})
		logger.Error().Err(seatErr).Int("failed_seats", len(failed)).Msg("Seat settlement failed")
		span.RecordError(seatErr)
	}

	rec, err := history.NewRecord(g, e.rules, e.now())
	if err == nil {
		err = e.history.RecordHistory(ctx, rec)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return seatErr, e.wrap(KindSettlement, g.ID, fmt.Errorf("archive game: %w", err))
	}
	if err := e.games.DeleteGame(ctx, g.ID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return seatErr, e.wrap(KindInvariant, g.ID, fmt.Errorf("delete archived game: %w", err))
	}

	logger.Info().
		Str("total_wager", rec.TotalWager.String()).
		Str("total_payout", rec.TotalPayout.String()).
		Msg("Game closed out")
	if seatErr != nil {
		span.SetStatus(codes.Error, seatErr.Error())
	}
	return seatErr, nil
}

// closeOutSeat pays one live seat and closes its active bet.
func (e *Engine) closeOutSeat(ctx context.Context, g *game.GameState, seat *game.PlayerSeat) error {
	dealer := g.Players.DealerHand()
	if dealer.Status == nil {
		return ErrDealerStatusMissing
	}
	bet, err := e.bets.GetActiveBet(ctx, seat.PlayerID, g.ID)
	if err != nil {
		return err
	}
	if !bet.Usable() {
		return fmt.Errorf("%w: bet %s has no seat or hand wagers", ErrNoActiveBet, bet.ID)
	}

	final := account.FinalBet{Payout: decimal.Zero, ClosedAt: e.now()}
	for i := range seat.Hands {
		h := &seat.Hands[i]
		if !h.IsLive() {
			continue
		}
		res, err := e.rules.Hand(h, dealer.Status)
		if err != nil {
			return err
		}
		final.Payout = final.Payout.Add(res.Total)
		final.Hands = append(final.Hands, account.HandSettlement{
			HandIndex: h.HandIndex,
			Outcome:   res.Outcome,
			Payout:    res.Total,
		})
	}

	if _, err := e.bets.PrepareAndCloseoutActiveBet(ctx, seat.PlayerID, bet.ID, final); err != nil {
		return &Error{Kind: KindSettlement, GameID: g.ID, Scope: e.lockScope, Err: fmt.Errorf("close bet %s: %w", bet.ID, err)}
	}
	return nil
}
