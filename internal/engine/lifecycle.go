package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/account"
	"github.com/lox/blackjack/internal/game"
)

// CreateGame opens a pending round seated by playerID. An empty seed is
// replaced with a random one; the shoe hash commits to it before any card
// is dealt.
func (e *Engine) CreateGame(ctx context.Context, playerID, seed string) (*game.GameState, error) {
	if playerID == "" || playerID == game.DealerID {
		err := e.wrap(KindValidation, "", fmt.Errorf("%w: invalid player id %q", ErrActionNotAllowed, playerID))
		e.logFailure(e.logger, err)
		return nil, err
	}
	if seed == "" {
		seed = uuid.NewString()
	}

	id := e.newID()
	exists, err := e.games.GameExists(ctx, id, "")
	if err == nil && exists {
		err = fmt.Errorf("game id %s already in use", id)
	}
	if err != nil {
		err = e.wrap(KindInvariant, id, err)
		e.logFailure(e.logger, err)
		return nil, err
	}

	g := game.NewGameState(id, seed, e.shoes.Commit(seed, id), playerID, e.now())
	if err := e.games.UpsertGame(ctx, g); err != nil {
		err = e.wrap(KindInvariant, id, fmt.Errorf("persist game: %w", err))
		e.logFailure(e.logger, err)
		return nil, err
	}
	e.logger.Info().Str("game_id", id).Str("player_id", playerID).Str("hash", g.Hash).Msg("Game created")
	return g, nil
}

// JoinGame seats a player in a pending round. Joining twice is a no-op.
func (e *Engine) JoinGame(ctx context.Context, gameID, playerID string) (*game.GameState, error) {
	return e.WithActiveGame(ctx, gameID, func(ctx context.Context, g *game.GameState) (Result, error) {
		if g.Status != game.StatusPending {
			return NoOp(), fmt.Errorf("%w: %s", ErrGameNotPending, g.Status)
		}
		if playerID == "" || playerID == game.DealerID {
			return NoOp(), fmt.Errorf("%w: invalid player id %q", ErrActionNotAllowed, playerID)
		}
		if g.Players.SeatIndex(playerID) >= 0 {
			return NoOp(), nil
		}
		if len(g.Players.Players) >= e.maxSeats {
			return NoOp(), fmt.Errorf("%w: %d seats", ErrTableFull, e.maxSeats)
		}
		g.Players.Players = append(g.Players.Players, game.PlayerSeat{PlayerID: playerID})
		g.UpdatedAt = e.now()
		e.logger.Info().Str("game_id", gameID).Str("player_id", playerID).Msg("Player joined")
		return Mutated(g), nil
	})
}

// placement is a bet opened for one seat while starting a round.
type placement struct {
	seat   int
	userID string
	wager  *game.Wager
	bet    *account.ActiveBet
	err    error
}

// StartGame takes every live seat's stake, opens its active bet and deals.
// Stakes are placed concurrently; if any placement fails every successful
// one is refunded and cancelled and the round stays pending. Seats without
// a wager play as demo hands.
func (e *Engine) StartGame(ctx context.Context, gameID string, wagers map[string]*game.Wager) (*game.GameState, error) {
	return e.WithActiveGame(ctx, gameID, func(ctx context.Context, g *game.GameState) (Result, error) {
		ctx, span := e.tracer.Start(ctx, "engine.StartGame", trace.WithAttributes(attribute.Int("wagers", len(wagers))))
		defer span.End()

		if g.Status != game.StatusPending {
			return NoOp(), fmt.Errorf("%w: %s", ErrGameNotPending, g.Status)
		}

		placements, err := e.planPlacements(g, wagers)
		if err != nil {
			return NoOp(), err
		}
		if err := e.placeBets(ctx, g, placements); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return NoOp(), err
		}

		dealt := make(map[string]*game.Wager, len(placements))
		for _, p := range placements {
			g.Players.Players[p.seat].BetID = p.bet.ID
			dealt[p.userID] = p.wager
		}
		cur, err := e.cursor(g)
		if err == nil {
			err = game.Deal(g, dealt, cur, e.now())
		}
		if err != nil {
			return NoOp(), errors.Join(err, e.refund(ctx, placements))
		}
		g.UpdatedAt = e.now()
		e.logger.Info().Str("game_id", gameID).Int("seats", len(g.Players.Players)).Int("live", len(placements)).Msg("Game started")
		return Mutated(g).OnAbort(func(ctx context.Context) error {
			return e.refund(ctx, placements)
		}), nil
	})
}

func (e *Engine) planPlacements(g *game.GameState, wagers map[string]*game.Wager) ([]*placement, error) {
	var placements []*placement
	for playerID, w := range wagers {
		if w == nil {
			continue
		}
		idx := g.Players.SeatIndex(playerID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", game.ErrSeatNotFound, playerID)
		}
		if err := validateStartingWager(playerID, w); err != nil {
			return nil, err
		}
		cp := *w
		cp.Type = game.WagerMain
		cp.BalanceType = account.BalanceType(w.BalanceType)
		cp.Sides = slices.Clone(w.Sides)
		placements = append(placements, &placement{seat: idx, userID: playerID, wager: &cp})
	}
	slices.SortFunc(placements, func(a, b *placement) int { return a.seat - b.seat })
	return placements, nil
}

func (e *Engine) placeBets(ctx context.Context, g *game.GameState, placements []*placement) error {
	var eg errgroup.Group
	eg.SetLimit(e.maxSeats)
	for _, p := range placements {
		eg.Go(func() error {
			p.bet, p.err = e.placeBet(ctx, g, p)
			return nil
		})
	}
	_ = eg.Wait()

	var failed []error
	for _, p := range placements {
		if p.err != nil {
			failed = append(failed, fmt.Errorf("seat %d (%s): %w", p.seat, p.userID, p.err))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	if err := e.refund(ctx, placements); err != nil {
		failed = append(failed, err)
	}
	return e.wrap(KindAggregate, g.ID, &AggregateError{Errors: failed})
}

func (e *Engine) placeBet(ctx context.Context, g *game.GameState, p *placement) (*account.ActiveBet, error) {
	total := stake(p.wager)
	before, err := e.checkFunds(ctx, p.userID, p.wager.BalanceType, total)
	if err != nil {
		return nil, err
	}
	if err := e.deduct(ctx, p.userID, p.wager.BalanceType, total, before); err != nil {
		return nil, err
	}

	sides := make([]game.SideWager, len(p.wager.Sides))
	for i, s := range p.wager.Sides {
		s.Outcome = game.OutcomeUnknown
		sides[i] = s
	}
	seat := p.seat
	bet, err := e.bets.CreateActiveBet(ctx, account.ActiveBet{
		UserID:      p.userID,
		GameID:      g.ID,
		BalanceType: p.wager.BalanceType,
		SeatIndex:   &seat,
		PlayerCount: len(g.Players.Players),
		BetAmount:   total,
		HandWagers:  []account.HandWager{{HandIndex: 0, Amount: p.wager.Amount, Sides: sides}},
	})
	if err != nil {
		if _, cerr := e.ledger.CreditBalance(context.WithoutCancel(ctx), p.userID, p.wager.BalanceType, total); cerr != nil {
			return nil, fmt.Errorf("%w: open bet failed (%w) and refund failed: %w", ErrSettlementInconsistency, err, cerr)
		}
		return nil, fmt.Errorf("open bet: %w", err)
	}
	return bet, nil
}

// refund returns the stake of every opened bet and cancels it.
func (e *Engine) refund(ctx context.Context, placements []*placement) error {
	ctx = context.WithoutCancel(ctx)
	var mu sync.Mutex
	var failed []error
	var eg errgroup.Group
	for _, p := range placements {
		if p.bet == nil {
			continue
		}
		eg.Go(func() error {
			var errs []error
			if _, err := e.ledger.CreditBalance(ctx, p.userID, p.bet.BalanceType, p.bet.BetAmount); err != nil {
				errs = append(errs, fmt.Errorf("refund %s: %w", p.userID, err))
			}
			if err := e.bets.CancelActiveBet(ctx, p.userID, p.bet.ID); err != nil {
				errs = append(errs, fmt.Errorf("cancel bet %s: %w", p.bet.ID, err))
			}
			if len(errs) > 0 {
				mu.Lock()
				failed = append(failed, errs...)
				mu.Unlock()
			}
			p.bet = nil
			return nil
		})
	}
	_ = eg.Wait()
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSettlementInconsistency, &AggregateError{Errors: failed})
}
