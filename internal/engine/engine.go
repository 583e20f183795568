// Package engine runs blackjack rounds against external collaborators.
//
// Every mutation happens inside WithActiveGame, which holds the round's
// lock for the whole read, modify, persist and (when the round finishes)
// settle cycle. Lock acquisition never waits: a second concurrent action on
// the same round fails at once with ErrMutex.
//
// Live hands move money through the Ledger and Bets ports. Demo hands, those
// without a wager, never touch either.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/gameid"
	"github.com/lox/blackjack/internal/payout"
	"github.com/lox/blackjack/internal/storage"
)

const (
	DefaultLockTTL   = 30 * time.Second
	DefaultLockScope = "blackjack"
	DefaultMaxSeats  = 7

	tracerName = "github.com/lox/blackjack/internal/engine"
)

// Option configures an Engine.
type Option func(*Engine)

// WithRules sets the payout rates and pay tables.
func WithRules(r payout.Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithClock sets the clock used for timestamps.
func WithClock(c quartz.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLockTTL sets how long a round lock lives without release.
func WithLockTTL(d time.Duration) Option {
	return func(e *Engine) { e.lockTTL = d }
}

// WithLockScope sets the namespace round locks are taken in.
func WithLockScope(scope string) Option {
	return func(e *Engine) { e.lockScope = scope }
}

// WithMaxSeats bounds the number of player seats per round.
func WithMaxSeats(n int) Option {
	return func(e *Engine) { e.maxSeats = n }
}

// WithShoeSource replaces the provably-fair shoe.
func WithShoeSource(s ShoeSource) Option {
	return func(e *Engine) { e.shoes = s }
}

// WithTracerProvider sets the tracer provider; the global one is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// WithIDGenerator replaces the game id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// Engine coordinates rounds, locks, stores and money movement.
type Engine struct {
	games   GameStore
	history HistoryStore
	locker  Locker
	users   Users
	ledger  Ledger
	bets    Bets

	shoes     ShoeSource
	rules     payout.Rules
	clock     quartz.Clock
	logger    zerolog.Logger
	tracer    trace.Tracer
	newID     func() string
	lockTTL   time.Duration
	lockScope string
	maxSeats  int
}

// New builds an engine. Every collaborator in deps is required.
func New(deps Deps, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	switch {
	case deps.Games == nil:
		return nil, errors.New("engine: game store is required")
	case deps.History == nil:
		return nil, errors.New("engine: history store is required")
	case deps.Locker == nil:
		return nil, errors.New("engine: locker is required")
	case deps.Users == nil, deps.Ledger == nil, deps.Bets == nil:
		return nil, errors.New("engine: users, ledger and bets are required")
	}

	e := &Engine{
		games:     deps.Games,
		history:   deps.History,
		locker:    deps.Locker,
		users:     deps.Users,
		ledger:    deps.Ledger,
		bets:      deps.Bets,
		shoes:     deck.NewProvableShoe(deck.DefaultDecks),
		rules:     payout.DefaultRules(),
		clock:     quartz.NewReal(),
		logger:    logger.With().Str("component", "engine").Logger(),
		tracer:    otel.Tracer(tracerName),
		newID:     gameid.Generate,
		lockTTL:   DefaultLockTTL,
		lockScope: DefaultLockScope,
		maxSeats:  DefaultMaxSeats,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.lockTTL <= 0 {
		return nil, fmt.Errorf("engine: lock ttl must be positive, got %s", e.lockTTL)
	}
	if e.maxSeats <= 0 {
		return nil, fmt.Errorf("engine: max seats must be positive, got %d", e.maxSeats)
	}
	return e, nil
}

// Rules returns the payout rules in use.
func (e *Engine) Rules() payout.Rules {
	return e.rules
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// Game loads a round without locking it.
func (e *Engine) Game(ctx context.Context, gameID string) (*game.GameState, error) {
	g, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, e.wrap(classify(err), gameID, err)
	}
	return g, nil
}

func (e *Engine) loadGame(ctx context.Context, gameID string) (*game.GameState, error) {
	g, err := e.games.GetGame(ctx, gameID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
		}
		return nil, fmt.Errorf("load game: %w", err)
	}
	return g, nil
}

// cursor positions the round's shoe after the last card dealt.
func (e *Engine) cursor(g *game.GameState) (*deck.Cursor, error) {
	cards, err := e.shoes.Shoe(g.Hash)
	if err != nil {
		return nil, fmt.Errorf("build shoe: %w", err)
	}
	return deck.NewCursor(cards, game.NextShoeIndex(g)), nil
}

// WithActiveGame locks the round, loads it and runs action. A Mutated
// result is post-processed and persisted, and a round that completes is
// settled before the lock is released. Failures are logged here once.
func (e *Engine) WithActiveGame(ctx context.Context, gameID string, action Action) (*game.GameState, error) {
	ctx, span := e.tracer.Start(ctx, "engine.WithActiveGame", trace.WithAttributes(
		attribute.String("game.id", gameID),
		attribute.String("lock.scope", e.lockScope),
	))
	defer span.End()

	logger := e.logger.With().Str("game_id", gameID).Str("scope", e.lockScope).Logger()
	g, err := e.withActiveGame(ctx, gameID, action, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logFailure(logger, err)
		return g, err
	}
	span.SetAttributes(attribute.String("game.status", string(g.Status)))
	return g, nil
}

func (e *Engine) withActiveGame(ctx context.Context, gameID string, action Action, logger zerolog.Logger) (*game.GameState, error) {
	token, ok, err := e.locker.TryAcquire(ctx, gameID, e.lockScope, e.lockTTL)
	if err != nil {
		return nil, e.wrap(KindConcurrency, gameID, fmt.Errorf("acquire lock: %w", err))
	}
	if !ok {
		return nil, e.wrap(KindConcurrency, gameID, ErrMutex)
	}
	defer func() {
		if err := e.locker.Release(context.WithoutCancel(ctx), gameID, e.lockScope, token); err != nil {
			logger.Warn().Err(err).Msg("Failed to release game lock")
		}
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Game action panicked")
			panic(r)
		}
	}()

	g, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, e.wrap(classify(err), gameID, err)
	}

	res, err := action(ctx, g)
	if err != nil {
		return nil, e.wrap(classify(err), gameID, err)
	}
	if !res.mutated {
		return g, nil
	}
	if res.state != nil {
		g = res.state
	}

	if err := e.postActionProcess(g); err != nil {
		return nil, e.abort(ctx, gameID, res, e.wrap(KindInvariant, gameID, err))
	}
	if err := e.games.UpsertGame(ctx, g); err != nil {
		return nil, e.abort(ctx, gameID, res, e.wrap(KindInvariant, gameID, fmt.Errorf("persist game: %w", err)))
	}
	logger.Debug().Str("status", string(g.Status)).Msg("Game persisted")

	// Seat failures are logged by closeout and do not fail the action that
	// completed the round.
	if g.Status == game.StatusComplete {
		if _, err := e.closeout(ctx, g, logger); err != nil {
			return g, err
		}
	}
	return g, nil
}

// abort runs the result's compensation after a failed process or persist.
// The stored round is untouched, so undoing external effects restores the
// state from before the action.
func (e *Engine) abort(ctx context.Context, gameID string, res Result, cause error) error {
	if res.abort == nil {
		return cause
	}
	if err := res.abort(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(cause, e.wrap(KindSettlement, gameID, fmt.Errorf("%w: compensation failed: %w", ErrSettlementInconsistency, err)))
	}
	return cause
}

// postActionProcess plays the dealer when due, resolves side bets and
// updates the round status.
func (e *Engine) postActionProcess(g *game.GameState) error {
	if g.Status != game.StatusActive {
		return nil
	}
	cur, err := e.cursor(g)
	if err != nil {
		return err
	}
	return game.PostActionProcess(g, cur, e.now())
}

func (e *Engine) logFailure(logger zerolog.Logger, err error) {
	kind, _ := KindOf(err)
	var ev *zerolog.Event
	switch kind {
	case KindSettlement, KindInvariant, KindAggregate:
		ev = logger.Error()
	default:
		ev = logger.Warn()
	}
	ev.Err(err).Str("kind", string(kind)).Msg("Game action failed")
}
