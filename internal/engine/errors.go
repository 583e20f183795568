package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lox/blackjack/internal/account"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/payout"
)

// Kind classifies engine failures.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindFunding     Kind = "funding"
	KindConcurrency Kind = "concurrency"
	KindInvariant   Kind = "invariant"
	KindSettlement  Kind = "settlement"
	KindNotFound    Kind = "not_found"
	KindAggregate   Kind = "aggregate"
)

var (
	ErrMutex                   = errors.New("game is locked by another action")
	ErrGameNotFound            = errors.New("game not found")
	ErrGameNotPending          = errors.New("game is not pending")
	ErrGameNotComplete         = errors.New("game is not complete")
	ErrTableFull               = errors.New("table is full")
	ErrInsuranceAlreadyPlaced  = errors.New("insurance already placed")
	ErrSettlementInconsistency = errors.New("settlement inconsistency")
	ErrInvalidWager            = errors.New("invalid wager")
	ErrUnknownCommand          = errors.New("unknown command")

	ErrUserNotFound        = account.ErrUserNotFound
	ErrInsufficientFunds   = account.ErrInsufficientFunds
	ErrNoActiveBet         = account.ErrNoActiveBet
	ErrActionNotAllowed    = game.ErrActionNotAllowed
	ErrDealerStatusMissing = payout.ErrDealerStatusMissing
	ErrUnknownOutcome      = payout.ErrUnknownOutcome
)

// Error is the engine's error type. It carries the game and lock scope the
// failure happened under.
type Error struct {
	Kind   Kind
	GameID string
	Scope  string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.GameID != "" {
		fmt.Fprintf(&b, " [game %s]", e.GameID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first engine error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// AggregateError collects independent failures, such as one per seat.
type AggregateError struct {
	Errors []error
}

func (a *AggregateError) Error() string {
	msgs := make([]string, len(a.Errors))
	for i, err := range a.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors: %s", len(a.Errors), strings.Join(msgs, "; "))
}

func (a *AggregateError) Unwrap() []error {
	return a.Errors
}

func (e *Engine) wrap(kind Kind, gameID string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Kind: kind, GameID: gameID, Scope: e.lockScope, Err: err}
}

// classify picks a kind for errors raised by collaborators.
func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrMutex):
		return KindConcurrency
	case errors.Is(err, ErrGameNotFound):
		return KindNotFound
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrNoActiveBet),
		errors.Is(err, ErrInsuranceAlreadyPlaced):
		return KindFunding
	case errors.Is(err, ErrUnknownOutcome),
		errors.Is(err, ErrDealerStatusMissing):
		return KindInvariant
	case errors.Is(err, ErrSettlementInconsistency):
		return KindSettlement
	case errors.Is(err, ErrActionNotAllowed),
		errors.Is(err, ErrGameNotPending),
		errors.Is(err, ErrGameNotComplete),
		errors.Is(err, ErrTableFull),
		errors.Is(err, ErrInvalidWager),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, game.ErrSeatNotFound),
		errors.Is(err, game.ErrHandNotFound):
		return KindValidation
	default:
		return KindInvariant
	}
}
