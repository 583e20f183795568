package engine

import (
	"context"

	"github.com/lox/blackjack/internal/game"
)

// Result tells WithActiveGame whether an action changed the round.
type Result struct {
	state   *game.GameState
	mutated bool
	abort   func(ctx context.Context) error
}

// Mutated reports a changed round that must be processed and persisted.
func Mutated(g *game.GameState) Result {
	return Result{state: g, mutated: true}
}

// NoOp reports that nothing changed; the loaded round is returned as is.
func NoOp() Result {
	return Result{}
}

// OnAbort registers a compensation that undoes the action's external side
// effects. It runs only if the mutated round cannot be processed or
// persisted.
func (r Result) OnAbort(fn func(ctx context.Context) error) Result {
	r.abort = fn
	return r
}

// Action runs against a loaded round while its lock is held.
type Action func(ctx context.Context, g *game.GameState) (Result, error)
