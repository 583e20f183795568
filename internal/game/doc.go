// Package game implements the blackjack rules for a multiplayer table.
//
// The main type is GameState, the persisted document for one round: the
// ordered table of player seats, the dealer seat, the shoe commitment and the
// round status. Everything in this package is a pure function of a GameState
// and a deck.Cursor positioned on the round's shoe, which keeps a round
// replayable from its hash and action logs.
//
// # Hand status
//
// HandStatus is derived, never authored. ComputeStatus rebuilds it from the
// hand's cards and action log against the dealer hand, carrying forward the
// sticky fields (SplitFrom, WasDoubled) and any final Outcome from the
// previous snapshot.
//
// # Actions
//
// Hit, Stand, DoubleDown, Insure and Split validate the acting hand against
// its status and the game status, mutate the hand, append an Action and
// recompute the status. Money never moves here; the engine package applies
// wager side effects around these mutators.
//
// # Round flow
//
//	cur := deck.NewCursor(shoe, game.NextShoeIndex(g))
//	if err := game.Deal(g, wagers, cur, now); err != nil { ... }
//	game.PostActionProcess(g, cur, now)
//	_, err := game.Hit(g, "alice", 0, cur, now)
//	game.PostActionProcess(g, cur, now)
//
// PostActionProcess runs the dealer automaton once no player hand can act,
// resolves side bets and moves the round to complete.
package game
