// Package storagetest holds the behaviour every game store must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/history"
	"github.com/lox/blackjack/internal/payout"
	"github.com/lox/blackjack/internal/storage"
)

// Store is the surface exercised by Run.
type Store interface {
	GetGame(ctx context.Context, id string) (*game.GameState, error)
	UpsertGame(ctx context.Context, g *game.GameState) error
	DeleteGame(ctx context.Context, id string) error
	GameExists(ctx context.Context, id string, status game.GameStatus) (bool, error)
	ListGames(ctx context.Context) ([]string, error)
	RecordHistory(ctx context.Context, rec history.Record) error
	GetHistory(ctx context.Context, gameID string) (*history.Record, error)
	ListHistory(ctx context.Context) ([]history.Record, error)
}

var now = time.Date(2025, time.June, 2, 18, 0, 0, 0, time.UTC)

// Run exercises a store created fresh for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("GameLifecycle", func(t *testing.T) { testGameLifecycle(t, newStore(t)) })
	t.Run("StoredCopiesAreIndependent", func(t *testing.T) { testIndependentCopies(t, newStore(t)) })
	t.Run("History", func(t *testing.T) { testHistory(t, newStore(t)) })
	t.Run("CanceledContext", func(t *testing.T) { testCanceled(t, newStore(t)) })
}

func testGameLifecycle(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.GetGame(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	g := game.NewGameState("game-1", "seed", "hash", "alice", now)
	require.NoError(t, s.UpsertGame(ctx, g))

	ok, err := s.GameExists(ctx, "game-1", game.StatusPending)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.GameExists(ctx, "game-1", game.StatusActive)
	require.NoError(t, err)
	assert.False(t, ok)

	g.Status = game.StatusActive
	g.Players.Players[0].Hands = []game.PlayerHand{{Hand: game.Hand{Cards: deck.MustParseCards("AsKd")}}}
	require.NoError(t, s.UpsertGame(ctx, g))

	got, err := s.GetGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, game.StatusActive, got.Status)
	assert.Equal(t, deck.MustParseCards("AsKd"), got.Players.Players[0].Hands[0].Cards)

	ids, err := s.ListGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"game-1"}, ids)

	require.NoError(t, s.DeleteGame(ctx, "game-1"))
	require.NoError(t, s.DeleteGame(ctx, "game-1"))
	ok, err = s.GameExists(ctx, "game-1", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testIndependentCopies(t *testing.T, s Store) {
	ctx := context.Background()
	g := game.NewGameState("game-1", "seed", "hash", "alice", now)
	require.NoError(t, s.UpsertGame(ctx, g))

	first, err := s.GetGame(ctx, "game-1")
	require.NoError(t, err)
	first.Players.Players[0].PlayerID = "mallory"

	second, err := s.GetGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", second.Players.Players[0].PlayerID)
}

func completedRound(t *testing.T, id string) history.Record {
	t.Helper()
	g := game.NewGameState(id, "seed", "hash", "alice", now)
	cur := deck.NewCursor(deck.MustParseCards("AsTdKhTc"), 0)
	wagers := map[string]*game.Wager{"alice": {Amount: decimal.NewFromInt(10)}}
	require.NoError(t, game.Deal(g, wagers, cur, now))
	require.NoError(t, game.PostActionProcess(g, cur, now))
	require.Equal(t, game.StatusComplete, g.Status)

	rec, err := history.NewRecord(g, payout.DefaultRules(), now)
	require.NoError(t, err)
	return rec
}

func testHistory(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.GetHistory(ctx, "game-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	rec := completedRound(t, "game-1")
	require.NoError(t, s.RecordHistory(ctx, rec))
	require.ErrorIs(t, s.RecordHistory(ctx, rec), storage.ErrAlreadyExists)
	require.NoError(t, s.RecordHistory(ctx, completedRound(t, "game-2")))

	got, err := s.GetHistory(ctx, "game-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(got.TotalPayout), "got %s", got.TotalPayout)
	require.NotNil(t, got.State)
	assert.Equal(t, game.StatusComplete, got.State.Status)

	all, err := s.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "game-1", all[0].GameID)
	assert.Equal(t, "game-2", all[1].GameID)
}

func testCanceled(t *testing.T, s Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetGame(ctx, "game-1")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, s.UpsertGame(ctx, game.NewGameState("game-1", "", "", "alice", now)), context.Canceled)
}
