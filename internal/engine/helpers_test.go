package engine

import (
	"context"
	"io"
	"testing"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/account"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/mutex"
	"github.com/lox/blackjack/internal/storage/memory"
)

// fixedShoe deals a literal card sequence regardless of the commitment.
type fixedShoe struct {
	cards []deck.Card
}

func (f fixedShoe) Commit(seed, gameID string) string {
	return "fixed:" + seed
}

func (f fixedShoe) Shoe(string) ([]deck.Card, error) {
	return f.cards, nil
}

type harness struct {
	engine *Engine
	ledger *ledger.Service
	store  *memory.Store
	locks  *mutex.Manager
	clock  *quartz.Mock
	deps   Deps
}

func newHarness(t *testing.T, shoe string, opts ...Option) *harness {
	t.Helper()
	logger := zerolog.New(io.Discard)
	clock := quartz.NewMock(t)

	h := &harness{
		ledger: ledger.New(logger, clock),
		store:  memory.New(nil),
		locks:  mutex.NewManager(logger, clock),
		clock:  clock,
	}
	h.ledger.AddUser("alice", balances(100))
	h.ledger.AddUser("bob", balances(100))
	h.deps = Deps{
		Games:   h.store,
		History: h.store,
		Locker:  h.locks,
		Users:   h.ledger,
		Ledger:  h.ledger,
		Bets:    h.ledger,
	}

	base := []Option{WithClock(clock)}
	if shoe != "" {
		base = append(base, WithShoeSource(fixedShoe{cards: deck.MustParseCards(shoe)}))
	}
	e, err := New(h.deps, logger, append(base, opts...)...)
	require.NoError(t, err)
	h.engine = e
	return h
}

func balances(cash int64) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{account.DefaultBalanceType: decimal.NewFromInt(cash)}
}

func wager(amount int64) *game.Wager {
	return &game.Wager{Amount: decimal.NewFromInt(amount)}
}

// start seats players in order and deals with the given wagers.
func (h *harness) start(t *testing.T, wagers map[string]*game.Wager, players ...string) *game.GameState {
	t.Helper()
	ctx := context.Background()
	g, err := h.engine.CreateGame(ctx, players[0], "seed")
	require.NoError(t, err)
	for _, p := range players[1:] {
		_, err := h.engine.JoinGame(ctx, g.ID, p)
		require.NoError(t, err)
	}
	g, err = h.engine.StartGame(ctx, g.ID, wagers)
	require.NoError(t, err)
	return g
}

func (h *harness) balance(t *testing.T, user string) decimal.Decimal {
	t.Helper()
	u, err := h.ledger.GetUser(context.Background(), user)
	require.NoError(t, err)
	return u.Balance("")
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func playerHand(t *testing.T, g *game.GameState, player string, idx int) *game.PlayerHand {
	t.Helper()
	seat, err := g.Players.Seat(player)
	require.NoError(t, err)
	hand, err := seat.Hand(idx)
	require.NoError(t, err)
	return hand
}
