package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/account"
	"github.com/lox/blackjack/internal/game"
)

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{}, zerolog.Nop())
	require.Error(t, err)

	h := newHarness(t, "")
	_, err = New(h.deps, zerolog.Nop(), WithLockTTL(0))
	require.Error(t, err)
}

func TestBlackjackPaysThreeToTwo(t *testing.T) {
	ctx := context.Background()
	// alice As Kh, dealer 8d 6c then draws Ts and busts.
	h := newHarness(t, "As8dKh6cTs")

	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")
	require.Equal(t, game.StatusComplete, g.Status)
	assert.True(t, playerHand(t, g, "alice", 0).Status.IsBlackjack)
	assert.True(t, g.Players.DealerHand().Status.IsBust)
	assert.False(t, g.Players.DealerHand().Cards[1].Hidden, "hole card revealed once complete")

	requireDecimal(t, "115", h.balance(t, "alice"))

	_, err := h.engine.Game(ctx, g.ID)
	require.ErrorIs(t, err, ErrGameNotFound)
	rec, err := h.store.GetHistory(ctx, g.ID)
	require.NoError(t, err)
	requireDecimal(t, "25", rec.TotalPayout)
}

func TestInsuranceScenario(t *testing.T) {
	ctx := context.Background()
	// alice Ts 9c, dealer Ad Kh.
	h := newHarness(t, "TsAd9cKh")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")
	require.Equal(t, game.StatusActive, g.Status)
	assert.True(t, g.Players.DealerHand().Cards[1].Hidden)
	require.True(t, playerHand(t, g, "alice", 0).Status.CanInsure)

	g, err := h.engine.Insure(ctx, g.ID, "alice", 0, true)
	require.NoError(t, err)
	requireDecimal(t, "85", h.balance(t, "alice"))
	side, ok := playerHand(t, g, "alice", 0).Wager.Side(game.WagerInsurance)
	require.True(t, ok)
	requireDecimal(t, "5", side.Amount)

	bet, err := h.ledger.GetActiveBet(ctx, "alice", g.ID)
	require.NoError(t, err)
	requireDecimal(t, "15", bet.BetAmount)

	_, err = h.engine.Insure(ctx, g.ID, "alice", 0, true)
	require.ErrorIs(t, err, ErrActionNotAllowed)

	g, err = h.engine.Stand(ctx, g.ID, "alice", 0)
	require.NoError(t, err)
	require.Equal(t, game.StatusComplete, g.Status)

	hand := playerHand(t, g, "alice", 0)
	assert.Equal(t, game.OutcomeLoss, hand.Status.Outcome)
	side, _ = hand.Wager.Side(game.WagerInsurance)
	assert.Equal(t, game.OutcomeWin, side.Outcome)

	// 100 - 10 - 5 + 5 * 0.5
	requireDecimal(t, "87.5", h.balance(t, "alice"))
}

func TestInsuranceDeclineHasNoSideEffect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "TsAd9cKh")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	g, err := h.engine.Insure(ctx, g.ID, "alice", 0, false)
	require.NoError(t, err)
	requireDecimal(t, "90", h.balance(t, "alice"))
	hand := playerHand(t, g, "alice", 0)
	assert.True(t, hand.HasAction(game.ActionInsurance))
	assert.Empty(t, hand.Wager.Sides)
	assert.False(t, hand.Status.CanInsure)
}

func TestDoubleDown(t *testing.T) {
	ctx := context.Background()
	// alice 5s 6h doubles into Ts; dealer 9d 7c draws 8d and busts.
	h := newHarness(t, "5s9d6h7cTs8d")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	g, err := h.engine.DoubleDown(ctx, g.ID, "alice", 0)
	require.NoError(t, err)
	require.Equal(t, game.StatusComplete, g.Status)

	hand := playerHand(t, g, "alice", 0)
	assert.True(t, hand.Status.WasDoubled)
	requireDecimal(t, "20", hand.Wager.Amount)
	assert.Equal(t, game.OutcomeWin, hand.Status.Outcome)
	requireDecimal(t, "120", h.balance(t, "alice"))

	settled := h.ledger.Settled()
	require.Len(t, settled, 1)
	requireDecimal(t, "20", settled[0].Bet.BetAmount)
	requireDecimal(t, "20", settled[0].Bet.HandWagers[0].Amount)
	requireDecimal(t, "40", settled[0].Payout)
}

func TestSplitInsertsHandWager(t *testing.T) {
	ctx := context.Background()
	// alice 8s 8h splits into 8s Ts and 8h Qs; dealer Td 6c draws 9h.
	h := newHarness(t, "8sTd8h6cTsQs9h")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	g, err := h.engine.Split(ctx, g.ID, "alice", 0)
	require.NoError(t, err)
	require.Equal(t, game.StatusActive, g.Status)
	requireDecimal(t, "80", h.balance(t, "alice"))

	second := playerHand(t, g, "alice", 1)
	require.NotNil(t, second.Status.SplitFrom)
	assert.Equal(t, 0, *second.Status.SplitFrom)
	requireDecimal(t, "10", second.Wager.Amount)

	bet, err := h.ledger.GetActiveBet(ctx, "alice", g.ID)
	require.NoError(t, err)
	require.Len(t, bet.HandWagers, 2)
	assert.Equal(t, 1, bet.HandWagers[1].HandIndex)
	requireDecimal(t, "20", bet.BetAmount)

	g, err = h.engine.Stand(ctx, g.ID, "alice", 0)
	require.NoError(t, err)
	require.Equal(t, game.StatusActive, g.Status)

	g, err = h.engine.Stand(ctx, g.ID, "alice", 1)
	require.NoError(t, err)
	require.Equal(t, game.StatusComplete, g.Status)
	requireDecimal(t, "120", h.balance(t, "alice"))
}

func TestMutexContentionFailsImmediately(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "5s9d6h7cTs8d")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	token, ok, err := h.locks.TryAcquire(ctx, g.ID, DefaultLockScope, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = h.engine.Hit(ctx, g.ID, "alice", 0)
	require.ErrorIs(t, err, ErrMutex)
	kind, _ := KindOf(err)
	assert.Equal(t, KindConcurrency, kind)
	assert.True(t, h.locks.Held(g.ID, DefaultLockScope), "failed attempt must not steal the lock")

	require.NoError(t, h.locks.Release(ctx, g.ID, DefaultLockScope, token))
	_, err = h.engine.Stand(ctx, g.ID, "alice", 0)
	require.NoError(t, err)
}

func TestNestedActionOnSameGameFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "5s9d6h7cTs8d")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	_, err := h.engine.WithActiveGame(ctx, g.ID, func(ctx context.Context, _ *game.GameState) (Result, error) {
		_, err := h.engine.Stand(ctx, g.ID, "alice", 0)
		assert.ErrorIs(t, err, ErrMutex)
		return NoOp(), nil
	})
	require.NoError(t, err)
}

func TestExpiredLockIsReclaimed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "5s9d6h7cTs8d")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	_, ok, err := h.locks.TryAcquire(ctx, g.ID, DefaultLockScope, DefaultLockTTL)
	require.NoError(t, err)
	require.True(t, ok)

	h.clock.Advance(DefaultLockTTL).MustWait(ctx)
	_, err = h.engine.Stand(ctx, g.ID, "alice", 0)
	require.NoError(t, err)
}

func TestLockReleasedOnPanic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "5s9d6h7cTs8d")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	var logs bytes.Buffer
	e, err := New(h.deps, zerolog.New(&logs), WithClock(h.clock), WithShoeSource(h.engine.shoes))
	require.NoError(t, err)

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = e.WithActiveGame(ctx, g.ID, func(context.Context, *game.GameState) (Result, error) {
			panic("boom")
		})
	})
	assert.False(t, h.locks.Held(g.ID, DefaultLockScope))
	assert.Equal(t, 1, strings.Count(logs.String(), "Game action panicked"))
	assert.Contains(t, logs.String(), `"panic":"boom"`)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("hand 0: %w", ErrUnknownOutcome), KindInvariant},
		{fmt.Errorf("round g1: %w", ErrDealerStatusMissing), KindInvariant},
		{fmt.Errorf("debit: %w", ErrSettlementInconsistency), KindSettlement},
		{ErrInsuranceAlreadyPlaced, KindFunding},
		{ErrUserNotFound, KindFunding},
		{ErrTableFull, KindValidation},
		{errors.New("unexpected"), KindInvariant},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestNoOpDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "5s9d6h7cTs8d")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")
	before := g.UpdatedAt

	got, err := h.engine.WithActiveGame(ctx, g.ID, func(_ context.Context, g *game.GameState) (Result, error) {
		g.Players.Players[0].PlayerID = "mallory"
		return NoOp(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "mallory", got.Players.Players[0].PlayerID, "NoOp returns the loaded state")

	stored, err := h.engine.Game(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Players.Players[0].PlayerID)
	assert.True(t, before.Equal(stored.UpdatedAt))
}

func TestIllegalActionIsRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "5s9d6h7cTs8d")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	_, err := h.engine.Split(ctx, g.ID, "alice", 0)
	require.ErrorIs(t, err, ErrActionNotAllowed)
	kind, _ := KindOf(err)
	assert.Equal(t, KindValidation, kind)

	_, err = h.engine.Hit(ctx, g.ID, "bob", 0)
	require.ErrorIs(t, err, game.ErrSeatNotFound)

	_, err = h.engine.Hit(ctx, "missing", "alice", 0)
	require.ErrorIs(t, err, ErrGameNotFound)
	kind, _ = KindOf(err)
	assert.Equal(t, KindNotFound, kind)
}

func TestDoubleDownInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "5s9d6h7cTs8d")
	h.ledger.AddUser("carol", balances(10))
	g := h.start(t, map[string]*game.Wager{"carol": wager(10)}, "carol")
	requireDecimal(t, "0", h.balance(t, "carol"))

	_, err := h.engine.DoubleDown(ctx, g.ID, "carol", 0)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	kind, _ := KindOf(err)
	assert.Equal(t, KindFunding, kind)

	stored, err := h.engine.Game(ctx, g.ID)
	require.NoError(t, err)
	hand := playerHand(t, stored, "carol", 0)
	assert.Len(t, hand.Cards, 2)
	assert.False(t, hand.HasAction(game.ActionDoubleDown))
	requireDecimal(t, "10", hand.Wager.Amount)
}

func TestDoubleDownWithoutActiveBet(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "5s9d6h7cTs8d")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	bet, err := h.ledger.GetActiveBet(ctx, "alice", g.ID)
	require.NoError(t, err)
	require.NoError(t, h.ledger.CancelActiveBet(ctx, "alice", bet.ID))

	_, err = h.engine.DoubleDown(ctx, g.ID, "alice", 0)
	require.ErrorIs(t, err, ErrNoActiveBet)
	requireDecimal(t, "90", h.balance(t, "alice"))
}

type failingBets struct {
	Bets
}

func (failingBets) UpdateActiveBetForUser(context.Context, string, string, account.BetDelta) error {
	return errors.New("bet store unavailable")
}

func TestBetUpdateFailureIsSettlementInconsistency(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "5s9d6h7cTs8d")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

	deps := h.deps
	deps.Bets = failingBets{Bets: h.ledger}
	e, err := New(deps, zerolog.Nop(), WithClock(h.clock), WithShoeSource(h.engine.shoes))
	require.NoError(t, err)

	_, err = e.DoubleDown(ctx, g.ID, "alice", 0)
	require.ErrorIs(t, err, ErrSettlementInconsistency)
	kind, _ := KindOf(err)
	assert.Equal(t, KindSettlement, kind)
	requireDecimal(t, "80", h.balance(t, "alice"))
}

func TestDemoSeatNeverTouchesLedger(t *testing.T) {
	ctx := context.Background()
	// alice Ts 8h, bob 9s 9h (demo), dealer 9d 8c.
	h := newHarness(t, "Ts9s9d8h9h8c")
	g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice", "bob")
	assert.Nil(t, playerHand(t, g, "bob", 0).Wager)
	assert.Empty(t, g.Players.Players[1].BetID)

	_, err := h.engine.Stand(ctx, g.ID, "alice", 0)
	require.NoError(t, err)
	g, err = h.engine.Stand(ctx, g.ID, "bob", 0)
	require.NoError(t, err)
	require.Equal(t, game.StatusComplete, g.Status)

	requireDecimal(t, "110", h.balance(t, "alice"))
	requireDecimal(t, "100", h.balance(t, "bob"))
	assert.Len(t, h.ledger.Settled(), 1)
}

// missingUsers knows no one.
type missingUsers struct{}

func (missingUsers) GetUser(_ context.Context, id string) (*account.User, error) {
	return nil, fmt.Errorf("%w: %s", account.ErrUserNotFound, id)
}

// stuckLedger accepts debits without lowering the balance.
type stuckLedger struct {
	Ledger
	users Users
}

func (l stuckLedger) DeductFromBalance(ctx context.Context, userID, balanceType string, _ decimal.Decimal) (decimal.Decimal, error) {
	u, err := l.users.GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Balance(balanceType), nil
}

// recordingBets counts bet updates. With insured set it reports an
// insurance side already on hand 0.
type recordingBets struct {
	Bets
	insured bool
	updates int
}

func (b *recordingBets) GetActiveBet(ctx context.Context, userID, gameID string) (*account.ActiveBet, error) {
	bet, err := b.Bets.GetActiveBet(ctx, userID, gameID)
	if err != nil || !b.insured {
		return bet, err
	}
	cp := *bet
	cp.HandWagers = slices.Clone(bet.HandWagers)
	cp.HandWagers[0].Sides = append(slices.Clone(cp.HandWagers[0].Sides),
		game.SideWager{Type: game.WagerInsurance, Amount: decimal.NewFromInt(5), Outcome: game.OutcomeUnknown})
	return &cp, nil
}

func (b *recordingBets) UpdateActiveBetForUser(ctx context.Context, userID, betID string, delta account.BetDelta) error {
	b.updates++
	return b.Bets.UpdateActiveBetForUser(ctx, userID, betID, delta)
}

func TestWagerFailuresLeaveBetUntouched(t *testing.T) {
	doubleDown := func(ctx context.Context, e *Engine, gameID string) error {
		_, err := e.DoubleDown(ctx, gameID, "alice", 0)
		return err
	}
	insure := func(ctx context.Context, e *Engine, gameID string) error {
		_, err := e.Insure(ctx, gameID, "alice", 0, true)
		return err
	}

	tests := []struct {
		name     string
		shoe     string
		wire     func(h *harness, deps *Deps, bets *recordingBets)
		action   func(ctx context.Context, e *Engine, gameID string) error
		wantErr  error
		wantKind Kind
	}{
		{
			name: "unknown user",
			shoe: "5s9d6h7cTs8d",
			wire: func(_ *harness, deps *Deps, _ *recordingBets) {
				deps.Users = missingUsers{}
			},
			action:   doubleDown,
			wantErr:  ErrUserNotFound,
			wantKind: KindFunding,
		},
		{
			name: "insurance already on the bet",
			shoe: "TsAd9cKh",
			wire: func(_ *harness, _ *Deps, bets *recordingBets) {
				bets.insured = true
			},
			action:   insure,
			wantErr:  ErrInsuranceAlreadyPlaced,
			wantKind: KindFunding,
		},
		{
			name: "debit that does not lower the balance",
			shoe: "5s9d6h7cTs8d",
			wire: func(h *harness, deps *Deps, _ *recordingBets) {
				deps.Ledger = stuckLedger{Ledger: h.ledger, users: h.ledger}
			},
			action:   doubleDown,
			wantErr:  ErrSettlementInconsistency,
			wantKind: KindSettlement,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, tt.shoe)
			g := h.start(t, map[string]*game.Wager{"alice": wager(10)}, "alice")

			bets := &recordingBets{Bets: h.ledger}
			deps := h.deps
			deps.Bets = bets
			tt.wire(h, &deps, bets)
			e, err := New(deps, zerolog.Nop(), WithClock(h.clock), WithShoeSource(h.engine.shoes))
			require.NoError(t, err)

			err = tt.action(ctx, e, g.ID)
			require.ErrorIs(t, err, tt.wantErr)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)

			assert.Zero(t, bets.updates)
			requireDecimal(t, "90", h.balance(t, "alice"))
			bet, err := h.ledger.GetActiveBet(ctx, "alice", g.ID)
			require.NoError(t, err)
			requireDecimal(t, "10", bet.BetAmount)
			require.Len(t, bet.HandWagers, 1)
			assert.Empty(t, bet.HandWagers[0].Sides)

			stored, err := h.engine.Game(ctx, g.ID)
			require.NoError(t, err)
			assert.Empty(t, playerHand(t, stored, "alice", 0).Wager.Sides)
		})
	}
}
