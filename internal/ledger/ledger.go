// Package ledger is an in-process implementation of the user, balance and
// active-bet services the engine settles against. Every operation is atomic
// under a single mutex; callers receive copies, never shared records.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/account"
)

var (
	ErrBetExists       = errors.New("active bet already exists")
	ErrNonPositiveFund = errors.New("amount must be positive")
)

type betKey struct {
	userID string
	gameID string
}

// Service holds users, balances and active bets in memory.
type Service struct {
	logger zerolog.Logger
	clock  quartz.Clock

	mu      sync.Mutex
	users   map[string]*account.User
	bets    map[string]*account.ActiveBet
	open    map[betKey]string
	settled []account.SettledBet
}

// New creates an empty ledger.
func New(logger zerolog.Logger, clock quartz.Clock) *Service {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Service{
		logger: logger.With().Str("component", "ledger").Logger(),
		clock:  clock,
		users:  make(map[string]*account.User),
		bets:   make(map[string]*account.ActiveBet),
		open:   make(map[betKey]string),
	}
}

// AddUser registers a user, replacing any existing balances.
func (s *Service) AddUser(id string, balances map[string]decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &account.User{ID: id, Balances: make(map[string]decimal.Decimal, len(balances))}
	for k, v := range balances {
		u.Balances[account.BalanceType(k)] = v
	}
	s.users[id] = u
}

// GetUser returns a copy of the user.
func (s *Service) GetUser(ctx context.Context, id string) (*account.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", account.ErrUserNotFound, id)
	}
	cp := &account.User{ID: u.ID, Balances: make(map[string]decimal.Decimal, len(u.Balances))}
	for k, v := range u.Balances {
		cp.Balances[k] = v
	}
	return cp, nil
}

// DeductFromBalance debits amount and returns the new balance.
func (s *Service) DeductFromBalance(ctx context.Context, userID, balanceType string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNonPositiveFund, amount)
	}
	return s.adjust(ctx, userID, balanceType, amount.Neg())
}

// CreditBalance credits amount and returns the new balance.
func (s *Service) CreditBalance(ctx context.Context, userID, balanceType string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNonPositiveFund, amount)
	}
	return s.adjust(ctx, userID, balanceType, amount)
}

func (s *Service) adjust(ctx context.Context, userID, balanceType string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", account.ErrUserNotFound, userID)
	}
	balanceType = account.BalanceType(balanceType)
	next := u.Balances[balanceType].Add(delta)
	if next.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s has %s %s", account.ErrInsufficientFunds, userID, u.Balances[balanceType], balanceType)
	}
	u.Balances[balanceType] = next
	s.logger.Debug().
		Str("user_id", userID).
		Str("balance_type", balanceType).
		Str("delta", delta.String()).
		Str("balance", next.String()).
		Msg("Balance adjusted")
	return next, nil
}

// CreateActiveBet opens a bet for the user in a game. An empty ID is
// replaced with a generated one.
func (s *Service) CreateActiveBet(ctx context.Context, bet account.ActiveBet) (*account.ActiveBet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[bet.UserID]; !ok {
		return nil, fmt.Errorf("%w: %s", account.ErrUserNotFound, bet.UserID)
	}
	key := betKey{userID: bet.UserID, gameID: bet.GameID}
	if _, ok := s.open[key]; ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrBetExists, bet.UserID, bet.GameID)
	}
	if bet.ID == "" {
		bet.ID = uuid.NewString()
	}
	now := s.clock.Now()
	bet.BalanceType = account.BalanceType(bet.BalanceType)
	bet.CreatedAt = now
	bet.UpdatedAt = now
	stored := cloneBet(&bet)
	s.bets[bet.ID] = stored
	s.open[key] = bet.ID
	return cloneBet(stored), nil
}

// GetActiveBet returns the user's open bet in a game.
func (s *Service) GetActiveBet(ctx context.Context, userID, gameID string) (*account.ActiveBet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.open[betKey{userID: userID, gameID: gameID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", account.ErrNoActiveBet, userID, gameID)
	}
	return cloneBet(s.bets[id]), nil
}

// UpdateActiveBetForUser merges a delta into the user's open bet.
func (s *Service) UpdateActiveBetForUser(ctx context.Context, userID, betID string, delta account.BetDelta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bet, err := s.openBet(userID, betID)
	if err != nil {
		return err
	}
	if err := delta.Apply(bet); err != nil {
		return fmt.Errorf("update bet %s: %w", betID, err)
	}
	bet.UpdatedAt = s.clock.Now()
	return nil
}

// CancelActiveBet removes an open bet without settling it. Funds are not
// touched; callers refund separately.
func (s *Service) CancelActiveBet(ctx context.Context, userID, betID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bet, err := s.openBet(userID, betID)
	if err != nil {
		return err
	}
	delete(s.open, betKey{userID: bet.UserID, gameID: bet.GameID})
	delete(s.bets, betID)
	return nil
}

// PrepareAndCloseoutActiveBet credits the payout, closes the bet and
// archives it.
func (s *Service) PrepareAndCloseoutActiveBet(ctx context.Context, userID, betID string, final account.FinalBet) (*account.SettledBet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if final.Payout.IsNegative() {
		return nil, fmt.Errorf("closeout bet %s: negative payout %s", betID, final.Payout)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bet, err := s.openBet(userID, betID)
	if err != nil {
		return nil, err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", account.ErrUserNotFound, userID)
	}
	if final.Payout.IsPositive() {
		u.Balances[bet.BalanceType] = u.Balances[bet.BalanceType].Add(final.Payout)
	}

	closedAt := final.ClosedAt
	if closedAt.IsZero() {
		closedAt = s.clock.Now()
	}
	settled := account.SettledBet{
		Bet:      *cloneBet(bet),
		Payout:   final.Payout,
		Profit:   final.Payout.Sub(bet.BetAmount),
		Hands:    slices.Clone(final.Hands),
		ClosedAt: closedAt,
	}
	s.settled = append(s.settled, settled)
	delete(s.open, betKey{userID: bet.UserID, gameID: bet.GameID})
	delete(s.bets, betID)

	s.logger.Info().
		Str("user_id", userID).
		Str("bet_id", betID).
		Str("game_id", bet.GameID).
		Str("payout", final.Payout.String()).
		Str("profit", settled.Profit.String()).
		Msg("Bet closed")
	return &settled, nil
}

// Settled returns the archived bets in closing order.
func (s *Service) Settled() []account.SettledBet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.settled)
}

func (s *Service) openBet(userID, betID string) (*account.ActiveBet, error) {
	bet, ok := s.bets[betID]
	if !ok {
		return nil, fmt.Errorf("%w: bet %s", account.ErrNoActiveBet, betID)
	}
	if bet.UserID != userID {
		return nil, fmt.Errorf("%w: bet %s does not belong to %s", account.ErrNoActiveBet, betID, userID)
	}
	return bet, nil
}

func cloneBet(b *account.ActiveBet) *account.ActiveBet {
	cp := *b
	if b.SeatIndex != nil {
		seat := *b.SeatIndex
		cp.SeatIndex = &seat
	}
	cp.HandWagers = make([]account.HandWager, len(b.HandWagers))
	for i, hw := range b.HandWagers {
		hw.Sides = slices.Clone(hw.Sides)
		cp.HandWagers[i] = hw
	}
	return &cp
}
