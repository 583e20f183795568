package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/account"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/history"
)

// Locker grants non-blocking, TTL-bounded locks keyed by game id.
type Locker interface {
	TryAcquire(ctx context.Context, key, scope string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, scope, token string) error
}

// GameStore holds active rounds. GetGame returns an error wrapping
// storage.ErrNotFound for unknown ids.
type GameStore interface {
	GetGame(ctx context.Context, id string) (*game.GameState, error)
	UpsertGame(ctx context.Context, g *game.GameState) error
	DeleteGame(ctx context.Context, id string) error
	GameExists(ctx context.Context, id string, status game.GameStatus) (bool, error)
}

// HistoryStore archives completed rounds.
type HistoryStore interface {
	RecordHistory(ctx context.Context, rec history.Record) error
}

// Users looks up players.
type Users interface {
	GetUser(ctx context.Context, id string) (*account.User, error)
}

// Ledger moves funds. Both calls return the balance after the change.
type Ledger interface {
	DeductFromBalance(ctx context.Context, userID, balanceType string, amount decimal.Decimal) (decimal.Decimal, error)
	CreditBalance(ctx context.Context, userID, balanceType string, amount decimal.Decimal) (decimal.Decimal, error)
}

// Bets manages the active bet behind each live seat.
type Bets interface {
	CreateActiveBet(ctx context.Context, bet account.ActiveBet) (*account.ActiveBet, error)
	GetActiveBet(ctx context.Context, userID, gameID string) (*account.ActiveBet, error)
	UpdateActiveBetForUser(ctx context.Context, userID, betID string, delta account.BetDelta) error
	CancelActiveBet(ctx context.Context, userID, betID string) error
	PrepareAndCloseoutActiveBet(ctx context.Context, userID, betID string, final account.FinalBet) (*account.SettledBet, error)
}

// ShoeSource commits to a shoe before play and reproduces it from the
// commitment afterwards.
type ShoeSource interface {
	Commit(seed, gameID string) string
	Shoe(hash string) ([]deck.Card, error)
}

// Deps are the collaborators an Engine needs.
type Deps struct {
	Games   GameStore
	History HistoryStore
	Locker  Locker
	Users   Users
	Ledger  Ledger
	Bets    Bets
}
