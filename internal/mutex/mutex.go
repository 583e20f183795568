// Package mutex provides keyed, non-blocking locks with a time-to-live.
// A holder that crashes without releasing loses the lock once the TTL
// elapses. Releases are checked against the token issued at acquisition,
// so a late release never frees a lock someone else now holds.
package mutex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotHeld    = errors.New("lock not held")
	ErrInvalidTTL = errors.New("lock ttl must be positive")
)

type entry struct {
	token   string
	expires time.Time
}

// Manager issues locks on a clock.
type Manager struct {
	clock  quartz.Clock
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]entry
}

// NewManager creates a lock manager. A nil clock uses the real clock.
func NewManager(logger zerolog.Logger, clock quartz.Clock) *Manager {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Manager{
		clock:  clock,
		logger: logger.With().Str("component", "mutex").Logger(),
		locks:  make(map[string]entry),
	}
}

func lockKey(key, scope string) string {
	return scope + ":" + key
}

// TryAcquire takes the lock for key within scope if it is free or expired.
// It never waits: ok is false when another holder has it.
func (m *Manager) TryAcquire(ctx context.Context, key, scope string, ttl time.Duration) (token string, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if ttl <= 0 {
		return "", false, fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	k := lockKey(key, scope)
	if cur, held := m.locks[k]; held && now.Before(cur.expires) {
		return "", false, nil
	} else if held {
		m.logger.Warn().Str("key", key).Str("scope", scope).Msg("Reclaiming expired lock")
	}

	token = uuid.NewString()
	m.locks[k] = entry{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

// Release frees the lock if token still owns it.
func (m *Manager) Release(ctx context.Context, key, scope, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := lockKey(key, scope)
	cur, held := m.locks[k]
	if !held || cur.token != token {
		return fmt.Errorf("%w: %s", ErrNotHeld, k)
	}
	delete(m.locks, k)
	return nil
}

// Held reports whether an unexpired lock exists for key within scope.
func (m *Manager) Held(key, scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, held := m.locks[lockKey(key, scope)]
	return held && m.clock.Now().Before(cur.expires)
}
