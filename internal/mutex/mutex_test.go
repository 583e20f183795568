package mutex

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondAcquireFailsImmediately(t *testing.T) {
	ctx := context.Background()
	m := NewManager(zerolog.New(io.Discard), quartz.NewMock(t))

	token, ok, err := m.TryAcquire(ctx, "game-1", "blackjack", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = m.TryAcquire(ctx, "game-1", "blackjack", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.TryAcquire(ctx, "game-2", "blackjack", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different key is independent")

	_, ok, err = m.TryAcquire(ctx, "game-1", "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different scope is independent")

	require.NoError(t, m.Release(ctx, "game-1", "blackjack", token))
	_, ok, err = m.TryAcquire(ctx, "game-1", "blackjack", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpiredLockCanBeReclaimed(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	m := NewManager(zerolog.New(io.Discard), clock)

	stale, ok, err := m.TryAcquire(ctx, "game-1", "blackjack", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(9 * time.Second).MustWait(ctx)
	assert.True(t, m.Held("game-1", "blackjack"))
	_, ok, _ = m.TryAcquire(ctx, "game-1", "blackjack", 10*time.Second)
	assert.False(t, ok)

	clock.Advance(time.Second).MustWait(ctx)
	assert.False(t, m.Held("game-1", "blackjack"))
	fresh, ok, err := m.TryAcquire(ctx, "game-1", "blackjack", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.ErrorIs(t, m.Release(ctx, "game-1", "blackjack", stale), ErrNotHeld)
	assert.True(t, m.Held("game-1", "blackjack"), "stale release must not free the new holder")
	require.NoError(t, m.Release(ctx, "game-1", "blackjack", fresh))
}

func TestInvalidTTL(t *testing.T) {
	m := NewManager(zerolog.New(io.Discard), quartz.NewMock(t))
	_, _, err := m.TryAcquire(context.Background(), "game-1", "blackjack", 0)
	require.ErrorIs(t, err, ErrInvalidTTL)
}

func TestConcurrentAcquireHasOneWinner(t *testing.T) {
	ctx := context.Background()
	m := NewManager(zerolog.New(io.Discard), quartz.NewMock(t))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := m.TryAcquire(ctx, "game-1", "blackjack", time.Minute)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
