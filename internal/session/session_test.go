package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/service"
	"github.com/Veraticus/reconcile/internal/testutil"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type storeFactory func(t *testing.T, clock *fakeClock) service.SessionStore

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, clock *fakeClock) service.SessionStore {
			store := NewMemoryStore(WithClock(clock.Now), WithSweepInterval(0))
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
		"sqlite": func(t *testing.T, clock *fakeClock) service.SessionStore {
			db := testutil.SetupTestDB(t)
			store := NewSQLiteStore(db.Storage, WithClock(clock.Now), WithSweepInterval(0))
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func TestStoreTTL(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			store := factory(t, clock)

			require.NoError(t, store.Put(ctx, "session_1", testutil.SampleSession("session_1"), 24*time.Hour))

			clock.Advance(23*time.Hour + 59*time.Minute)
			got, err := store.Get(ctx, "session_1")
			require.NoError(t, err)
			assert.Equal(t, "session_1", got.ID)
			assert.Len(t, got.Transactions, 3)

			clock.Advance(2 * time.Minute)
			_, err = store.Get(ctx, "session_1")
			assert.ErrorIs(t, err, common.ErrSessionExpired)

			// The expired entry is gone after the first miss.
			_, err = store.Get(ctx, "session_1")
			assert.ErrorIs(t, err, common.ErrSessionNotFound)
		})
	}
}

func TestStoreUnknownID(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t, newClock())
			_, err := store.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, common.ErrSessionNotFound)

			err = store.Update(context.Background(), "nope", testutil.SampleSession("nope"))
			assert.ErrorIs(t, err, common.ErrSessionNotFound)
		})
	}
}

func TestStoreUpdateKeepsDeadline(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			store := factory(t, clock)

			result := testutil.SampleSession("session_1")
			require.NoError(t, store.Put(ctx, "session_1", result, time.Hour))

			clock.Advance(30 * time.Minute)
			result.Duplicates = nil
			require.NoError(t, store.Update(ctx, "session_1", result))

			got, err := store.Get(ctx, "session_1")
			require.NoError(t, err)
			assert.Empty(t, got.Duplicates)

			clock.Advance(31 * time.Minute)
			_, err = store.Get(ctx, "session_1")
			assert.ErrorIs(t, err, common.ErrSessionExpired)
		})
	}
}

func TestStoreUpdateExpired(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			store := factory(t, clock)

			require.NoError(t, store.Put(ctx, "s", testutil.SampleSession("s"), time.Minute))
			clock.Advance(time.Hour)
			err := store.Update(ctx, "s", testutil.SampleSession("s"))
			assert.ErrorIs(t, err, common.ErrSessionExpired)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, newClock())

			require.NoError(t, store.Put(ctx, "s", testutil.SampleSession("s"), time.Hour))
			require.NoError(t, store.Delete(ctx, "s"))
			require.NoError(t, store.Delete(ctx, "s"))

			_, err := store.Get(ctx, "s")
			assert.ErrorIs(t, err, common.ErrSessionNotFound)
		})
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, newClock())

			result := testutil.SampleSession("s")
			require.NoError(t, store.Put(ctx, "s", result, time.Hour))
			result.Transactions[0].Description = "mutated"

			got, err := store.Get(ctx, "s")
			require.NoError(t, err)
			assert.Equal(t, "Rent February", got.Transactions[0].Description)
			assert.True(t, got.Transactions[0].Amount.Equal(result.Transactions[0].Amount))

			got.Transactions[0].Description = "again"
			again, err := store.Get(ctx, "s")
			require.NoError(t, err)
			assert.Equal(t, "Rent February", again.Transactions[0].Description)
		})
	}
}

func TestStoreRejectsNilResult(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t, newClock())
			assert.Error(t, store.Put(context.Background(), "s", nil, time.Hour))
			assert.Error(t, store.Put(context.Background(), "", testutil.SampleSession(""), time.Hour))
		})
	}
}

func TestMemoryStoreSweepsOnPut(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemoryStore(WithClock(clock.Now), WithSweepInterval(0))
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Put(ctx, "old", testutil.SampleSession("old"), time.Minute))
	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Put(ctx, "new", testutil.SampleSession("new"), time.Minute))

	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreBackgroundSweep(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemoryStore(WithClock(clock.Now), WithSweepInterval(5*time.Millisecond))
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Put(ctx, "old", testutil.SampleSession("old"), time.Minute))
	clock.Advance(time.Hour)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStoreCloseTwice(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore(WithSweepInterval(0))
	defer func() { _ = store.Close() }()

	assert.ErrorIs(t, store.Put(ctx, "s", testutil.SampleSession("s"), time.Hour), context.Canceled)
	_, err := store.Get(ctx, "s")
	assert.ErrorIs(t, err, context.Canceled)
}
