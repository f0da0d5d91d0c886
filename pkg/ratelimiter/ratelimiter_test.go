package ratelimiter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfolio/smartfolio/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var cfg = ratelimiter.Config{Capacity: 3, RefillRate: 3, RefillInterval: 10 * time.Second}

func stores(t *testing.T, c *clock) map[string]ratelimiter.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]ratelimiter.Store{
		"memory": ratelimiter.NewMemoryStore(ratelimiter.WithClock(c.Now)),
		"redis":  ratelimiter.NewRedisStore(client, ratelimiter.WithRedisClock(c.Now)),
	}
}

func TestBucket(t *testing.T) {
	t.Parallel()

	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	for name, store := range stores(t, c) {
		t.Run(name+" store denies after capacity and refills", func(t *testing.T) {
			b, err := ratelimiter.NewBucket(store, cfg)
			require.NoError(t, err)
			ctx := context.Background()
			key := "user-" + name

			for i := range 3 {
				res, err := b.Allow(ctx, key)
				require.NoError(t, err)
				assert.True(t, res.Allowed())
				assert.Equal(t, 2-i, res.Remaining)
			}

			res, err := b.Allow(ctx, key)
			require.NoError(t, err)
			assert.False(t, res.Allowed())
			assert.Equal(t, 10*time.Second, res.RetryAfter(c.Now()))

			// denied requests consume nothing
			res, err = b.Allow(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, -1, res.Remaining)

			c.Advance(10 * time.Second)
			res, err = b.Allow(ctx, key)
			require.NoError(t, err)
			assert.True(t, res.Allowed())
			assert.Equal(t, 2, res.Remaining)

			require.NoError(t, b.Reset(ctx, key))
			res, err = b.AllowN(ctx, key, 3)
			require.NoError(t, err)
			assert.Equal(t, 0, res.Remaining)

			c.Advance(-10 * time.Second)
		})
	}
}

func TestNewBucket(t *testing.T) {
	t.Parallel()

	_, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	_, err = ratelimiter.NewBucket(nil, cfg)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), cfg)
	require.NoError(t, err)
	_, err = b.AllowN(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}

func TestMemoryStore_RemoveStale(t *testing.T) {
	t.Parallel()

	c := &clock{now: time.Now()}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithClock(c.Now), ratelimiter.WithStaleAfter(time.Minute))
	_, _, err := store.ConsumeTokens(context.Background(), "a", 1, cfg)
	require.NoError(t, err)

	c.Advance(30 * time.Second)
	_, _, err = store.ConsumeTokens(context.Background(), "b", 1, cfg)
	require.NoError(t, err)

	c.Advance(45 * time.Second)
	store.RemoveStale()
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := ratelimiter.NewRedisStore(client, ratelimiter.WithKeyPrefix("smartfolio:rl:"))
	_, _, err := store.ConsumeTokens(context.Background(), "user-1", 1, cfg)
	require.NoError(t, err)
	assert.True(t, mr.Exists("smartfolio:rl:user-1"))

	require.NoError(t, store.Reset(context.Background(), "user-1"))
	assert.False(t, mr.Exists("smartfolio:rl:user-1"))
}

type failingStore struct{}

func (failingStore) ConsumeTokens(context.Context, string, int, ratelimiter.Config) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func (failingStore) Reset(context.Context, string) error { return nil }

func TestMiddleware(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	byHeader := func(r *http.Request) string { return r.Header.Get("X-User") }

	do := func(h http.Handler, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/billing/subscription", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("limits per key", func(t *testing.T) {
		t.Parallel()
		b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), cfg)
		require.NoError(t, err)
		h := ratelimiter.Middleware(b, byHeader, nil)(ok)

		for range 3 {
			assert.Equal(t, http.StatusNoContent, do(h, "alice").Code)
		}
		rec := do(h, "alice")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Contains(t, rec.Body.String(), "too_many_requests")

		assert.Equal(t, http.StatusNoContent, do(h, "bob").Code)
		assert.Equal(t, http.StatusNoContent, do(h, "").Code)
	})

	t.Run("store failure lets requests through", func(t *testing.T) {
		t.Parallel()
		b, err := ratelimiter.NewBucket(failingStore{}, cfg)
		require.NoError(t, err)
		h := ratelimiter.Middleware(b, byHeader, nil)(ok)

		for range 5 {
			assert.Equal(t, http.StatusNoContent, do(h, "alice").Code)
		}
	})
}
