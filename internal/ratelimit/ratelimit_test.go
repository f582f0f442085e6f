package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestSlidingWindowAllow(t *testing.T) {
	mr, client := newClient(t)
	l := SlidingWindow{Client: client, Prefix: "test:"}
	ctx := context.Background()
	window, max := 2*time.Second, 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := l.Allow(ctx, "key", window, max)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, max-(i+1), remaining)
	}

	allowed, remaining, _, err := l.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	mr.FastForward(window)
	allowed, _, _, err = l.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestSlidingWindowRejectionsDoNotExtendWindow(t *testing.T) {
	_, client := newClient(t)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := SlidingWindow{Client: client, Prefix: "test:", Now: func() time.Time { return clock }}
	ctx := context.Background()

	allowed, _, reset, err := l.Allow(ctx, "k", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, clock.Add(time.Second), reset)

	for i := 0; i < 5; i++ {
		clock = clock.Add(100 * time.Millisecond)
		allowed, _, reset, err = l.Allow(ctx, "k", time.Second, 1)
		require.NoError(t, err)
		require.False(t, allowed)
		require.Equal(t, time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC), reset)
	}

	clock = clock.Add(600 * time.Millisecond)
	allowed, remaining, _, err := l.Allow(ctx, "k", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, remaining)
}

func TestSlidingWindowDisabled(t *testing.T) {
	allowed, remaining, _, err := SlidingWindow{}.Allow(context.Background(), "k", time.Second, 3)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 3, remaining)
}

func TestUluleAllow(t *testing.T) {
	u := Ulule{Store: memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: "test", CleanUpInterval: time.Minute})}
	ctx := context.Background()

	allowed, remaining, reset, err := u.Allow(ctx, "ip", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, remaining)
	require.True(t, reset.After(time.Now()))

	allowed, _, _, err = u.Allow(ctx, "ip", time.Minute, 1)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestNewUluleRedis(t *testing.T) {
	_, client := newClient(t)
	u, err := NewUluleRedis(client, "rl")
	require.NoError(t, err)

	allowed, _, _, err := u.Allow(context.Background(), "ip", time.Minute, 5)
	require.NoError(t, err)
	require.True(t, allowed)

	_, err = NewUluleRedis(nil, "rl")
	require.Error(t, err)
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	_, client := newClient(t)
	handler := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "ratelimit:"},
		Config:  Config{Key: ClientIPKey("api:"), Window: time.Second, Max: 1},
	}
	limited := handler.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rr1 := httptest.NewRecorder()
	limited.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	limited.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.Contains(t, rr2.Body.String(), "RATE_LIMITED")

	other := req.Clone(req.Context())
	other.RemoteAddr = "10.0.0.2:1234"
	rr3 := httptest.NewRecorder()
	limited.ServeHTTP(rr3, other)
	require.Equal(t, http.StatusOK, rr3.Code)
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	called := false
	handler := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "ratelimit:"},
		Config:  Config{Key: func(*http.Request) string { return "err" }, Window: time.Second, Max: 1},
		OnError: func(error) { called = true },
	}

	rr := httptest.NewRecorder()
	handler.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}
