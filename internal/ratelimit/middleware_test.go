package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	handler := Handler{
		Limiter: NewMemoryLimiter("test:"),
		Config: Config{
			Key:    func(*http.Request) string { return "static" },
			Window: time.Minute,
			Max:    1,
		},
	}
	counted := handler.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr2.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.Contains(t, rr2.Body.String(), "RATE_LIMITED")
}

func TestHandlerMiddlewareKeysByClient(t *testing.T) {
	handler := Handler{
		Limiter: NewMemoryLimiter("test:"),
		Config:  Config{Key: ByClientIP("ip:"), Window: time.Minute, Max: 1},
	}
	counted := handler.Middleware(okHandler())

	for _, addr := range []string{"10.0.0.1:1234", "10.0.0.2:1234"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, addr)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, time.Duration, int) (bool, int, time.Time, error) {
	return false, 0, time.Time{}, errors.New("store down")
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	called := false
	handler := Handler{
		Limiter: failingLimiter{},
		Config:  Config{Key: func(*http.Request) string { return "err" }, Window: time.Second, Max: 1},
		OnError: func(error) { called = true },
	}

	rr := httptest.NewRecorder()
	handler.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestRedisLimiterSharesCounters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first, err := NewRedisLimiter(client, "ratelimit")
	require.NoError(t, err)
	second, err := NewRedisLimiter(client, "ratelimit")
	require.NoError(t, err)

	ctx := context.Background()
	allowed, remaining, _, err := first.Allow(ctx, "ip:10.0.0.1", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, remaining)

	allowed, _, _, err = second.Allow(ctx, "ip:10.0.0.1", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, remaining, _, err = first.Allow(ctx, "ip:10.0.0.1", time.Minute, 2)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 0, remaining)
}
