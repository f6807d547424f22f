package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/backend-canteen/internal/ratelimit"
)

func newLimiter(t *testing.T) ratelimit.Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ratelimit.Limiter{Client: client, Prefix: "rate:test:"}
}

func TestAllowWithinLimit(t *testing.T) {
	limiter := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, _, err := limiter.Allow(ctx, "login:1.2.3.4", time.Minute, 3)
		require.NoError(t, err)
		require.True(t, allowed, "attempt %d should be allowed", i+1)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "login:1.2.3.4", time.Minute, 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 0, remaining)
}

func TestAllowIsolatesKeys(t *testing.T) {
	limiter := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, _, err := limiter.Allow(ctx, "login:1.1.1.1", time.Minute, 1)
		require.NoError(t, err)
	}

	allowed, _, _, err := limiter.Allow(ctx, "login:2.2.2.2", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestNilClientFailsOpen(t *testing.T) {
	limiter := ratelimit.Limiter{}
	allowed, _, _, err := limiter.Allow(context.Background(), "anything", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestMiddlewareBlocksOverLimit(t *testing.T) {
	limiter := newLimiter(t)
	handler := ratelimit.Handler{
		Limiter: limiter,
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return "login:" + r.RemoteAddr },
			Window: time.Minute,
			Max:    2,
		},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	wrapped := handler.Middleware(next)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
		req.RemoteAddr = "10.0.0.1:51234"
		last = httptest.NewRecorder()
		wrapped.ServeHTTP(last, req)
	}

	require.Equal(t, http.StatusTooManyRequests, last.Code)
	require.Contains(t, last.Body.String(), "RATE_LIMITED")
	require.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
	require.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestMiddlewareFailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	var sawErr error
	handler := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: client, Prefix: "rate:test:"},
		Config: ratelimit.Config{
			Key:    func(*http.Request) string { return "key" },
			Window: time.Minute,
			Max:    1,
		},
		OnError: func(err error) { sawErr = err },
	}

	recorder := httptest.NewRecorder()
	handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/login", nil))

	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.Error(t, sawErr)
}
