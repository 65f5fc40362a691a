package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedWindowAllow(t *testing.T) {
	limiter := NewMemory("test")
	ctx := context.Background()

	rate := Rate{Window: time.Minute, Max: 3}

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "client", rate)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should pass", i)
		require.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "client", rate)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)
	require.True(t, d.Reset.After(time.Now()))

	d, err = limiter.Allow(ctx, "other", rate)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestFixedWindowDisabledLimit(t *testing.T) {
	var limiter *FixedWindow
	d, err := limiter.Allow(context.Background(), "k", Rate{Window: time.Minute, Max: 1})
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = NewMemory("off").Allow(context.Background(), "k", Rate{Window: time.Minute})
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestHandlerRejectsWithJSONEnvelope(t *testing.T) {
	handler := Handler{
		Limiter: NewMemory("http"),
		Rate:    Rate{Window: time.Minute, Max: 1},
		Key:     ByClientIP("quote:"),
	}
	next := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	first := httptest.NewRecorder()
	next.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	next.ServeHTTP(second, req)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Contains(t, second.Body.String(), `"RATE_LIMITED"`)
	require.NotEmpty(t, second.Header().Get("Retry-After"))

	other := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", nil)
	req2.RemoteAddr = "10.0.0.2:5555"
	next.ServeHTTP(other, req2)
	require.Equal(t, http.StatusOK, other.Code)
}
