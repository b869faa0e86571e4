package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func TestRateLimitBlocksPerActor(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimit(config.RateLimitConfig{Window: time.Minute, Limit: 2}, limiter, nil)(okHandler())

	buyer := types.Actor{ID: uuid.New(), Type: enums.ActorBuyer}
	other := types.Actor{ID: uuid.New(), Type: enums.ActorBuyer}
	send := func(actor types.Actor) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		req = req.WithContext(WithActor(req.Context(), actor))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	for i := 0; i < 2; i++ {
		if code := send(buyer); code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, code)
		}
	}
	if code := send(buyer); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", code)
	}
	if code := send(other); code != http.StatusOK {
		t.Fatalf("other actor should have its own window, got %d", code)
	}
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimit(config.RateLimitConfig{Window: time.Minute, Limit: 5}, limiter, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if limiter.counts["ip:203.0.113.7"] != 1 {
		t.Fatalf("expected ip scoped counter, got %v", limiter.counts)
	}
}

func TestRateLimitReportsLimiterFailure(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{Window: time.Minute, Limit: 5}, &fakeLimiter{err: errors.New("redis down")}, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
