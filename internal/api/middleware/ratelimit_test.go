package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Rahul-9211/child-tracker-server/internal/infrastructure/db/redis"
)

type stubLimiter struct {
	decision redis.Decision
	err      error
	keys     []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (redis.Decision, error) {
	s.keys = append(s.keys, key)
	return s.decision, s.err
}

func serveLimited(t *testing.T, limiter Limiter) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	called := false
	e.POST("/auth/signin", func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}, RateLimit(limiter, zerolog.Nop()))

	req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, called
}

func TestRateLimit_Allows(t *testing.T) {
	limiter := &stubLimiter{decision: redis.Decision{Allowed: true, Limit: 10, Remaining: 9}}
	rec, called := serveLimited(t, limiter)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected request through, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "9" {
		t.Fatalf("expected remaining header 9, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "/auth/signin:10.0.0.1" {
		t.Fatalf("unexpected limiter keys: %v", limiter.keys)
	}
}

func TestRateLimit_Blocks(t *testing.T) {
	limiter := &stubLimiter{decision: redis.Decision{Allowed: false, Limit: 10, RetryAfter: 1500 * time.Millisecond}}
	rec, called := serveLimited(t, limiter)

	if called {
		t.Fatalf("handler should not run when limited")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis down")}
	rec, called := serveLimited(t, limiter)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected fail-open, got %d", rec.Code)
	}
}
