package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{Enabled: false})
	mw := RateLimitMiddleware(limiter)(newTestHandler())

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}
}

func TestRateLimitMiddlewareBlocksBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 2})
	mw := RateLimitMiddleware(limiter)(newTestHandler())

	var statuses []int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/run/iteration", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	blocked := 0
	for _, s := range statuses {
		if s == http.StatusTooManyRequests {
			blocked++
		}
	}
	if blocked == 0 {
		t.Fatalf("expected at least one 429 among %v", statuses)
	}
}

func TestRateLimitMiddlewareSeparatesClients(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1})
	mw := RateLimitMiddleware(limiter)(newTestHandler())

	req1 := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req1.RemoteAddr = "10.0.0.1:1234"
	rec1 := httptest.NewRecorder()
	mw.ServeHTTP(rec1, req1)

	req2 := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req2.RemoteAddr = "10.0.0.2:1234"
	rec2 := httptest.NewRecorder()
	mw.ServeHTTP(rec2, req2)

	if rec1.Code != http.StatusOK || rec2.Code != http.StatusOK {
		t.Fatalf("expected both first requests from distinct clients to pass, got %d and %d", rec1.Code, rec2.Code)
	}
}

func TestGetClientIPPrefersForwardedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")

	if ip := getClientIP(req); ip != "203.0.113.5" {
		t.Fatalf("getClientIP = %q, want 203.0.113.5", ip)
	}
}

func TestGetClientIPFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	if ip := getClientIP(req); ip != "10.0.0.1:1234" {
		t.Fatalf("getClientIP = %q, want 10.0.0.1:1234", ip)
	}
}
