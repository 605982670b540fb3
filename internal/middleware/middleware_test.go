package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(100, 5, nil)
	handler := rl.Handler(okHandler())

	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/1/progress", nil)
		req.Header.Set("Authorization", "Bearer token-a")
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i, resp.Code)
		}
	}
}

func TestRateLimiterBlocksBeyondBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	handler := rl.Handler(okHandler())

	blocked := false
	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/1/progress", nil)
		req.Header.Set("Authorization", "Bearer token-b")
		handler.ServeHTTP(resp, req)
		if resp.Code == http.StatusTooManyRequests {
			blocked = true
		}
	}
	if !blocked {
		t.Fatal("expected at least one request beyond the burst to be rejected")
	}
}

func TestRateLimiterKeysClientsSeparately(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	handler := rl.Handler(okHandler())

	first := httptest.NewRecorder()
	reqA := httptest.NewRequest(http.MethodGet, "/", nil)
	reqA.Header.Set("Authorization", "Bearer client-a")
	handler.ServeHTTP(first, reqA)
	if first.Code != http.StatusOK {
		t.Fatalf("client a: status %d, want 200", first.Code)
	}

	// Each token gets its own bucket.
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, reqA)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("client a second request: status %d, want 429", second.Code)
	}

	third := httptest.NewRecorder()
	reqB := httptest.NewRequest(http.MethodGet, "/", nil)
	reqB.Header.Set("Authorization", "Bearer client-b")
	handler.ServeHTTP(third, reqB)
	if third.Code != http.StatusOK {
		t.Fatalf("client b: status %d, want 200", third.Code)
	}
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	handler := NewCORSMiddleware([]string{"*"}).Handler(okHandler())

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}

	resp = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", resp.Code)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://trusted.example.com"}).Handler(okHandler())

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin = %q, want empty for unknown origin", got)
	}
}
