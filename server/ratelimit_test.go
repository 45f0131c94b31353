package server

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sambeau/jsonatafmt/config"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(3, time.Second, config.ProxyConfig{})

	for i := range 3 {
		if !rl.Allow("client1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("client1") {
		t.Error("4th request should be blocked")
	}
	if !rl.Allow("client2") {
		t.Error("other clients have their own bucket")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute, config.ProxyConfig{})
	rl.now = func() time.Time { return now }

	rl.Allow("c")
	rl.Allow("c")
	if rl.Allow("c") {
		t.Fatal("bucket should be empty")
	}

	now = now.Add(30 * time.Second)
	if rl.Allow("c") {
		t.Error("bucket should not refill before the window ends")
	}

	now = now.Add(30 * time.Second)
	if !rl.Allow("c") {
		t.Error("bucket should refill after one window")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := newRateLimiter(0, 0, config.ProxyConfig{})
	if rl.limit != 120 {
		t.Errorf("limit = %d, want 120", rl.limit)
	}
	if rl.window != time.Minute {
		t.Errorf("window = %v, want 1m", rl.window)
	}
}

func TestRateLimiterNilAndEmptyKey(t *testing.T) {
	var nilLimiter *rateLimiter
	if !nilLimiter.Allow("anyone") {
		t.Error("nil limiter should allow everything")
	}

	rl := newRateLimiter(1, time.Minute, config.ProxyConfig{})
	if !rl.Allow("") {
		t.Error("first anonymous request should be allowed")
	}
	if rl.Allow("") {
		t.Error("anonymous requests share one bucket")
	}
}

func TestRateLimiterPrune(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(5, time.Minute, config.ProxyConfig{})
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(45 * time.Second)
	rl.Allow("new")
	now = now.Add(30 * time.Second)

	if n := rl.Prune(); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if _, ok := rl.buckets["new"]; !ok {
		t.Error("recent bucket should be kept")
	}
	if _, ok := rl.buckets["old"]; ok {
		t.Error("idle bucket should be pruned")
	}
}

func TestRateLimiterConcurrent(t *testing.T) {
	rl := newRateLimiter(50, time.Minute, config.ProxyConfig{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d requests, want 50", allowed)
	}
}

func TestClientIP(t *testing.T) {
	trusted := config.ProxyConfig{Trusted: true}
	fromProxy := config.ProxyConfig{Trusted: true, TrustedIPs: []string{"10.0.0.1"}}

	tests := []struct {
		name   string
		proxy  config.ProxyConfig
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"remote addr", config.ProxyConfig{}, "192.0.2.1:1234", "", "", "192.0.2.1"},
		{"forwarded ignored by default", config.ProxyConfig{}, "192.0.2.1:1234", "203.0.113.5", "", "192.0.2.1"},
		{"real ip ignored by default", config.ProxyConfig{}, "192.0.2.1:1234", "", "203.0.113.5", "192.0.2.1"},
		{"no port", config.ProxyConfig{}, "192.0.2.9", "", "", "192.0.2.9"},
		{"ipv6", config.ProxyConfig{}, "[::1]:8080", "", "", "::1"},
		{"trusted forwarded", trusted, "10.0.0.1:1234", "203.0.113.5, 10.0.0.2", "", "203.0.113.5"},
		{"trusted real ip", trusted, "10.0.0.1:1234", "", "203.0.113.7", "203.0.113.7"},
		{"trusted without headers", trusted, "10.0.0.1:1234", "", "", "10.0.0.1"},
		{"listed proxy", fromProxy, "10.0.0.1:1234", "203.0.113.5", "", "203.0.113.5"},
		{"unlisted peer", fromProxy, "198.51.100.4:1234", "203.0.113.5", "", "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := clientIP(req, tt.proxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitIgnoresSpoofedForwarding(t *testing.T) {
	tests := []struct {
		name  string
		proxy config.ProxyConfig
	}{
		{"no proxy", config.ProxyConfig{}},
		{"unlisted peer", config.ProxyConfig{Trusted: true, TrustedIPs: []string{"10.0.0.1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := newRateLimiter(2, time.Minute, tt.proxy)
			h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			allowed := 0
			for i := range 10 {
				req := httptest.NewRequest("POST", "/format", nil)
				req.RemoteAddr = "203.0.113.9:4000"
				req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				if rec.Code == http.StatusOK {
					allowed++
				}
			}
			if allowed != 2 {
				t.Errorf("allowed %d of 10 requests, want 2", allowed)
			}
		})
	}
}

func TestRateLimitTrustedProxyKeysByForwardedClient(t *testing.T) {
	rl := newRateLimiter(1, time.Minute, config.ProxyConfig{Trusted: true, TrustedIPs: []string{"10.0.0.1"}})
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(client string) int {
		req := httptest.NewRequest("POST", "/format", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("203.0.113.1"); code != http.StatusOK {
		t.Errorf("first client: expected 200, got %d", code)
	}
	if code := send("203.0.113.2"); code != http.StatusOK {
		t.Errorf("second client behind the proxy has its own bucket, got %d", code)
	}
	if code := send("203.0.113.1"); code != http.StatusTooManyRequests {
		t.Errorf("first client again: expected 429, got %d", code)
	}
}

func TestServerRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.Requests = 2
	cfg.Server.RateLimit.Window = 90 * time.Second
	srv, _ := newTestServer(t, cfg)
	h := srv.Handler()

	for i := range 2 {
		if rec := post(t, h, "/format", `{"source": "1"}`); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := post(t, h, "/format", `{"source": "1"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Errorf("Retry-After = %q, want 90", got)
	}
	body := decodeBody(t, rec.Body.Bytes())
	errObj, _ := body["error"].(map[string]any)
	if errObj["message"] != "rate limit exceeded" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestServerPrune(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit.Enabled = true
	srv, _ := newTestServer(t, cfg)
	if srv.limiter == nil {
		t.Fatal("expected rate limiter to be enabled")
	}

	srv.limiter.Allow("client")
	srv.limiter.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	srv.prune()

	if len(srv.limiter.buckets) != 0 {
		t.Errorf("expected buckets to be pruned, got %d", len(srv.limiter.buckets))
	}
}
