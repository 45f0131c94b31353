package server

import (
	"math"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sambeau/jsonatafmt/config"
)

// rateLimiter implements a simple in-memory token bucket keyed by client IP.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	limit   int
	window  time.Duration
	proxy   config.ProxyConfig
	now     func() time.Time
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

func newRateLimiter(limit int, window time.Duration, proxy config.ProxyConfig) *rateLimiter {
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		window:  window,
		proxy:   proxy,
		now:     time.Now,
	}
}

// Allow returns true if a request is permitted for the given key.
func (rl *rateLimiter) Allow(key string) bool {
	if rl == nil {
		return true
	}
	if key == "" {
		key = "__global__"
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &tokenBucket{tokens: rl.limit - 1, lastRefill: now}
		return true
	}

	// Refill tokens based on elapsed windows.
	elapsed := now.Sub(bucket.lastRefill)
	if elapsed >= rl.window {
		refill := int(elapsed/rl.window) * rl.limit
		bucket.tokens = min(bucket.tokens+refill, rl.limit)
		bucket.lastRefill = now
	}

	if bucket.tokens <= 0 {
		return false
	}

	bucket.tokens--
	return true
}

// Prune drops buckets that have been full for at least one window.
func (rl *rateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	pruned := 0
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastRefill) >= rl.window {
			delete(rl.buckets, key)
			pruned++
		}
	}
	return pruned
}

// Middleware rejects clients that exceed the limit with 429.
func (rl *rateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.Allow(clientIP(r, rl.proxy)) {
			next.ServeHTTP(w, r)
			return
		}
		retry := int(math.Ceil(rl.window.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})
}

// clientIP returns the address of the client. Forwarding headers are only
// believed when the proxy is trusted and, if trusted_ips is set, the direct
// peer is one of them.
func clientIP(r *http.Request, proxy config.ProxyConfig) string {
	remote := remoteHost(r.RemoteAddr)
	if !proxy.Trusted {
		return remote
	}
	if len(proxy.TrustedIPs) > 0 && !slices.Contains(proxy.TrustedIPs, remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
