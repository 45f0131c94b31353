package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestResponseCache_BasicCaching(t *testing.T) {
	cache := newResponseCache(5*time.Minute, 10)

	if entry := cache.Get("k"); entry != nil {
		t.Error("expected nil from empty cache")
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	cache.Set("k", 200, headers, []byte(`{"formatted":"a"}`))

	entry := cache.Get("k")
	if entry == nil {
		t.Fatal("expected cached entry")
	}
	if entry.status != 200 {
		t.Errorf("expected status 200, got %d", entry.status)
	}
	if string(entry.body) != `{"formatted":"a"}` {
		t.Errorf("unexpected body %q", entry.body)
	}
	if entry.headers.Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got %q", entry.headers.Get("Content-Type"))
	}
}

func TestResponseCache_Expiration(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := newResponseCache(time.Minute, 10)
	cache.now = func() time.Time { return now }

	cache.Set("k", 200, http.Header{}, []byte("x"))
	now = now.Add(2 * time.Minute)

	if entry := cache.Get("k"); entry != nil {
		t.Error("expected expired entry to be dropped")
	}
	if cache.Size() != 0 {
		t.Errorf("expected empty cache, got %d", cache.Size())
	}
}

func TestResponseCache_Eviction(t *testing.T) {
	cache := newResponseCache(time.Minute, 2)
	cache.Set("a", 200, http.Header{}, nil)
	cache.Set("b", 200, http.Header{}, nil)
	cache.Set("a", 200, http.Header{}, []byte("again"))
	cache.Set("c", 200, http.Header{}, nil)

	if cache.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Size())
	}
	if cache.Get("a") != nil {
		t.Error("expected oldest entry to be evicted")
	}
	if cache.Get("b") == nil || cache.Get("c") == nil {
		t.Error("expected newer entries to be kept")
	}
}

func TestResponseCache_PruneAndClear(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := newResponseCache(time.Minute, 10)
	cache.now = func() time.Time { return now }

	cache.Set("old", 200, http.Header{}, nil)
	now = now.Add(30 * time.Second)
	cache.Set("new", 200, http.Header{}, nil)
	now = now.Add(45 * time.Second)

	if n := cache.Prune(); n != 1 {
		t.Errorf("expected 1 pruned entry, got %d", n)
	}
	if cache.Size() != 1 {
		t.Errorf("expected 1 entry left, got %d", cache.Size())
	}

	cache.Clear()
	if cache.Size() != 0 {
		t.Errorf("expected empty cache after clear, got %d", cache.Size())
	}
}

func TestCacheKey(t *testing.T) {
	a := httptest.NewRequest("POST", "/format", nil)
	b := httptest.NewRequest("POST", "/serialize", nil)
	gz := httptest.NewRequest("POST", "/format", nil)
	gz.Header.Set("Accept-Encoding", "gzip")

	if cacheKey(a, []byte("x")) != cacheKey(a, []byte("x")) {
		t.Error("expected identical requests to share a key")
	}
	if cacheKey(a, []byte("x")) == cacheKey(a, []byte("y")) {
		t.Error("expected different bodies to differ")
	}
	if cacheKey(a, []byte("x")) == cacheKey(b, []byte("x")) {
		t.Error("expected different paths to differ")
	}
	if cacheKey(a, []byte("x")) == cacheKey(gz, []byte("x")) {
		t.Error("expected different encodings to differ")
	}
}

func TestCacheMiddleware(t *testing.T) {
	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		if string(body) == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("echo " + string(body)))
	})
	handler := newResponseCache(time.Minute, 10).Middleware(next, 1024)

	do := func(method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/format", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do("POST", "hello")
	if first.Header().Get(cacheHeader) != "MISS" {
		t.Errorf("expected MISS, got %q", first.Header().Get(cacheHeader))
	}
	second := do("POST", "hello")
	if second.Header().Get(cacheHeader) != "HIT" {
		t.Errorf("expected HIT, got %q", second.Header().Get(cacheHeader))
	}
	if second.Body.String() != "echo hello" {
		t.Errorf("expected cached body, got %q", second.Body.String())
	}
	if second.Header().Get("Content-Type") != "text/plain" {
		t.Errorf("expected cached headers, got %v", second.Header())
	}
	if calls.Load() != 1 {
		t.Errorf("expected handler to run once, ran %d times", calls.Load())
	}

	do("POST", "bad")
	do("POST", "bad")
	if calls.Load() != 3 {
		t.Errorf("expected failed responses not to be cached, handler ran %d times", calls.Load())
	}

	do("GET", "")
	do("GET", "")
	if calls.Load() != 5 {
		t.Errorf("expected GET to bypass the cache, handler ran %d times", calls.Load())
	}

	tooLarge := do("POST", strings.Repeat("x", 2048))
	if tooLarge.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", tooLarge.Code)
	}
}
