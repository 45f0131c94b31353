package server

import (
	"bytes"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// cacheHeader reports whether a response was served from the cache.
const cacheHeader = "X-Cache"

// responseCache stores successful formatting responses. Formatting is a pure
// function of the request body, so each entry is keyed by the method, path,
// accepted encoding and body of the request.
type responseCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	order      []string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// cacheEntry represents a cached response with expiration time.
type cacheEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
}

// newResponseCache creates a new response cache.
func newResponseCache(ttl time.Duration, maxEntries int) *responseCache {
	return &responseCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// cacheKey hashes the request attributes that determine the response.
func cacheKey(r *http.Request, body []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(r.Method))
	h.Write([]byte(":"))
	h.Write([]byte(r.URL.Path))
	h.Write([]byte("|"))
	h.Write([]byte(r.Header.Get("Accept-Encoding")))
	h.Write([]byte("|"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached response if available and not expired.
// Returns nil if cache miss or expired.
func (c *responseCache) Get(key string) *cacheEntry {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil
	}

	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		c.remove(key)
		c.mu.Unlock()
		return nil
	}

	return entry
}

// Set stores a response, evicting the oldest entry when the cache is full.
func (c *responseCache) Set(key string, status int, headers http.Header, body []byte) {
	if c.ttl <= 0 || c.maxEntries <= 0 {
		return
	}

	entry := &cacheEntry{
		status:    status,
		headers:   headers.Clone(),
		body:      body,
		expiresAt: c.now().Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		for len(c.order) >= c.maxEntries {
			c.remove(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry
}

// remove deletes key; the caller holds the write lock.
func (c *responseCache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Clear removes all entries from the cache.
func (c *responseCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
	c.mu.Unlock()
}

// Prune removes expired entries from the cache.
func (c *responseCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	pruned := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			c.remove(key)
			pruned++
		}
	}
	return pruned
}

// Size returns the number of entries in the cache.
func (c *responseCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Middleware serves POST responses from the cache and stores successful
// ones. Other methods pass through untouched. Only headers set by next are
// stored, so headers added by outer middleware are never replayed.
func (c *responseCache) Middleware(next http.Handler, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		body, err := readBody(w, r, maxBody)
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		key := cacheKey(r, body)
		if entry := c.Get(key); entry != nil {
			mergeHeaders(w.Header(), entry.headers)
			w.Header().Set(cacheHeader, "HIT")
			w.WriteHeader(entry.status)
			w.Write(entry.body)
			return
		}

		w.Header().Set(cacheHeader, "MISS")
		cw := newCachedResponseWriter(w)
		next.ServeHTTP(cw, r)
		if !cw.wroteHeader {
			cw.WriteHeader(http.StatusOK)
		}
		if cw.statusCode == http.StatusOK {
			c.Set(key, cw.statusCode, cw.header, cw.body)
		}
	})
}

// mergeHeaders adds every value of src to dst.
func mergeHeaders(dst, src http.Header) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}

// cachedResponseWriter wraps http.ResponseWriter to capture the response
// for caching purposes. It keeps its own header map until the header is
// written.
type cachedResponseWriter struct {
	http.ResponseWriter
	header      http.Header
	statusCode  int
	body        []byte
	wroteHeader bool
}

func newCachedResponseWriter(w http.ResponseWriter) *cachedResponseWriter {
	return &cachedResponseWriter{
		ResponseWriter: w,
		header:         make(http.Header),
		statusCode:     http.StatusOK,
	}
}

func (c *cachedResponseWriter) Header() http.Header {
	return c.header
}

func (c *cachedResponseWriter) WriteHeader(code int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	c.statusCode = code
	mergeHeaders(c.ResponseWriter.Header(), c.header)
	c.ResponseWriter.WriteHeader(code)
}

func (c *cachedResponseWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	c.body = append(c.body, b...)
	return c.ResponseWriter.Write(b)
}
