package jsonata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	jerrors "github.com/sambeau/jsonatafmt/pkg/jsonata/errors"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/parser"
)

// DefaultCacheSize is the number of parsed programs a Formatter keeps.
const DefaultCacheSize = 256

// Config configures a Formatter.
type Config struct {
	Options   format.Options // defaults for every call; zero means format.DefaultOptions
	CacheSize int            // parsed programs to keep; negative disables the cache
	Logger    *slog.Logger   // nil discards
}

// Formatter formats expressions with fixed default options, caching parse
// results by source text. Parsed trees are never modified by the printer, so
// a cached tree can be shared by concurrent calls.
type Formatter struct {
	opts   format.Options
	logger *slog.Logger
	cache  *parseCache
}

// New creates a Formatter.
func New(cfg Config) *Formatter {
	opts := cfg.Options
	if opts == (format.Options{}) {
		opts = format.DefaultOptions()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NullLogger()
	}
	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	return &Formatter{
		opts:   opts,
		logger: logger,
		cache:  newParseCache(size),
	}
}

// Options returns the formatter's default layout options.
func (f *Formatter) Options() format.Options {
	return f.opts
}

// Parse parses src, reusing an earlier result for the same text.
func (f *Formatter) Parse(src string) (*ast.Program, error) {
	key := sourceKey(src)
	if prog, ok := f.cache.get(key); ok {
		f.logger.Debug("parse cache hit", "key", key[:12])
		return prog, nil
	}
	f.logger.Debug("parse cache miss", "key", key[:12], "bytes", len(src))

	prog, err := parser.Parse(src)
	if err != nil {
		var se *jerrors.SyntaxError
		if errors.As(err, &se) {
			f.logger.Debug("parse failed", "code", se.Code, "position", se.Position)
		}
		return nil, err
	}
	f.cache.put(key, prog)
	return prog, nil
}

// FormatSource parses and formats src.
func (f *Formatter) FormatSource(src string, opts ...Option) (string, error) {
	prog, err := f.Parse(src)
	if err != nil {
		return "", err
	}
	return f.FormatTree(prog, opts...)
}

// FormatTree formats an already parsed tree.
func (f *Formatter) FormatTree(tree ast.Node, opts ...Option) (string, error) {
	out, err := format.Print(tree, buildOptions(f.opts, opts))
	if err != nil {
		f.logger.Error("format failed", "error", err)
		return "", err
	}
	return out, nil
}

// FormatSourceAsync is FormatSource run in the background.
func (f *Formatter) FormatSourceAsync(ctx context.Context, src string, opts ...Option) <-chan Result {
	return runAsync(ctx, func() (string, error) {
		return f.FormatSource(src, opts...)
	})
}

// FormatTreeAsync is FormatTree run in the background.
func (f *Formatter) FormatTreeAsync(ctx context.Context, tree ast.Node, opts ...Option) <-chan Result {
	return runAsync(ctx, func() (string, error) {
		return f.FormatTree(tree, opts...)
	})
}

// Reset clears the parse cache.
func (f *Formatter) Reset() {
	f.cache.clear()
}

// CacheStats returns the cache size and the hit and miss counts since the
// last Reset.
func (f *Formatter) CacheStats() (size, hits, misses int) {
	return f.cache.stats()
}

func sourceKey(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// parseCache is a bounded map of parsed programs. When full, the oldest
// entry is evicted.
type parseCache struct {
	mu      sync.RWMutex
	max     int
	entries map[string]*ast.Program
	order   []string
	hits    int
	misses  int
}

func newParseCache(max int) *parseCache {
	return &parseCache{
		max:     max,
		entries: make(map[string]*ast.Program),
	}
}

func (c *parseCache) get(key string) (*ast.Program, bool) {
	if c.max <= 0 {
		return nil, false
	}
	c.mu.RLock()
	prog, ok := c.entries[key]
	c.mu.RUnlock()

	c.mu.Lock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
	return prog, ok
}

func (c *parseCache) put(key string, prog *ast.Program) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	for len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = prog
	c.order = append(c.order, key)
}

func (c *parseCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]*ast.Program)
	c.order = nil
	c.hits = 0
	c.misses = 0
	c.mu.Unlock()
}

func (c *parseCache) stats() (size, hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), c.hits, c.misses
}
