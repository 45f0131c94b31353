package jsonata

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// NewLogger returns a logger writing to w. level is debug, info, warn or
// error; format is text or json. Unknown values fall back to info and text.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel converts a configured level name.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NullLogger returns a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OpenLogOutput resolves a configured log output: "stderr", "stdout" or a
// file path, which is opened for appending. The returned close function is
// never nil.
func OpenLogOutput(output string, stdout, stderr io.Writer) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch output {
	case "", "stderr":
		return stderr, noop, nil
	case "stdout":
		return stdout, noop, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("opening log file: %w", err)
	}
	return f, f.Close, nil
}

// BufferedLogger captures log output for later retrieval
type BufferedLogger struct {
	mu      sync.Mutex
	lines   []string
	pending strings.Builder
}

// NewBufferedLogger creates a new buffered logger
func NewBufferedLogger() *BufferedLogger {
	return &BufferedLogger{
		lines: make([]string, 0),
	}
}

// Logger returns a debug-level text logger that writes into b.
func (b *BufferedLogger) Logger() *slog.Logger {
	return NewLogger(b, "debug", "text")
}

// Write implements io.Writer, splitting the input into lines.
func (b *BufferedLogger) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.Write(p)
	text := b.pending.String()
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			break
		}
		b.lines = append(b.lines, text[:i])
		text = text[i+1:]
	}
	b.pending.Reset()
	b.pending.WriteString(text)
	return len(p), nil
}

// String returns all captured output as a single string
func (b *BufferedLogger) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := strings.Join(b.lines, "\n")
	if len(b.lines) > 0 {
		result += "\n"
	}
	return result + b.pending.String()
}

// Lines returns all captured log lines
func (b *BufferedLogger) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]string, len(b.lines))
	copy(result, b.lines)
	return result
}

// Contains reports whether any captured line contains substr.
func (b *BufferedLogger) Contains(substr string) bool {
	for _, line := range b.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// Reset clears all captured output
func (b *BufferedLogger) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = b.lines[:0]
	b.pending.Reset()
}
