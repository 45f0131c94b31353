package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sambeau/jsonatafmt/config"
)

// accessEntry is one line of the request log.
type accessEntry struct {
	Time       string  `json:"time"`
	Method     string  `json:"method"`
	Path       string  `json:"path"`
	Status     int     `json:"status"`
	BytesIn    int64   `json:"bytes_in"`
	BytesOut   int     `json:"bytes_out"`
	DurationMs float64 `json:"duration_ms"`
	Client     string  `json:"client"`
	UserAgent  string  `json:"user_agent,omitempty"`
	Cache      string  `json:"cache,omitempty"`
}

// statusRecorder remembers the status and body size a handler produced.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.size += n
	return n, err
}

// requestLogger writes one access line per request, as text or JSON.
type requestLogger struct {
	next   http.Handler
	mu     sync.Mutex
	out    io.Writer
	asJSON bool
	proxy  config.ProxyConfig
}

func newRequestLogger(next http.Handler, out io.Writer, format string, proxy config.ProxyConfig) *requestLogger {
	return &requestLogger{next: next, out: out, asJSON: format == "json", proxy: proxy}
}

func (rl *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}
	rl.next.ServeHTTP(rec, r)
	elapsed := time.Since(start)

	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	bytesIn := r.ContentLength
	if bytesIn < 0 {
		bytesIn = 0
	}

	rl.write(accessEntry{
		Time:       start.Format(time.RFC3339),
		Method:     r.Method,
		Path:       r.URL.Path,
		Status:     rec.status,
		BytesIn:    bytesIn,
		BytesOut:   rec.size,
		DurationMs: float64(elapsed.Microseconds()) / 1000,
		Client:     clientIP(r, rl.proxy),
		UserAgent:  r.UserAgent(),
		Cache:      rec.Header().Get(cacheHeader),
	})
}

func (rl *requestLogger) write(e accessEntry) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.asJSON {
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		rl.out.Write(append(data, '\n'))
		return
	}

	line := fmt.Sprintf("%s %s %s %d %dB/%dB %.1fms %s",
		e.Time, e.Method, e.Path, e.Status, e.BytesIn, e.BytesOut, e.DurationMs, e.Client)
	if e.Cache != "" {
		line += " " + e.Cache
	}
	fmt.Fprintln(rl.out, line)
}
