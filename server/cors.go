package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/sambeau/jsonatafmt/config"
)

// corsMethods are the methods the API answers.
const corsMethods = "GET, POST"

// corsMiddleware handles Cross-Origin Resource Sharing (CORS) headers so that
// browser-based editors can call the API.
type corsMiddleware struct {
	config config.CORSConfig
}

func newCORSMiddleware(cfg config.CORSConfig) *corsMiddleware {
	return &corsMiddleware{config: cfg}
}

// Handler wraps an http.Handler to add CORS headers
func (m *corsMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.config.Origins) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		// No Origin header means same-origin request
		origin := r.Header.Get("Origin")
		if origin == "" || !m.isOriginAllowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		m.setCORSHeaders(w, origin)

		if r.Method == http.MethodOptions {
			m.handlePreflight(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *corsMiddleware) isOriginAllowed(origin string) bool {
	return slices.Contains(m.config.Origins, "*") || slices.Contains(m.config.Origins, origin)
}

func (m *corsMiddleware) setCORSHeaders(w http.ResponseWriter, origin string) {
	if slices.Contains(m.config.Origins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}

	// lets scripts see whether a response came from the cache
	w.Header().Set("Access-Control-Expose-Headers", cacheHeader)

	// Vary: Origin ensures different origins get different cached responses
	w.Header().Add("Vary", "Origin")
}

func (m *corsMiddleware) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", corsMethods)

	if len(m.config.Headers) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(m.config.Headers, ", "))
	} else if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
		w.Header().Set("Access-Control-Allow-Headers", requested)
	}

	if m.config.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(m.config.MaxAge))
	}

	w.WriteHeader(http.StatusNoContent)
}
