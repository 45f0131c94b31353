package server

import (
	"compress/gzip"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/sambeau/jsonatafmt/config"
)

// compressedTypes are the only responses the API produces.
var compressedTypes = []string{"application/json", "text/plain"}

var compressionLevels = map[string]int{
	"fastest": gzip.BestSpeed,
	"default": gzip.DefaultCompression,
	"best":    gzip.BestCompression,
}

// newCompressionHandler gzips API responses above cfg.MinSize for clients
// that accept it. It returns h unchanged when compression is off.
func newCompressionHandler(h http.Handler, cfg config.CompressionConfig) http.Handler {
	if !cfg.Enabled || cfg.Level == "none" {
		return h
	}

	level, ok := compressionLevels[cfg.Level]
	if !ok {
		level = gzip.DefaultCompression
	}

	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(cfg.MinSize),
		gzhttp.CompressionLevel(level),
		gzhttp.ContentTypes(compressedTypes),
	)
	if err != nil {
		return h
	}
	return wrap(h)
}
