package config

import (
	"time"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"
)

// Config represents the complete jsonatafmt configuration
type Config struct {
	BaseDir string        `yaml:"-"` // Directory containing config file, for resolving relative paths
	Format  FormatConfig  `yaml:"format"`
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// FormatConfig holds the default layout options
type FormatConfig struct {
	PrintWidth int  `yaml:"print_width"` // Target line width (default: 150)
	TabWidth   int  `yaml:"tab_width"`   // Columns per indentation level (default: 2)
	UseTabs    bool `yaml:"use_tabs"`    // Indent with tabs instead of spaces
}

// Options converts the section into formatter options.
func (f FormatConfig) Options() format.Options {
	return format.Options{
		PrintWidth: f.PrintWidth,
		TabWidth:   f.TabWidth,
		UseTabs:    f.UseTabs,
	}
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host        string              `yaml:"host"`
	Port        int                 `yaml:"port"`
	MaxBody     string              `yaml:"max_body"`        // Largest accepted request body, e.g. "1MB"
	MaxConns    int                 `yaml:"max_connections"` // Concurrent connection cap; 0 means unlimited
	Compression CompressionConfig   `yaml:"compression"`
	Cache       ResponseCacheConfig `yaml:"cache"`
	CORS        CORSConfig          `yaml:"cors"`
	RateLimit   RateLimitConfig     `yaml:"rate_limit"`
	Proxy       ProxyConfig         `yaml:"proxy"`
}

// ProxyConfig says when forwarding headers identify the client
type ProxyConfig struct {
	Trusted    bool     `yaml:"trusted"`     // Believe X-Forwarded-For / X-Real-IP
	TrustedIPs []string `yaml:"trusted_ips"` // Optional: only from these peers
}

// CORSConfig holds CORS (Cross-Origin Resource Sharing) settings for
// editors that call the API from a browser
type CORSConfig struct {
	Origins []string `yaml:"origins"` // "*" or list of allowed origins; empty disables CORS
	Headers []string `yaml:"headers"` // Allowed request headers (default: echo the requested ones)
	MaxAge  int      `yaml:"max_age"` // Preflight cache duration in seconds
}

// RateLimitConfig limits API requests per client IP
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"` // Requests allowed per window (default: 120)
	Window   time.Duration `yaml:"window"`   // (default: 1m)
}

// CompressionConfig holds HTTP response compression settings
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`  // Enable gzip compression (default: true)
	Level   string `yaml:"level"`    // Compression level: "fastest", "default", "best", "none" (default: "default")
	MinSize int    `yaml:"min_size"` // Minimum response size to compress in bytes (default: 1024)
}

// ResponseCacheConfig holds settings for caching formatted responses
type ResponseCacheConfig struct {
	Enabled    bool          `yaml:"enabled"`     // Cache successful responses (default: true)
	TTL        time.Duration `yaml:"ttl"`         // How long a response stays cached (default: 5m)
	MaxEntries int           `yaml:"max_entries"` // Entries kept before the oldest is evicted (default: 1000)
}

// CacheConfig holds the CLI's store of files known to be formatted
type CacheConfig struct {
	Path string `yaml:"path"` // SQLite database file (default: ~/.cache/jsonatafmt/cache.db)
}

// WatchConfig holds settings for `jfmt watch`
type WatchConfig struct {
	Extensions []string      `yaml:"extensions"` // File extensions to format (default: .jsonata)
	Debounce   time.Duration `yaml:"debounce"`   // Quiet period before formatting a changed file (default: 200ms)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or file path
	Quiet  bool   `yaml:"quiet"`  // suppress request logs
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Format: FormatConfig{
			PrintWidth: format.DefaultPrintWidth,
			TabWidth:   format.DefaultTabWidth,
			UseTabs:    format.DefaultUseTabs,
		},
		Server: ServerConfig{
			Host:    "localhost",
			Port:    8080,
			MaxBody: "1MB",
			Compression: CompressionConfig{
				Enabled: true,
				Level:   "default",
				MinSize: 1024,
			},
			Cache: ResponseCacheConfig{
				Enabled:    true,
				TTL:        5 * time.Minute,
				MaxEntries: 1000,
			},
			RateLimit: RateLimitConfig{
				Requests: 120,
				Window:   time.Minute,
			},
		},
		Watch: WatchConfig{
			Extensions: []string{".jsonata"},
			Debounce:   200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
