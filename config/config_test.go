package config

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Format.Options() != format.DefaultOptions() {
		t.Errorf("expected default format options, got %+v", cfg.Format.Options())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if !cfg.Server.Compression.Enabled {
		t.Error("expected compression to be enabled by default")
	}
	if cfg.Server.Cache.TTL != 5*time.Minute {
		t.Errorf("expected default cache ttl 5m, got %s", cfg.Server.Cache.TTL)
	}
	if len(cfg.Watch.Extensions) != 1 || cfg.Watch.Extensions[0] != ".jsonata" {
		t.Errorf("expected default extensions [.jsonata], got %v", cfg.Watch.Extensions)
	}
	if cfg.Server.RateLimit.Enabled || cfg.Server.RateLimit.Requests != 120 {
		t.Errorf("expected rate limiting off with 120 requests, got %+v", cfg.Server.RateLimit)
	}
	if cfg.Server.Proxy.Trusted {
		t.Error("expected forwarding headers to be untrusted by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestPartialYAMLKeepsDefaults(t *testing.T) {
	yamlData := `
format:
  print_width: 80
server:
  compression:
    level: best
`
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(yamlData), cfg); err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if cfg.Format.PrintWidth != 80 {
		t.Errorf("expected print width 80, got %d", cfg.Format.PrintWidth)
	}
	if cfg.Format.TabWidth != 2 {
		t.Errorf("expected default tab width 2, got %d", cfg.Format.TabWidth)
	}
	if cfg.Server.Compression.Level != "best" {
		t.Errorf("expected compression level 'best', got %q", cfg.Server.Compression.Level)
	}
	if cfg.Server.Compression.MinSize != 1024 {
		t.Errorf("expected default min size 1024, got %d", cfg.Server.Compression.MinSize)
	}
}

func TestDurationsFromYAML(t *testing.T) {
	yamlData := `
server:
  cache:
    ttl: 90s
watch:
  debounce: 50ms
`
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(yamlData), cfg); err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	if cfg.Server.Cache.TTL != 90*time.Second {
		t.Errorf("expected ttl 90s, got %s", cfg.Server.Cache.TTL)
	}
	if cfg.Watch.Debounce != 50*time.Millisecond {
		t.Errorf("expected debounce 50ms, got %s", cfg.Watch.Debounce)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		expected string
	}{
		{"zero print width", func(c *Config) { c.Format.PrintWidth = 0 }, "invalid format.print_width: 0"},
		{"negative tab width", func(c *Config) { c.Format.TabWidth = -1 }, "invalid format.tab_width: -1"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid port: 70000"},
		{"bad max body", func(c *Config) { c.Server.MaxBody = "lots" }, "server.max_body"},
		{"bad compression", func(c *Config) { c.Server.Compression.Level = "max" }, "invalid compression level: max"},
		{"zero ttl", func(c *Config) { c.Server.Cache.TTL = 0 }, "server.cache.ttl must be positive"},
		{"zero entries", func(c *Config) { c.Server.Cache.MaxEntries = 0 }, "server.cache.max_entries must be positive"},
		{"zero rate limit", func(c *Config) { c.Server.RateLimit = RateLimitConfig{Enabled: true, Window: time.Minute} }, "server.rate_limit.requests must be positive"},
		{"zero rate window", func(c *Config) { c.Server.RateLimit = RateLimitConfig{Enabled: true, Requests: 10} }, "server.rate_limit.window must be positive"},
		{"negative cors max age", func(c *Config) { c.Server.CORS.MaxAge = -1 }, "invalid server.cors.max_age: -1"},
		{"negative max connections", func(c *Config) { c.Server.MaxConns = -5 }, "invalid server.max_connections: -5"},
		{"bad trusted proxy", func(c *Config) { c.Server.Proxy.TrustedIPs = []string{"proxy.local"} }, `invalid server.proxy.trusted_ips entry: "proxy.local"`},
		{"extension without dot", func(c *Config) { c.Watch.Extensions = []string{"jsonata"} }, `watch.extensions[0]: "jsonata" must start with a dot`},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level: loud"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format: xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.expected)
			}
			if !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("expected error containing %q, got %q", tt.expected, err.Error())
			}
		})
	}
}

func TestValidateDisabledCacheSkipsChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Cache.Enabled = false
	cfg.Server.Cache.TTL = 0
	if err := Validate(cfg); err != nil {
		t.Errorf("expected no error for disabled cache, got %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	expected := "configuration errors:\n  - invalid port: 0 (must be 1-65535)\n  - invalid log format: xml (must be json or text)"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"", 0, false},
		{"512", 512, false},
		{"100B", 100, false},
		{"10KB", 10 * 1024, false},
		{"1mb", 1024 * 1024, false},
		{"2 GB", 2 * 1024 * 1024 * 1024, false},
		{"lots", 0, true},
		{"xMB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
