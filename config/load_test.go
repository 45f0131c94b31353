package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "TEST_HOST":
			return "example.com"
		case "TEST_PORT":
			return "9000"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "host: ${TEST_HOST}",
			expected: "host: example.com",
		},
		{
			name:     "with default (env set)",
			input:    "host: ${TEST_HOST:-localhost}",
			expected: "host: example.com",
		},
		{
			name:     "with default (env not set)",
			input:    "host: ${UNSET_VAR:-localhost}",
			expected: "host: localhost",
		},
		{
			name:     "unset without default",
			input:    "host: ${UNSET_VAR}",
			expected: "host: ",
		},
		{
			name:     "multiple substitutions",
			input:    "addr: ${TEST_HOST}:${TEST_PORT}",
			expected: "addr: example.com:9000",
		},
		{
			name:     "no substitution needed",
			input:    "static: value",
			expected: "static: value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "jsonatafmt.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, `
format:
  print_width: 100
  tab_width: 4
  use_tabs: true

server:
  host: 0.0.0.0
  port: 9090
  max_body: 64KB
  cache:
    enabled: false

cache:
  path: ./state/cache.db

watch:
  extensions: [.jsonata, .jsonata.txt]
  debounce: 1s

logging:
  level: debug
  format: json
  output: logs/jfmt.log
`)

	cfg, path, err := LoadWithPath(configPath, func(string) string { return "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("expected resolved path in %q, got %q", dir, path)
	}
	if cfg.BaseDir != dir {
		t.Errorf("expected base dir %q, got %q", dir, cfg.BaseDir)
	}

	opts := cfg.Format.Options()
	if opts.PrintWidth != 100 || opts.TabWidth != 4 || !opts.UseTabs {
		t.Errorf("unexpected format options %+v", opts)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host '0.0.0.0', got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Cache.Enabled {
		t.Error("expected response cache to be disabled")
	}
	if !cfg.Server.Compression.Enabled {
		t.Error("expected compression default to survive")
	}

	expectedCache := filepath.Join(dir, "state", "cache.db")
	if cfg.Cache.Path != expectedCache {
		t.Errorf("expected cache path %q, got %q", expectedCache, cfg.Cache.Path)
	}
	expectedLog := filepath.Join(dir, "logs", "jfmt.log")
	if cfg.Logging.Output != expectedLog {
		t.Errorf("expected log output %q, got %q", expectedLog, cfg.Logging.Output)
	}

	if len(cfg.Watch.Extensions) != 2 || cfg.Watch.Extensions[1] != ".jsonata.txt" {
		t.Errorf("unexpected extensions %v", cfg.Watch.Extensions)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %s", cfg.Watch.Debounce)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, `
server:
  host: ${JFMT_HOST:-localhost}
  port: ${JFMT_PORT:-8080}
`)

	getenv := func(key string) string {
		switch key {
		case "JFMT_HOST":
			return "format.example.com"
		case "JFMT_PORT":
			return "7000"
		}
		return ""
	}

	cfg, err := Load(configPath, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Host != "format.example.com" {
		t.Errorf("expected host 'format.example.com', got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}

	cfg, err = Load(configPath, func(string) string { return "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("expected host 'localhost' (default), got %q", cfg.Server.Host)
	}
}

func TestLoadFromEnvVariable(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "format:\n  print_width: 60\n")

	getenv := func(key string) string {
		if key == EnvConfig {
			return configPath
		}
		return ""
	}

	cfg, err := Load("", getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Format.PrintWidth != 60 {
		t.Errorf("expected print width 60, got %d", cfg.Format.PrintWidth)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	noenv := func(string) string { return "" }

	tests := []struct {
		name     string
		path     string
		getenv   func(string) string
		expected string
	}{
		{
			name:     "explicit path missing",
			path:     filepath.Join(dir, "missing.yaml"),
			getenv:   noenv,
			expected: "config file not found",
		},
		{
			name: "env path missing",
			getenv: func(key string) string {
				if key == EnvConfig {
					return filepath.Join(dir, "gone.yaml")
				}
				return ""
			},
			expected: "JSONATAFMT_CONFIG file not found",
		},
		{
			name:     "invalid yaml",
			path:     writeConfig(t, t.TempDir(), "format: [unclosed"),
			getenv:   noenv,
			expected: "failed to parse config",
		},
		{
			name:     "invalid values",
			path:     writeConfig(t, t.TempDir(), "logging:\n  level: loud\n"),
			getenv:   noenv,
			expected: "configuration errors:\n  - invalid log level: loud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path, tt.getenv)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.expected)
			}
			if !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("expected error containing %q, got %q", tt.expected, err.Error())
			}
		})
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	cfg, path, err := LoadWithPath("", func(string) string { return "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != "" {
		t.Errorf("expected no config path, got %q", path)
	}
	if cfg.Format.PrintWidth != 150 {
		t.Errorf("expected default print width, got %d", cfg.Format.PrintWidth)
	}
}

func TestLoadFindsWorkingDirectoryConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "format:\n  tab_width: 8\n")
	t.Chdir(dir)

	cfg, err := Load("", func(string) string { return "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Format.TabWidth != 8 {
		t.Errorf("expected tab width 8, got %d", cfg.Format.TabWidth)
	}
}

func TestLoadServerAccessControl(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, `
server:
  cors:
    origins:
      - https://editor.example.com
      - https://try.jsonata.org
    headers: [Content-Type]
    max_age: 600
  rate_limit:
    enabled: true
    requests: 30
    window: 10s
  proxy:
    trusted: true
    trusted_ips: [10.0.0.1, "::1"]
`)

	cfg, err := Load(configPath, func(string) string { return "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cors := cfg.Server.CORS
	if len(cors.Origins) != 2 || cors.Origins[1] != "https://try.jsonata.org" {
		t.Errorf("unexpected origins %v", cors.Origins)
	}
	if len(cors.Headers) != 1 || cors.Headers[0] != "Content-Type" {
		t.Errorf("unexpected headers %v", cors.Headers)
	}
	if cors.MaxAge != 600 {
		t.Errorf("expected max_age 600, got %d", cors.MaxAge)
	}

	rl := cfg.Server.RateLimit
	if !rl.Enabled || rl.Requests != 30 || rl.Window != 10*time.Second {
		t.Errorf("unexpected rate limit %+v", rl)
	}

	proxy := cfg.Server.Proxy
	if !proxy.Trusted || len(proxy.TrustedIPs) != 2 || proxy.TrustedIPs[1] != "::1" {
		t.Errorf("unexpected proxy %+v", proxy)
	}
}
