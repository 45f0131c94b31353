package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "JSONATAFMT_CONFIG"

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// the built-in defaults when no file exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// The path is empty when the defaults were used.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg := Defaults()
		if wd, err := os.Getwd(); err == nil {
			cfg.BaseDir = wd
		}
		return cfg, "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	if cfg.Cache.Path != "" && !filepath.IsAbs(cfg.Cache.Path) {
		cfg.Cache.Path = filepath.Join(baseDir, cfg.Cache.Path)
	}
	if cfg.Logging.Output != "" && cfg.Logging.Output != "stderr" && cfg.Logging.Output != "stdout" &&
		!filepath.IsAbs(cfg.Logging.Output) {
		cfg.Logging.Output = filepath.Join(baseDir, cfg.Logging.Output)
	}

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > JSONATAFMT_CONFIG env > ./jsonatafmt.yaml > ~/.config/jsonatafmt/jsonatafmt.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s file not found: %s", EnvConfig, envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("jsonatafmt.yaml"); err == nil {
		return "jsonatafmt.yaml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "jsonatafmt", "jsonatafmt.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Validate checks the configuration, reporting every problem at once.
// Call it again after applying CLI overrides.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Format.PrintWidth < 1 {
		errs = append(errs, fmt.Sprintf("invalid format.print_width: %d (must be positive)", cfg.Format.PrintWidth))
	}
	if cfg.Format.TabWidth < 1 {
		errs = append(errs, fmt.Sprintf("invalid format.tab_width: %d (must be positive)", cfg.Format.TabWidth))
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", cfg.Server.Port))
	}
	if _, err := ParseSize(cfg.Server.MaxBody); err != nil {
		errs = append(errs, fmt.Sprintf("server.max_body: %v", err))
	}

	validCompression := map[string]bool{"fastest": true, "default": true, "best": true, "none": true}
	if !validCompression[cfg.Server.Compression.Level] {
		errs = append(errs, fmt.Sprintf("invalid compression level: %s (must be fastest, default, best, or none)", cfg.Server.Compression.Level))
	}
	if cfg.Server.Compression.MinSize < 0 {
		errs = append(errs, fmt.Sprintf("invalid compression min_size: %d (must not be negative)", cfg.Server.Compression.MinSize))
	}

	if cfg.Server.Cache.Enabled {
		if cfg.Server.Cache.TTL <= 0 {
			errs = append(errs, "server.cache.ttl must be positive when the cache is enabled")
		}
		if cfg.Server.Cache.MaxEntries < 1 {
			errs = append(errs, "server.cache.max_entries must be positive when the cache is enabled")
		}
	}

	if cfg.Server.RateLimit.Enabled {
		if cfg.Server.RateLimit.Requests < 1 {
			errs = append(errs, "server.rate_limit.requests must be positive when rate limiting is enabled")
		}
		if cfg.Server.RateLimit.Window <= 0 {
			errs = append(errs, "server.rate_limit.window must be positive when rate limiting is enabled")
		}
	}
	if cfg.Server.CORS.MaxAge < 0 {
		errs = append(errs, fmt.Sprintf("invalid server.cors.max_age: %d (must not be negative)", cfg.Server.CORS.MaxAge))
	}
	if cfg.Server.MaxConns < 0 {
		errs = append(errs, fmt.Sprintf("invalid server.max_connections: %d (must not be negative)", cfg.Server.MaxConns))
	}
	for _, ip := range cfg.Server.Proxy.TrustedIPs {
		if net.ParseIP(ip) == nil {
			errs = append(errs, fmt.Sprintf("invalid server.proxy.trusted_ips entry: %q", ip))
		}
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Sprintf("invalid watch.debounce: %s (must not be negative)", cfg.Watch.Debounce))
	}
	for i, ext := range cfg.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("watch.extensions[%d]: %q must start with a dot", i, ext))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ParseSize parses a size string like "10MB", "1GB", "500KB" to bytes.
// Supports: B, KB, MB, GB (case insensitive).
// Returns 0 for empty string.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	s = strings.TrimSpace(strings.ToUpper(s))

	// Check suffixes in order of length (longest first) to avoid "B" matching before "MB"
	suffixes := []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(s, sf.suffix))
			var num int64
			if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
				return 0, fmt.Errorf("invalid size number: %s", numStr)
			}
			return num * sf.mult, nil
		}
	}

	var num int64
	if _, err := fmt.Sscanf(s, "%d", &num); err != nil {
		return 0, fmt.Errorf("invalid size format: %s (use B, KB, MB, or GB suffix)", s)
	}
	return num, nil
}
