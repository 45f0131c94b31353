package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sambeau/jsonatafmt/config"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/jsonata"
	"github.com/sambeau/jsonatafmt/server"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("jsonatafmt", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		host        = flags.String("host", "", "Override listen host")
		port        = flags.Int("port", 0, "Override listen port")
		quiet       = flags.Bool("quiet", false, "Suppress request logs")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}

	if *showVersion {
		fmt.Fprintf(stdout, "jsonatafmt version %s\n", Version)
		return nil
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configFile, err := config.LoadWithPath(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply CLI overrides
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *quiet {
		cfg.Logging.Quiet = true
	}

	// Full validation after CLI overrides applied
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logOut, closeLog, err := jsonata.OpenLogOutput(cfg.Logging.Output, stdout, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := jsonata.NewLogger(logOut, cfg.Logging.Level, cfg.Logging.Format)
	if configFile != "" {
		logger.Info("loaded configuration", "path", configFile)
	}

	srv, err := server.New(cfg, stdout, stderr, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `jsonatafmt - an HTTP service that formats JSONata expressions

Usage:
  jsonatafmt [options]

Options:
  --config PATH    Path to config file (default: auto-detect)
  --host HOST      Override listen host
  --port PORT      Override listen port
  --quiet          Suppress request logs
  --version        Show version
  --help           Show this help

Endpoints:
  POST /format      {"source": "...", "options": {...}}  -> {"formatted": "..."}
  POST /serialize   {"ast": {...}, "options": {...}}     -> {"formatted": "..."}
  GET  /healthz

Config Resolution:
  1. --config flag
  2. JSONATAFMT_CONFIG environment variable
  3. ./jsonatafmt.yaml
  4. ~/.config/jsonatafmt/jsonatafmt.yaml

Examples:
  jsonatafmt                       Start with auto-detected config
  jsonatafmt --port 3000           Listen on port 3000
  jsonatafmt --config fmt.yaml     Use specific config file

`)
}
