package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunVersion(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"--version"}, stdout, stderr, func(s string) string { return "" })

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "jsonatafmt version") {
		t.Errorf("expected version output, got %q", output)
	}
}

func TestRunHelp(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"--help"}, stdout, stderr, func(s string) string { return "" })

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	output := stdout.String()
	for _, want := range []string{"jsonatafmt - an HTTP service", "--config", "--port", "POST /format"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in help, got %q", want, output)
		}
	}
}

func TestRunInvalidFlag(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"--invalid-flag"}, stdout, stderr, func(s string) string { return "" })

	if err == nil {
		t.Error("expected error for invalid flag")
	}
}

func TestRunMissingConfig(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"--config", "/nonexistent/config.yaml"}, stdout, stderr, func(s string) string { return "" })

	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected 'config file not found' error, got %q", err.Error())
	}
}

func TestRunInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jsonatafmt.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	err := run(context.Background(), []string{"--config", path, "--port", "70000"}, &bytes.Buffer{}, &bytes.Buffer{},
		func(s string) string { return "" })

	if err == nil {
		t.Fatal("expected error for invalid port")
	}
	if !strings.Contains(err.Error(), "config validation") {
		t.Errorf("expected validation error, got %q", err.Error())
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jsonatafmt.yaml")
	config := "server:\n  host: 127.0.0.1\nlogging:\n  quiet: true\n"
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, []string{"--config", path, "--port", "18765"}, io.Discard, io.Discard,
		func(s string) string { return "" })
	if err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
