package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eugenenazirov/http-skeleton/internal/config"
)

func TestNew(t *testing.T) {
	logger, err := New(Options{OutputPaths: []string{filepath.Join(t.TempDir(), "out.log")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger instance")
	}
	_ = logger.Sync()
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewWritesJSONInLocation(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.log")
	loc := time.FixedZone("CET", 3600)

	logger, err := New(Options{Level: "debug", Location: loc, OutputPaths: []string{out}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q", data)
	}
	ts, _ := entry["timestamp"].(string)
	if !strings.HasSuffix(ts, "+0100") {
		t.Fatalf("expected timestamp in +0100, got %q", ts)
	}
	if entry["msg"] != "hello" {
		t.Fatalf("unexpected message %v", entry["msg"])
	}
}

func TestNewTeesErrorsToFile(t *testing.T) {
	dir := t.TempDir()
	errorFile := filepath.Join(dir, "var", "logs", "errors.json")

	logger, err := New(Options{ErrorFile: errorFile, OutputPaths: []string{filepath.Join(dir, "out.log")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("routine")
	logger.Error("broken pipe")
	_ = logger.Sync()

	data, err := os.ReadFile(errorFile)
	if err != nil {
		t.Fatalf("read error log: %v", err)
	}
	if strings.Contains(string(data), "routine") {
		t.Fatalf("info entries must not reach the error log: %q", data)
	}
	if !strings.Contains(string(data), "broken pipe") {
		t.Fatalf("expected error entry in error log: %q", data)
	}
}

func TestVerbosityLevel(t *testing.T) {
	expected := map[int]string{0: "error", 1: "warn", 2: "info", 3: "debug"}
	for v, level := range expected {
		if got := VerbosityLevel(v); got != level {
			t.Fatalf("verbosity %d: expected %s, got %s", v, level, got)
		}
	}
}

func TestColorEnabled(t *testing.T) {
	on, off := true, false
	if !ColorEnabled(&on, 0) || ColorEnabled(&off, 0) {
		t.Fatalf("explicit setting must win")
	}

	f, err := os.CreateTemp(t.TempDir(), "plain")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()
	if ColorEnabled(nil, f.Fd()) {
		t.Fatalf("a regular file is not a terminal")
	}
}

func TestForCLI(t *testing.T) {
	yes := true
	opts, err := ForCLI(config.CLI{CLI: config.CLISection{ANSI: &yes, Verbosity: 3}, Locale: config.Locale{Timezone: "UTC"}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Encoding != "console" || !opts.Color || opts.Level != "debug" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestForHTTP(t *testing.T) {
	opts, err := ForHTTP(config.HTTP{Log: config.Log{Level: "warn"}, Locale: config.Locale{Timezone: "Europe/Copenhagen"}}, "/tmp/errors.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Encoding != "json" || opts.Level != "warn" || opts.ErrorFile != "/tmp/errors.json" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.Location == nil || opts.Location.String() != "Europe/Copenhagen" {
		t.Fatalf("unexpected location %v", opts.Location)
	}
}
