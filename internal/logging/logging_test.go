package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erazemk/galerija/internal/config"
)

func TestLevelRouting(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, cleanup, err := setup(config.Logging{Level: "info", Format: "text"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer cleanup()

	logger.Debug("hidden")
	logger.Info("to stdout")
	logger.Warn("also stdout")
	logger.Error("to stderr")

	if strings.Contains(stdout.String(), "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(stdout.String(), "to stdout") || !strings.Contains(stdout.String(), "also stdout") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "to stderr") {
		t.Error("error record written to stdout")
	}
	if !strings.Contains(stderr.String(), "to stderr") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestDebugLevelAndAttrs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, _, err := setup(config.Logging{Level: "debug", Format: "text"}, &stdout, &stderr)
	if err != nil {
		t.Fatal(err)
	}

	logger.With(slog.String("component", "test")).Debug("visible")
	if !strings.Contains(stdout.String(), "component=test") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestAutoFormatIsJSONWhenNotTerminal(t *testing.T) {
	var stdout bytes.Buffer
	logger, _, err := setup(config.Logging{Level: "info", Format: "auto"}, &stdout, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hello", "n", 1)
	var rec map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %q", stdout.String())
	}
	if rec["msg"] != "hello" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galerija.log")
	logger, cleanup, err := setup(config.Logging{Level: "info", Format: "text", File: path}, &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("first")
	logger.Error("second")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "first") || !strings.Contains(string(data), "second") {
		t.Errorf("log file = %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
