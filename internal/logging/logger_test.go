package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("batch created", "batch_id", "b1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "batch created" || entry["batch_id"] != "b1" || entry["level"] != "DEBUG" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "TEXT")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "stage", "Fry")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "stage=Fry") {
		t.Fatalf("unexpected text output: %q", out)
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, err := New(nil, "info", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&buf, "error", "json")
	logger.Warn("skip")
	logger.Error("keep")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "keep") {
		t.Fatalf("expected only the error line, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{" Error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "Warn", "error"} {
		if !ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = false", lvl)
		}
	}
	for _, lvl := range []string{"", "trace", "fatal"} {
		if ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = true", lvl)
		}
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "aquamind.log")
	logger, f, err := NewFile(path, "info", "json")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	logger.Info("written")
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "written") {
		t.Fatalf("log file content %q: %v", data, err)
	}
	if _, _, err := NewFile(filepath.Join(t.TempDir(), "x.log"), "info", "xml"); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("dropped")
}
