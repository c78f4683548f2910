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

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if shouldRedact(a.Key) {
				a.Value = slog.StringValue("[REDACTED]")
			}
			return a
		},
	})
	logger := slog.New(handler)

	logger.Info("configured brain", "api_key", "sk-supersecret", "provider", "deepseek")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	if entry["api_key"] != "[REDACTED]" {
		t.Errorf("api_key not redacted: %v", entry["api_key"])
	}
	if entry["provider"] != "deepseek" {
		t.Errorf("provider should pass through: %v", entry["provider"])
	}
	if strings.Contains(buf.String(), "supersecret") {
		t.Error("secret leaked into log output")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pryd.log")
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = path

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hello from test")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Error("log entry missing from file")
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pryd.log")
	cfg := DefaultConfig()
	cfg.FilePath = path
	cfg.MaxSizeMB = 1
	cfg.MaxBackups = 2

	rotator, err := NewFileRotator(cfg)
	if err != nil {
		t.Fatalf("new rotator: %v", err)
	}
	defer rotator.Close()

	// Force size past the 1 MB threshold.
	chunk := bytes.Repeat([]byte("x"), 512*1024)
	for i := 0; i < 5; i++ {
		if _, err := rotator.Write(chunk); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	matches, err := filepath.Glob(path + ".*")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Error("expected at least one rotated backup")
	}
	if len(matches) > cfg.MaxBackups {
		t.Errorf("backups not pruned: %d > %d", len(matches), cfg.MaxBackups)
	}
}

func TestWithComponent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = "stderr"

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	child := logger.WithComponent("monitor")
	if child == nil || child.Logger == nil {
		t.Fatal("child logger is nil")
	}
}
