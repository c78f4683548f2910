package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != Version {
		t.Errorf("expected version %d, got %d", Version, cfg.Version)
	}
	if cfg.Monitor.Interval != 2*time.Second {
		t.Errorf("expected 2s interval, got %v", cfg.Monitor.Interval)
	}
	if cfg.Monitor.BackoffMax < cfg.Monitor.BackoffBase {
		t.Error("backoff max below base")
	}
	if cfg.Layout.MinConfidence != 0.6 {
		t.Errorf("expected 0.6 min confidence, got %v", cfg.Layout.MinConfidence)
	}
	if len(cfg.Profiles) != 2 {
		t.Fatalf("expected 2 built-in profiles, got %d", len(cfg.Profiles))
	}
	if cfg.ProfileByName("wechat") == nil || cfg.ProfileByName("qq") == nil {
		t.Error("missing built-in profile")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:   "default is valid",
			modify: func(c *Config) {},
		},
		{
			name:    "zero interval",
			modify:  func(c *Config) { c.Monitor.Interval = 0 },
			wantErr: true,
		},
		{
			name:    "backoff factor not above one",
			modify:  func(c *Config) { c.Monitor.BackoffFactor = 1.0 },
			wantErr: true,
		},
		{
			name:    "backoff max below base",
			modify:  func(c *Config) { c.Monitor.BackoffMax = c.Monitor.BackoffBase / 2 },
			wantErr: true,
		},
		{
			name:    "confidence above one",
			modify:  func(c *Config) { c.Layout.MinConfidence = 1.5 },
			wantErr: true,
		},
		{
			name:    "unknown ocr engine",
			modify:  func(c *Config) { c.OCR.Engine = "carrier-pigeon" },
			wantErr: true,
		},
		{
			name:    "http engine without endpoint",
			modify:  func(c *Config) { c.OCR.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "unknown brain provider",
			modify:  func(c *Config) { c.Brain.Provider = "oracle" },
			wantErr: true,
		},
		{
			name:    "unknown platform",
			modify:  func(c *Config) { c.Platform = "icq" },
			wantErr: true,
		},
		{
			name:    "profile without window identity",
			modify:  func(c *Config) { c.Profiles[0].WindowTitle = ""; c.Profiles[0].WindowClass = "" },
			wantErr: true,
		},
		{
			name:    "file output without path",
			modify:  func(c *Config) { c.Logging.Output = "file" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoaderMissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.toml"))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Monitor.Interval != DefaultConfig().Monitor.Interval {
		t.Error("missing file should produce defaults")
	}
}

func TestLoaderPartialTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
platform = "qq"

[monitor]
interval = "5s"

[ocr]
engine = "tesseract"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Platform != "qq" {
		t.Errorf("expected platform qq, got %q", cfg.Platform)
	}
	if cfg.Monitor.Interval != 5*time.Second {
		t.Errorf("expected 5s interval, got %v", cfg.Monitor.Interval)
	}
	if cfg.OCR.Engine != "tesseract" {
		t.Errorf("expected tesseract engine, got %q", cfg.OCR.Engine)
	}
	// Untouched sections keep defaults.
	if cfg.Monitor.DegradeAfter != 3 {
		t.Errorf("expected default degrade_after, got %d", cfg.Monitor.DegradeAfter)
	}
	if len(cfg.Profiles) != 2 {
		t.Errorf("expected default profiles, got %d", len(cfg.Profiles))
	}
}

func TestLoaderYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "platform: wechat\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Platform != "wechat" {
		t.Errorf("expected platform wechat, got %q", cfg.Platform)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PRYD_PLATFORM", "qq")
	t.Setenv("PRYD_INTERVAL", "7s")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Platform != "qq" {
		t.Errorf("expected env platform override, got %q", cfg.Platform)
	}
	if cfg.Monitor.Interval != 7*time.Second {
		t.Errorf("expected env interval override, got %v", cfg.Monitor.Interval)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Platform = "wechat"
	cfg.Monitor.Interval = 3 * time.Second

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Platform != "wechat" {
		t.Errorf("expected wechat, got %q", loaded.Platform)
	}
	if loaded.Monitor.Interval != 3*time.Second {
		t.Errorf("expected 3s, got %v", loaded.Monitor.Interval)
	}
}
