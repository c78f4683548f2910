// Package config handles configuration loading, validation, and hot reload
// for pryd.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" yaml:"version"`

	// Platform selects the target chat application. Empty means
	// auto-detect (first profile whose window resolves wins).
	Platform string `toml:"platform" yaml:"platform"`

	// Profiles describe the chat applications pryd knows how to observe.
	Profiles []Profile `toml:"profiles" yaml:"profiles"`

	// Monitor holds polling-loop settings.
	Monitor MonitorConfig `toml:"monitor" yaml:"monitor"`

	// Layout holds region-classifier thresholds.
	Layout LayoutConfig `toml:"layout" yaml:"layout"`

	// OCR holds text-extraction settings.
	OCR OCRConfig `toml:"ocr" yaml:"ocr"`

	// Brain holds reasoning-backend settings.
	Brain BrainConfig `toml:"brain" yaml:"brain"`

	// Memory holds contact/profile store settings.
	Memory MemoryConfig `toml:"memory" yaml:"memory"`

	// Notify holds presentation settings.
	Notify NotifyConfig `toml:"notify" yaml:"notify"`

	// Logging holds log output settings.
	Logging LoggingConfig `toml:"logging" yaml:"logging"`

	// Metrics holds the optional metrics endpoint settings.
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`
}

// Profile describes one chat application's window identity and the
// percentage fallbacks its layout detection starts from.
type Profile struct {
	// Name is the internal identifier ("wechat", "qq").
	Name string `toml:"name" yaml:"name"`

	// DisplayName is shown in logs and notifications.
	DisplayName string `toml:"display_name" yaml:"display_name"`

	// WindowTitle and WindowClass identify the top-level window.
	// Resolution tries class+title, then class, then title.
	WindowTitle string `toml:"window_title" yaml:"window_title"`
	WindowClass string `toml:"window_class" yaml:"window_class"`

	// Layout percentage fallbacks, used when edge detection finds
	// nothing plausible. All relative to window width/height.
	ChatListPct   float64 `toml:"chat_list_pct" yaml:"chat_list_pct"`
	MemberPanePct float64 `toml:"member_pane_pct" yaml:"member_pane_pct"`
	TitleBarPct   float64 `toml:"title_bar_pct" yaml:"title_bar_pct"`
	InputBarPct   float64 `toml:"input_bar_pct" yaml:"input_bar_pct"`
}

// MonitorConfig holds polling-loop settings.
type MonitorConfig struct {
	// Interval is the fixed polling interval while tracking.
	Interval time.Duration `toml:"interval" yaml:"interval"`

	// BackoffBase is the first retry interval after a failure.
	BackoffBase time.Duration `toml:"backoff_base" yaml:"backoff_base"`

	// BackoffFactor multiplies the interval per consecutive failure.
	BackoffFactor float64 `toml:"backoff_factor" yaml:"backoff_factor"`

	// BackoffMax caps the retry interval.
	BackoffMax time.Duration `toml:"backoff_max" yaml:"backoff_max"`

	// DegradeAfter is the number of consecutive failed cycles before
	// the loop moves from tracking to degraded.
	DegradeAfter int `toml:"degrade_after" yaml:"degrade_after"`

	// CaptureTimeout bounds a single window capture.
	CaptureTimeout time.Duration `toml:"capture_timeout" yaml:"capture_timeout"`

	// ContextWindow is how many trailing messages accompany a delta
	// when it is forwarded to the brain.
	ContextWindow int `toml:"context_window" yaml:"context_window"`
}

// LayoutConfig holds region-classifier thresholds.
type LayoutConfig struct {
	// MinConfidence is the floor below which a region is omitted
	// rather than guessed.
	MinConfidence float64 `toml:"min_confidence" yaml:"min_confidence"`

	// ResizeTolerancePx is how far the window may drift before a
	// cached layout hint is discarded.
	ResizeTolerancePx int `toml:"resize_tolerance_px" yaml:"resize_tolerance_px"`

	// EdgeThreshold is the minimum brightness step treated as a
	// pane divider.
	EdgeThreshold float64 `toml:"edge_threshold" yaml:"edge_threshold"`
}

// OCRConfig holds text-extraction settings.
type OCRConfig struct {
	// Engine selects the OCR adapter: "http" or "tesseract".
	Engine string `toml:"engine" yaml:"engine"`

	// Endpoint is the sidecar URL for the http engine.
	Endpoint string `toml:"endpoint" yaml:"endpoint"`

	// TesseractPath overrides the tesseract binary location.
	TesseractPath string `toml:"tesseract_path" yaml:"tesseract_path"`

	// Languages passed to the engine (e.g. "chi_sim+eng").
	Languages string `toml:"languages" yaml:"languages"`

	// Timeout bounds one recognition call.
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`

	// MinConfidence drops lines the engine is unsure about.
	MinConfidence float64 `toml:"min_confidence" yaml:"min_confidence"`

	// MinBoxArea drops implausibly small boxes (pixels), likely noise.
	MinBoxArea int `toml:"min_box_area" yaml:"min_box_area"`

	// MinMessageLen drops normalized messages shorter than this.
	MinMessageLen int `toml:"min_message_len" yaml:"min_message_len"`
}

// BrainConfig holds reasoning-backend settings.
type BrainConfig struct {
	// Provider selects the backend: "doubao" or "deepseek".
	// The API key always comes from the environment, never the file.
	Provider string `toml:"provider" yaml:"provider"`

	// Model overrides the provider default model or endpoint ID.
	Model string `toml:"model" yaml:"model"`

	// BaseURL overrides the provider default API base.
	BaseURL string `toml:"base_url" yaml:"base_url"`

	// Timeout bounds one evaluate call.
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`

	// Temperature for the chat completion request.
	Temperature float64 `toml:"temperature" yaml:"temperature"`
}

// MemoryConfig holds contact/profile store settings.
type MemoryConfig struct {
	// Path is the SQLite database location.
	Path string `toml:"path" yaml:"path"`
}

// NotifyConfig holds presentation settings.
type NotifyConfig struct {
	// Desktop enables D-Bus desktop notifications where available.
	Desktop bool `toml:"desktop" yaml:"desktop"`

	// Console mirrors actions to stdout.
	Console bool `toml:"console" yaml:"console"`

	// TimeoutMs is how long a desktop notification stays up.
	TimeoutMs int `toml:"timeout_ms" yaml:"timeout_ms"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `toml:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" yaml:"format"`

	// Output is "stderr", "stdout", or "file".
	Output string `toml:"output" yaml:"output"`

	// FilePath is the log file when Output is "file".
	FilePath string `toml:"file_path" yaml:"file_path"`
}

// MetricsConfig holds the optional metrics endpoint settings.
type MetricsConfig struct {
	// Enabled starts an HTTP listener exposing /metrics and /healthz.
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// Listen is the address for the metrics listener.
	Listen string `toml:"listen" yaml:"listen"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:  Version,
		Platform: "",
		Profiles: DefaultProfiles(),
		Monitor: MonitorConfig{
			Interval:       2 * time.Second,
			BackoffBase:    2 * time.Second,
			BackoffFactor:  2.0,
			BackoffMax:     30 * time.Second,
			DegradeAfter:   3,
			CaptureTimeout: 5 * time.Second,
			ContextWindow:  10,
		},
		Layout: LayoutConfig{
			MinConfidence:     0.6,
			ResizeTolerancePx: 5,
			EdgeThreshold:     8.0,
		},
		OCR: OCRConfig{
			Engine:        "http",
			Endpoint:      "http://127.0.0.1:9003/ocr",
			Languages:     "chi_sim+eng",
			Timeout:       10 * time.Second,
			MinConfidence: 0.6,
			MinBoxArea:    60,
			MinMessageLen: 2,
		},
		Brain: BrainConfig{
			Provider:    "deepseek",
			Timeout:     30 * time.Second,
			Temperature: 0.7,
		},
		Memory: MemoryConfig{
			Path: filepath.Join(PlatformDataDir(), "memory.db"),
		},
		Notify: NotifyConfig{
			Desktop:   true,
			Console:   true,
			TimeoutMs: 8000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9004",
		},
	}
}

// DefaultProfiles returns the built-in chat application profiles.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:          "wechat",
			DisplayName:   "WeChat",
			WindowTitle:   "微信",
			WindowClass:   "Qt51514QWindowIcon",
			ChatListPct:   0.30,
			MemberPanePct: 0.0,
			TitleBarPct:   0.06,
			InputBarPct:   0.08,
		},
		{
			Name:          "qq",
			DisplayName:   "QQ",
			WindowTitle:   "QQ",
			WindowClass:   "TXGuiFoundation",
			ChatListPct:   0.35,
			MemberPanePct: 0.20,
			TitleBarPct:   0.07,
			InputBarPct:   0.10,
		},
	}
}

// ProfileByName returns the named profile, or nil.
func (c *Config) ProfileByName(name string) *Profile {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i]
		}
	}
	return nil
}

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/pryd/
//   - Linux:   ~/.local/share/pryd/
//   - Windows: %APPDATA%\pryd\
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "pryd")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "pryd")
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, _ := os.UserHomeDir()
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, "pryd")
	}
}

// PlatformConfigDir returns the platform-specific config directory.
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "darwin", "windows":
		return PlatformDataDir()
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, _ := os.UserHomeDir()
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "pryd")
	}
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}
