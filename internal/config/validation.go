package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validEngines = map[string]bool{"http": true, "tesseract": true}
var validProviders = map[string]bool{"doubao": true, "deepseek": true}
var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs ValidationErrors

	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Version < 1 || c.Version > Version {
		add("version", "unsupported version %d (current: %d)", c.Version, Version)
	}

	if c.Platform != "" && c.ProfileByName(c.Platform) == nil {
		add("platform", "unknown platform %q", c.Platform)
	}
	for i, p := range c.Profiles {
		if p.Name == "" {
			add(fmt.Sprintf("profiles[%d].name", i), "must not be empty")
		}
		if p.WindowTitle == "" && p.WindowClass == "" {
			add(fmt.Sprintf("profiles[%d]", i), "needs a window title or class")
		}
		for field, pct := range map[string]float64{
			"chat_list_pct":   p.ChatListPct,
			"member_pane_pct": p.MemberPanePct,
			"title_bar_pct":   p.TitleBarPct,
			"input_bar_pct":   p.InputBarPct,
		} {
			if pct < 0 || pct >= 1 {
				add(fmt.Sprintf("profiles[%d].%s", i, field), "must be in [0, 1), got %v", pct)
			}
		}
	}

	if c.Monitor.Interval <= 0 {
		add("monitor.interval", "must be positive, got %v", c.Monitor.Interval)
	}
	if c.Monitor.BackoffBase <= 0 {
		add("monitor.backoff_base", "must be positive, got %v", c.Monitor.BackoffBase)
	}
	if c.Monitor.BackoffFactor <= 1 {
		add("monitor.backoff_factor", "must be greater than 1, got %v", c.Monitor.BackoffFactor)
	}
	if c.Monitor.BackoffMax < c.Monitor.BackoffBase {
		add("monitor.backoff_max", "must not be below backoff_base")
	}
	if c.Monitor.DegradeAfter < 1 {
		add("monitor.degrade_after", "must be at least 1, got %d", c.Monitor.DegradeAfter)
	}
	if c.Monitor.CaptureTimeout <= 0 {
		add("monitor.capture_timeout", "must be positive, got %v", c.Monitor.CaptureTimeout)
	}
	if c.Monitor.ContextWindow < 1 {
		add("monitor.context_window", "must be at least 1, got %d", c.Monitor.ContextWindow)
	}

	if c.Layout.MinConfidence < 0 || c.Layout.MinConfidence > 1 {
		add("layout.min_confidence", "must be in [0, 1], got %v", c.Layout.MinConfidence)
	}
	if c.Layout.ResizeTolerancePx < 0 {
		add("layout.resize_tolerance_px", "must not be negative")
	}
	if c.Layout.EdgeThreshold <= 0 {
		add("layout.edge_threshold", "must be positive, got %v", c.Layout.EdgeThreshold)
	}

	if !validEngines[c.OCR.Engine] {
		add("ocr.engine", "unknown engine %q", c.OCR.Engine)
	}
	if c.OCR.Engine == "http" && c.OCR.Endpoint == "" {
		add("ocr.endpoint", "required for the http engine")
	}
	if c.OCR.Timeout <= 0 {
		add("ocr.timeout", "must be positive, got %v", c.OCR.Timeout)
	}
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 1 {
		add("ocr.min_confidence", "must be in [0, 1], got %v", c.OCR.MinConfidence)
	}
	if c.OCR.MinBoxArea < 0 {
		add("ocr.min_box_area", "must not be negative")
	}

	if !validProviders[c.Brain.Provider] {
		add("brain.provider", "unknown provider %q", c.Brain.Provider)
	}
	if c.Brain.Timeout <= 0 {
		add("brain.timeout", "must be positive, got %v", c.Brain.Timeout)
	}
	if c.Brain.Temperature < 0 || c.Brain.Temperature > 2 {
		add("brain.temperature", "must be in [0, 2], got %v", c.Brain.Temperature)
	}

	if c.Memory.Path == "" {
		add("memory.path", "must not be empty")
	}

	if !validLevels[c.Logging.Level] {
		add("logging.level", "unknown level %q", c.Logging.Level)
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		add("logging.file_path", "required when output is file")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		add("metrics.listen", "required when metrics are enabled")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
