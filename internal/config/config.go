package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// IdleThresholdMs is the inactivity span after which the user counts as idle.
	IdleThresholdMs int64 `json:"idle_threshold_ms"`

	// MinDwellMs discards site visits shorter than this on site change.
	MinDwellMs int64 `json:"min_dwell_ms"`

	// MinCheckpointMs skips periodic checkpoints when less than this has accrued.
	MinCheckpointMs int64 `json:"min_checkpoint_ms"`

	// MaxDeltaMs caps any single accrued delta. Larger deltas come from missed
	// or delayed signals and are not trusted.
	MaxDeltaMs int64 `json:"max_delta_ms"`

	// CheckpointIntervalMs is the period of the in-process checkpoint timer.
	// A negative value disables the timer; 0 in config.json means the default.
	CheckpointIntervalMs int64 `json:"checkpoint_interval_ms"`

	// AlarmIntervalMs is the period of the coarse fallback alarm. The extension
	// can also fire it through the "alarm" message. A negative value disables
	// the local producer.
	AlarmIntervalMs int64 `json:"alarm_interval_ms"`

	// BlockedSchemes lists URL schemes that are never tracked (browser internals).
	BlockedSchemes []string `json:"blocked_schemes,omitempty"`

	// HTTPBind and HTTPPort control the extension ingress and dashboard listener.
	HTTPBind string `json:"http_bind"`
	HTTPPort int    `json:"http_port"`

	// ScreenshotMaxCount bounds stored screenshots; the oldest are evicted first.
	ScreenshotMaxCount int `json:"screenshot_max_count"`

	// ScreenshotDefaultIntervalMs is used when screenshots are enabled without an interval.
	ScreenshotDefaultIntervalMs int64 `json:"screenshot_default_interval_ms"`

	// ScreenshotMinIntervalMs rejects enable requests with a shorter interval.
	ScreenshotMinIntervalMs int64 `json:"screenshot_min_interval_ms"`

	// ScreenshotPermissionTimeoutMs bounds the wait for the capture permission prompt.
	ScreenshotPermissionTimeoutMs int64 `json:"screenshot_permission_timeout_ms"`

	// ScreenshotCaptureTimeoutMs bounds the wait for a single capture.
	ScreenshotCaptureTimeoutMs int64 `json:"screenshot_capture_timeout_ms"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// All tools are enabled by default. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "tracking", "summary", "data", "screenshot".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		IdleThresholdMs:               30_000,
		MinDwellMs:                    2_000,
		MinCheckpointMs:               2_000,
		MaxDeltaMs:                    30_000,
		CheckpointIntervalMs:          5_000,
		AlarmIntervalMs:               60_000,
		BlockedSchemes:                []string{"chrome", "chrome-extension", "edge", "about", "devtools", "view-source", "moz-extension"},
		HTTPBind:                      "127.0.0.1",
		HTTPPort:                      7410,
		ScreenshotMaxCount:            100,
		ScreenshotDefaultIntervalMs:   300_000,
		ScreenshotMinIntervalMs:       30_000,
		ScreenshotPermissionTimeoutMs: 30_000,
		ScreenshotCaptureTimeoutMs:    10_000,
		LogLevel:                      "info",
		LogFormat:                     "text",
	}
}

// IdleThreshold returns IdleThresholdMs as a time.Duration.
func (c *Config) IdleThreshold() time.Duration { return ms(c.IdleThresholdMs) }

// MinDwell returns MinDwellMs as a time.Duration.
func (c *Config) MinDwell() time.Duration { return ms(c.MinDwellMs) }

// MinCheckpoint returns MinCheckpointMs as a time.Duration.
func (c *Config) MinCheckpoint() time.Duration { return ms(c.MinCheckpointMs) }

// MaxDelta returns MaxDeltaMs as a time.Duration.
func (c *Config) MaxDelta() time.Duration { return ms(c.MaxDeltaMs) }

// CheckpointInterval returns CheckpointIntervalMs as a time.Duration.
func (c *Config) CheckpointInterval() time.Duration { return ms(c.CheckpointIntervalMs) }

// AlarmInterval returns AlarmIntervalMs as a time.Duration.
func (c *Config) AlarmInterval() time.Duration { return ms(c.AlarmIntervalMs) }

// ScreenshotPermissionTimeout returns ScreenshotPermissionTimeoutMs as a time.Duration.
func (c *Config) ScreenshotPermissionTimeout() time.Duration {
	return ms(c.ScreenshotPermissionTimeoutMs)
}

// ScreenshotCaptureTimeout returns ScreenshotCaptureTimeoutMs as a time.Duration.
func (c *Config) ScreenshotCaptureTimeout() time.Duration {
	return ms(c.ScreenshotCaptureTimeoutMs)
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.dwell.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.IdleThresholdMs = pickInt64(overlay.IdleThresholdMs, base.IdleThresholdMs)
	result.MinDwellMs = pickInt64(overlay.MinDwellMs, base.MinDwellMs)
	result.MinCheckpointMs = pickInt64(overlay.MinCheckpointMs, base.MinCheckpointMs)
	result.MaxDeltaMs = pickInt64(overlay.MaxDeltaMs, base.MaxDeltaMs)
	result.CheckpointIntervalMs = pickInt64(overlay.CheckpointIntervalMs, base.CheckpointIntervalMs)
	result.AlarmIntervalMs = pickInt64(overlay.AlarmIntervalMs, base.AlarmIntervalMs)
	result.ScreenshotDefaultIntervalMs = pickInt64(overlay.ScreenshotDefaultIntervalMs, base.ScreenshotDefaultIntervalMs)
	result.ScreenshotMinIntervalMs = pickInt64(overlay.ScreenshotMinIntervalMs, base.ScreenshotMinIntervalMs)
	result.ScreenshotPermissionTimeoutMs = pickInt64(overlay.ScreenshotPermissionTimeoutMs, base.ScreenshotPermissionTimeoutMs)
	result.ScreenshotCaptureTimeoutMs = pickInt64(overlay.ScreenshotCaptureTimeoutMs, base.ScreenshotCaptureTimeoutMs)

	result.HTTPPort = pickInt(overlay.HTTPPort, base.HTTPPort)
	result.ScreenshotMaxCount = pickInt(overlay.ScreenshotMaxCount, base.ScreenshotMaxCount)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.HTTPBind = pickString(overlay.HTTPBind, base.HTTPBind)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = pickString(overlay.LogFormat, base.LogFormat)

	// Arrays: merge and deduplicate
	result.BlockedSchemes = mergeStringSlice(base.BlockedSchemes, overlay.BlockedSchemes)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickInt64(overlay, base int64) int64 {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
