// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/nebula-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete nebula configuration.
type Config struct {
	Version string `toml:"version"`

	Server      ServerConfig      `toml:"server"`
	Run         RunConfig         `toml:"run"`
	Autocorrect AutocorrectConfig `toml:"autocorrect"`
	Storage     StorageConfig     `toml:"storage"`
	Log         LogConfig         `toml:"log"`
	UI          UIConfig          `toml:"ui"`
}

// ServerConfig locates the research assistant service.
type ServerConfig struct {
	// BaseURL is scheme://host[:port] of the service.
	BaseURL string `toml:"base_url"`
	// StreamPath is the server-sent events endpoint.
	StreamPath string `toml:"stream_path"`
	// AutocorrectPath is the suggestion endpoint.
	AutocorrectPath string `toml:"autocorrect_path"`
	// ConnectTimeoutSecs bounds dialing and response headers, not the stream body.
	ConnectTimeoutSecs int `toml:"connect_timeout_secs"`
}

// RunConfig controls run pacing.
type RunConfig struct {
	// DefaultMode is "fast" or "thorough".
	DefaultMode     string `toml:"default_mode"`
	TickMs          int    `toml:"tick_ms"`
	ProgressResetMs int    `toml:"progress_reset_ms"`
}

// AutocorrectConfig controls the suggestion flow.
type AutocorrectConfig struct {
	Enabled      bool    `toml:"enabled"`
	DebounceMs   int     `toml:"debounce_ms"`
	MinChars     int     `toml:"min_chars"`
	TimeoutMs    int     `toml:"timeout_ms"`
	RatePerSec   float64 `toml:"rate_per_sec"`
	Burst        int     `toml:"burst"`
	CacheTTLSecs int     `toml:"cache_ttl_secs"`
}

// StorageConfig selects where sessions are persisted.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory".
	Backend string `toml:"backend"`
	// Dir holds the data files; empty means <config dir>/data.
	Dir string `toml:"dir"`
	// Key is the record key the session list is stored under.
	Key string `toml:"key"`
	// Watch reloads sessions when another process rewrites them.
	Watch bool `toml:"watch"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Level string `toml:"level"`
	// File is the log path; empty means <config dir>/nebula.log.
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// ShowTrace opens the research panel for fast-mode runs too.
	ShowTrace bool `toml:"show_trace"`
	WordWrap  int  `toml:"word_wrap"`
	// Markdown style: "auto", "dark", "light" or "notty".
	MarkdownStyle string `toml:"markdown_style"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			BaseURL:            "http://127.0.0.1:8000",
			StreamPath:         "/api/stream_chat",
			AutocorrectPath:    "/api/autocorrect",
			ConnectTimeoutSecs: 10,
		},
		Run: RunConfig{
			DefaultMode:     "fast",
			TickMs:          100,
			ProgressResetMs: 800,
		},
		Autocorrect: AutocorrectConfig{
			Enabled:      true,
			DebounceMs:   300,
			MinChars:     3,
			TimeoutMs:    4000,
			RatePerSec:   4,
			Burst:        2,
			CacheTTLSecs: 600,
		},
		Storage: StorageConfig{
			Backend: "file",
			Key:     "nebula.sessions.v1",
			Watch:   true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		UI: UIConfig{
			WordWrap:      80,
			MarkdownStyle: "auto",
		},
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// StreamURL returns the absolute URL of the streaming endpoint.
func (c *Config) StreamURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + c.Server.StreamPath
}

// AutocorrectURL returns the absolute URL of the suggestion endpoint.
func (c *Config) AutocorrectURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + c.Server.AutocorrectPath
}

func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Server.ConnectTimeoutSecs) * time.Second
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Run.TickMs) * time.Millisecond
}

func (c *Config) ProgressResetDelay() time.Duration {
	return time.Duration(c.Run.ProgressResetMs) * time.Millisecond
}

func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Autocorrect.DebounceMs) * time.Millisecond
}

func (c *Config) AutocorrectTimeout() time.Duration {
	return time.Duration(c.Autocorrect.TimeoutMs) * time.Millisecond
}

func (c *Config) SuggestionTTL() time.Duration {
	return time.Duration(c.Autocorrect.CacheTTLSecs) * time.Second
}

// DataDir returns the directory session data is stored in.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// LogPath returns the log file path.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nebula.log"), nil
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the nebula configuration directory. NEBULA_HOME wins over
// ~/.nebula.
func ConfigDir() (string, error) {
	if home := os.Getenv("NEBULA_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".nebula"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config file if present, applies environment overrides and
// validates the result. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads a specific TOML file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults replaces zero values that an explicit file may have set.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.Version == "" {
		cfg.Version = d.Version
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = d.Server.BaseURL
	}
	if cfg.Server.StreamPath == "" {
		cfg.Server.StreamPath = d.Server.StreamPath
	}
	if cfg.Server.AutocorrectPath == "" {
		cfg.Server.AutocorrectPath = d.Server.AutocorrectPath
	}
	if cfg.Server.ConnectTimeoutSecs == 0 {
		cfg.Server.ConnectTimeoutSecs = d.Server.ConnectTimeoutSecs
	}
	if cfg.Run.DefaultMode == "" {
		cfg.Run.DefaultMode = d.Run.DefaultMode
	}
	if cfg.Run.TickMs == 0 {
		cfg.Run.TickMs = d.Run.TickMs
	}
	if cfg.Run.ProgressResetMs == 0 {
		cfg.Run.ProgressResetMs = d.Run.ProgressResetMs
	}
	if cfg.Autocorrect.MinChars == 0 {
		cfg.Autocorrect.MinChars = d.Autocorrect.MinChars
	}
	if cfg.Autocorrect.TimeoutMs == 0 {
		cfg.Autocorrect.TimeoutMs = d.Autocorrect.TimeoutMs
	}
	if cfg.Autocorrect.RatePerSec == 0 {
		cfg.Autocorrect.RatePerSec = d.Autocorrect.RatePerSec
	}
	if cfg.Autocorrect.Burst == 0 {
		cfg.Autocorrect.Burst = d.Autocorrect.Burst
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = d.Storage.Backend
	}
	if cfg.Storage.Key == "" {
		cfg.Storage.Key = d.Storage.Key
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.UI.WordWrap == 0 {
		cfg.UI.WordWrap = d.UI.WordWrap
	}
	if cfg.UI.MarkdownStyle == "" {
		cfg.UI.MarkdownStyle = d.UI.MarkdownStyle
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with a short header.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# nebula configuration file\n")
	buf.WriteString("# Environment variables NEBULA_* override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Server.BaseURL),
		})
	}
	for field, p := range map[string]string{
		"server.stream_path":      c.Server.StreamPath,
		"server.autocorrect_path": c.Server.AutocorrectPath,
	} {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, ValidationError{Field: field, Message: "must start with '/'"})
		}
	}

	switch strings.ToLower(c.Run.DefaultMode) {
	case "fast", "thorough":
	default:
		errs = append(errs, ValidationError{
			Field:   "run.default_mode",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: fast, thorough", c.Run.DefaultMode),
		})
	}
	if c.Run.TickMs < 10 || c.Run.TickMs > 1000 {
		errs = append(errs, ValidationError{Field: "run.tick_ms", Message: "must be between 10 and 1000"})
	}
	if c.Run.ProgressResetMs < 0 {
		errs = append(errs, ValidationError{Field: "run.progress_reset_ms", Message: "must not be negative"})
	}

	if c.Autocorrect.DebounceMs < 0 || c.Autocorrect.DebounceMs > 5000 {
		errs = append(errs, ValidationError{Field: "autocorrect.debounce_ms", Message: "must be between 0 and 5000"})
	}
	if c.Autocorrect.MinChars < 1 {
		errs = append(errs, ValidationError{Field: "autocorrect.min_chars", Message: "must be at least 1"})
	}
	if c.Autocorrect.RatePerSec < 0 {
		errs = append(errs, ValidationError{Field: "autocorrect.rate_per_sec", Message: "must not be negative"})
	}

	switch c.Storage.Backend {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		errs = append(errs, ValidationError{Field: "storage.key", Message: "must not be empty"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - NEBULA_BASE_URL: server.base_url
//   - NEBULA_MODE: run.default_mode
//   - NEBULA_AUTOCORRECT: autocorrect.enabled ("1"/"true" or "0"/"false")
//   - NEBULA_STORAGE: storage.backend
//   - NEBULA_LOG_LEVEL: log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NEBULA_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("NEBULA_MODE"); v != "" {
		c.Run.DefaultMode = strings.ToLower(v)
	}
	if v := os.Getenv("NEBULA_AUTOCORRECT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Autocorrect.Enabled = b
		}
	}
	if v := os.Getenv("NEBULA_STORAGE"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("NEBULA_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Clone returns a copy; Config holds no reference fields.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first access.
// A load failure falls back to defaults.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal replaces the global configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
