// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists UniAlerta client configuration.
//
// Precedence (highest wins):
//  1. Environment variables (UNIALERTA_*)
//  2. ~/.unialerta/config.toml
//  3. Built-in defaults
//
// The config file is written with 0600 permissions because it may
// carry the backend URL and assistant endpoint of a private campus
// deployment.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/unialerta/uce-tui/internal/util"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the root configuration.
type Config struct {
	Assistant     AssistantConfig     `toml:"assistant" json:"assistant"`
	Backend       BackendConfig       `toml:"backend" json:"backend"`
	Notifications NotificationsConfig `toml:"notifications" json:"notifications"`
	Location      LocationConfig      `toml:"location" json:"location"`
	UI            UIConfig            `toml:"ui" json:"ui"`
	Session       SessionConfig       `toml:"session" json:"session"`
}

// AssistantConfig configures the streaming assistant endpoint.
type AssistantConfig struct {
	// BaseURL of the assistant gateway.
	BaseURL string `toml:"base_url" json:"base_url"`

	// Model name requested from the gateway.
	Model string `toml:"model" json:"model"`

	// TimeoutSeconds bounds a whole streaming turn.
	TimeoutSeconds int `toml:"timeout_seconds" json:"timeout_seconds"`

	// MaxRetries applies to connection establishment only. Once the
	// first byte arrives a failed stream is never retried.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// BackendConfig configures the UCE REST backend.
type BackendConfig struct {
	BaseURL        string `toml:"base_url" json:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds" json:"timeout_seconds"`
}

// NotificationsConfig configures the permission prompt.
type NotificationsConfig struct {
	// PromptDelayMs is how long after startup the permission prompt
	// may appear. 0 shows it immediately.
	PromptDelayMs int `toml:"prompt_delay_ms" json:"prompt_delay_ms"`

	// Variant selects the prompt presentation: banner, modal, inline.
	Variant string `toml:"variant" json:"variant"`
}

// LocationConfig configures geolocation defaults.
type LocationConfig struct {
	EnableHighAccuracy bool `toml:"enable_high_accuracy" json:"enable_high_accuracy"`
	TimeoutMs          int  `toml:"timeout_ms" json:"timeout_ms"`
	MaximumAgeMs       int  `toml:"maximum_age_ms" json:"maximum_age_ms"`

	// CampusLatitude/CampusLongitude are the static fallback position
	// used when no platform provider is available.
	CampusLatitude  float64 `toml:"campus_latitude" json:"campus_latitude"`
	CampusLongitude float64 `toml:"campus_longitude" json:"campus_longitude"`

	// LocatorCommand, when set, is an external positioning command
	// (GeoClue where-am-i, CoreLocationCLI) used instead of the static
	// campus position. It must print latitude then longitude.
	LocatorCommand string `toml:"locator_command" json:"locator_command"`
}

// UIConfig configures terminal rendering.
type UIConfig struct {
	// Theme is "auto", "dark", or "light".
	Theme string `toml:"theme" json:"theme"`

	// SyntaxStyle is the chroma style for code blocks.
	SyntaxStyle string `toml:"syntax_style" json:"syntax_style"`

	// Plain forces the liner REPL instead of the full TUI.
	Plain bool `toml:"plain" json:"plain"`
}

// SessionConfig configures the inactivity session manager.
type SessionConfig struct {
	TimeoutMinutes  int  `toml:"timeout_minutes" json:"timeout_minutes"`
	WarningMinutes  int  `toml:"warning_minutes" json:"warning_minutes"`
	AutoSaveSeconds int  `toml:"auto_save_seconds" json:"auto_save_seconds"`
	LockOnTimeout   bool `toml:"lock_on_timeout" json:"lock_on_timeout"`

	// TOTPSecret, when set, requires a one-time code on top of the
	// unlock passphrase. Base32 per RFC 6238.
	TOTPSecret string `toml:"totp_secret" json:"-"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Assistant: AssistantConfig{
			BaseURL:        "https://asistente.unialerta.edu.ec",
			Model:          "uce-assistant-v2",
			TimeoutSeconds: 60,
			MaxRetries:     3,
		},
		Backend: BackendConfig{
			BaseURL:        "https://api.unialerta.edu.ec",
			TimeoutSeconds: 30,
		},
		Notifications: NotificationsConfig{
			PromptDelayMs: 3000,
			Variant:       "banner",
		},
		Location: LocationConfig{
			EnableHighAccuracy: false,
			TimeoutMs:          10000,
			MaximumAgeMs:       60000,
			// Universidad Central del Ecuador, Quito.
			CampusLatitude:  -0.1987,
			CampusLongitude: -78.5034,
		},
		UI: UIConfig{
			Theme:       "auto",
			SyntaxStyle: "monokai",
			Plain:       false,
		},
		Session: SessionConfig{
			TimeoutMinutes:  15,
			WarningMinutes:  2,
			AutoSaveSeconds: 30,
			LockOnTimeout:   true,
		},
	}
}

// AssistantTimeout returns the assistant timeout as a duration.
func (c *Config) AssistantTimeout() time.Duration {
	return time.Duration(c.Assistant.TimeoutSeconds) * time.Second
}

// BackendTimeout returns the backend timeout as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// PromptDelay returns the notification prompt delay as a duration.
func (c *Config) PromptDelay() time.Duration {
	return time.Duration(c.Notifications.PromptDelayMs) * time.Millisecond
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns ~/.unialerta, creating nothing.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".unialerta"), nil
}

// ConfigPath returns the TOML config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory with 0700 permissions.
func EnsureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads configuration from the default path, applying defaults
// for missing fields and environment overrides on top. A missing file
// is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		ensureSecurePermissions(path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes configuration to the default path atomically with 0600
// permissions.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// ensureSecurePermissions tightens the config file to 0600 if a prior
// version left it wider.
func ensureSecurePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm() != 0600 {
		os.Chmod(path, 0600)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// applyEnvOverrides applies UNIALERTA_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UNIALERTA_ASSISTANT_URL"); v != "" {
		cfg.Assistant.BaseURL = v
	}
	if v := os.Getenv("UNIALERTA_ASSISTANT_MODEL"); v != "" {
		cfg.Assistant.Model = v
	}
	if v := os.Getenv("UNIALERTA_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("UNIALERTA_PROMPT_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Notifications.PromptDelayMs = n
		}
	}
	if v := os.Getenv("UNIALERTA_PLAIN"); v != "" {
		cfg.UI.Plain = v == "1" || v == "true"
	}
	if v := os.Getenv("UNIALERTA_THEME"); v != "" {
		cfg.UI.Theme = v
	}
}

// =============================================================================
// GLOBAL ACCESSOR
// =============================================================================

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// Set replaces the process-wide configuration. Used by the watcher on
// reload and by tests.
func Set(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}
