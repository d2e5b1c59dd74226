// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "uce-assistant-v2", cfg.Assistant.Model)
	assert.Equal(t, 60, cfg.Assistant.TimeoutSeconds)
	assert.Equal(t, 3000, cfg.Notifications.PromptDelayMs)
	assert.Equal(t, "banner", cfg.Notifications.Variant)
	assert.Equal(t, 15, cfg.Session.TimeoutMinutes)
	assert.Equal(t, "monokai", cfg.UI.SyntaxStyle)

	assert.Equal(t, 60*time.Second, cfg.AssistantTimeout())
	assert.Equal(t, 3*time.Second, cfg.PromptDelay())
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Assistant.BaseURL, cfg.Assistant.BaseURL)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Assistant.Model = "uce-assistant-v3"
	cfg.Notifications.PromptDelayMs = 0
	cfg.UI.Plain = true
	require.NoError(t, cfg.SaveTo(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "uce-assistant-v3", loaded.Assistant.Model)
	assert.Equal(t, 0, loaded.Notifications.PromptDelayMs)
	assert.True(t, loaded.UI.Plain)
	assert.Equal(t, time.Duration(0), loaded.PromptDelay())
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[assistant]\nmodel = \"custom\"\n"), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Assistant.Model)
	assert.Equal(t, Default().Assistant.TimeoutSeconds, cfg.Assistant.TimeoutSeconds)
	assert.Equal(t, Default().Backend.BaseURL, cfg.Backend.BaseURL)
}

func TestInvalidFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("UNIALERTA_ASSISTANT_URL", "http://localhost:9999")
	t.Setenv("UNIALERTA_PROMPT_DELAY_MS", "0")
	t.Setenv("UNIALERTA_PLAIN", "true")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", cfg.Assistant.BaseURL)
	assert.Equal(t, 0, cfg.Notifications.PromptDelayMs)
	assert.True(t, cfg.UI.Plain)
}

func TestEnvOverrideRejectsNegativeDelay(t *testing.T) {
	t.Setenv("UNIALERTA_PROMPT_DELAY_MS", "-5")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Notifications.PromptDelayMs, cfg.Notifications.PromptDelayMs)
}

func TestLoadTightensPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"dark\"\n"), 0644))

	_, err := LoadFrom(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	require.NoError(t, cfg.SaveTo(path))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	cfg.Assistant.Model = "reloaded-model"
	require.NoError(t, cfg.SaveTo(path))

	select {
	case got := <-reloaded:
		assert.Equal(t, "reloaded-model", got.Assistant.Model)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload config")
	}
}
