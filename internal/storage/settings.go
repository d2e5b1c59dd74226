// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// Well-known setting keys.
const (
	keyPromptDismissed = "notifications.prompt_dismissed"
	keyLockSalt        = "session.lock_salt"
	keyLockDigest      = "session.lock_digest"
)

// =============================================================================
// SETTINGS KV
// =============================================================================

// GetSetting returns a setting value. ErrNotFound when absent.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return value, nil
}

// SetSetting stores a setting value, replacing any existing one.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// DeleteSetting removes a setting. Missing keys are not an error.
func (s *Store) DeleteSetting(key string) error {
	if _, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// getBoolSetting reads a boolean setting, defaulting to false.
func (s *Store) getBoolSetting(key string) (bool, error) {
	value, err := s.GetSetting(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// setBoolSetting stores a boolean setting.
func (s *Store) setBoolSetting(key string, v bool) error {
	value := "false"
	if v {
		value = "true"
	}
	return s.SetSetting(key, value)
}

// =============================================================================
// NOTIFICATION SETTINGS
// =============================================================================

// NotificationSettings adapts the settings table to the dismissal
// store the permission prompt expects.
type NotificationSettings struct {
	store *Store
}

// NotificationSettings returns the dismissal store backed by this
// database.
func (s *Store) NotificationSettings() *NotificationSettings {
	return &NotificationSettings{store: s}
}

// Dismissed reports whether the user dismissed the permission prompt.
func (n *NotificationSettings) Dismissed() (bool, error) {
	return n.store.getBoolSetting(keyPromptDismissed)
}

// SetDismissed persists the dismissal flag.
func (n *NotificationSettings) SetDismissed(v bool) error {
	return n.store.setBoolSetting(keyPromptDismissed, v)
}

// =============================================================================
// SESSION LOCK
// =============================================================================

// LockCredentials returns the stored session-lock salt and digest.
// ErrNotFound when no lock passphrase has been set.
func (s *Store) LockCredentials() (salt, digest string, err error) {
	salt, err = s.GetSetting(keyLockSalt)
	if err != nil {
		return "", "", err
	}
	digest, err = s.GetSetting(keyLockDigest)
	if err != nil {
		return "", "", err
	}
	return salt, digest, nil
}

// SetLockCredentials stores the session-lock salt and digest.
func (s *Store) SetLockCredentials(salt, digest string) error {
	if err := s.SetSetting(keyLockSalt, salt); err != nil {
		return err
	}
	return s.SetSetting(keyLockDigest, digest)
}
