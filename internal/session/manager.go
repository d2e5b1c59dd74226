// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks admin session activity: inactivity timeout
// with a warning ahead of it, periodic autosave, and an optional lock
// screen guarded by a passphrase digest and TOTP.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config controls the session manager.
type Config struct {
	// Timeout is the inactivity window before the session locks.
	Timeout time.Duration

	// WarningBefore is how long before timeout the warning fires.
	WarningBefore time.Duration

	// AutoSaveInterval is the autosave period. Zero disables autosave.
	AutoSaveInterval time.Duration
}

// DefaultConfig returns the standard session policy.
func DefaultConfig() Config {
	return Config{
		Timeout:          15 * time.Minute,
		WarningBefore:    2 * time.Minute,
		AutoSaveInterval: 30 * time.Second,
	}
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager watches activity and fires timeout, warning, and autosave
// callbacks. Callbacks run on the manager goroutine; keep them short.
type Manager struct {
	mu           sync.Mutex
	sessionID    string
	startTime    time.Time
	lastActivity time.Time
	warned       bool
	timedOut     bool

	config Config

	onTimeout  func()
	onWarning  func(remaining time.Duration)
	onAutoSave func()

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates a session manager.
func NewManager(config Config) *Manager {
	now := time.Now()
	return &Manager{
		sessionID:    uuid.New().String(),
		startTime:    now,
		lastActivity: now,
		config:       config,
		stopCh:       make(chan struct{}),
	}
}

// SessionID returns the session identifier.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// OnTimeout registers the timeout callback.
func (m *Manager) OnTimeout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTimeout = fn
}

// OnWarning registers the pre-timeout warning callback.
func (m *Manager) OnWarning(fn func(remaining time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWarning = fn
}

// OnAutoSave registers the autosave callback.
func (m *Manager) OnAutoSave(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAutoSave = fn
}

// Touch records user activity, resetting the inactivity clock and a
// pending warning.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
	m.warned = false
	m.timedOut = false
}

// Idle returns how long since the last activity.
func (m *Manager) Idle() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastActivity)
}

// Start runs the watch loop until Stop.
func (m *Manager) Start() {
	go m.watch()
	if m.config.AutoSaveInterval > 0 {
		go m.autoSaveLoop()
	}
}

// Stop ends the watch loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// watch checks inactivity once a second.
func (m *Manager) watch() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// check fires the warning and timeout callbacks when due.
func (m *Manager) check() {
	m.mu.Lock()
	idle := time.Since(m.lastActivity)
	remaining := m.config.Timeout - idle

	var warn func(time.Duration)
	var fire func()

	if !m.timedOut && remaining <= 0 {
		m.timedOut = true
		fire = m.onTimeout
	} else if !m.warned && !m.timedOut && remaining <= m.config.WarningBefore {
		m.warned = true
		warn = m.onWarning
	}
	m.mu.Unlock()

	if warn != nil {
		warn(remaining)
	}
	if fire != nil {
		fire()
	}
}

// autoSaveLoop fires autosave on its interval.
func (m *Manager) autoSaveLoop() {
	ticker := time.NewTicker(m.config.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.mu.Lock()
			save := m.onAutoSave
			m.mu.Unlock()
			if save != nil {
				save()
			}
		}
	}
}
