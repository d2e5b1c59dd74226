// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"context"
	"sync"
)

// =============================================================================
// STORED PROVIDER
// =============================================================================

// KV is the minimal settings surface the stored provider needs. The
// storage package satisfies it.
type KV interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

const keyPermissionState = "notifications.permission"

// StoredProvider keeps the permission decision in the settings store.
// Terminal sessions have no browser permission API, so the decision
// made in the prompt is the decision of record.
type StoredProvider struct {
	kv KV

	mu sync.Mutex
	// requestResult is what the next Request returns. The UI sets it
	// from the user's button choice before calling Accept.
	requestResult PermissionState
}

// NewStoredProvider creates a provider over the settings store.
func NewStoredProvider(kv KV) *StoredProvider {
	return &StoredProvider{kv: kv, requestResult: StateGranted}
}

// Supported is always true for the stored provider.
func (p *StoredProvider) Supported() bool {
	return true
}

// State returns the stored permission, defaulting to undecided.
func (p *StoredProvider) State() PermissionState {
	value, err := p.kv.GetSetting(keyPermissionState)
	if err != nil {
		return StateDefault
	}
	state := PermissionState(value)
	if !state.Valid() {
		return StateDefault
	}
	return state
}

// SetRequestResult primes what the next Request returns.
func (p *StoredProvider) SetRequestResult(state PermissionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestResult = state
}

// Request persists and returns the primed decision.
func (p *StoredProvider) Request(ctx context.Context) (PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return StateDefault, err
	}

	p.mu.Lock()
	state := p.requestResult
	p.mu.Unlock()

	if err := p.kv.SetSetting(keyPermissionState, string(state)); err != nil {
		return StateDefault, err
	}
	return state, nil
}

// =============================================================================
// UNSUPPORTED PROVIDER
// =============================================================================

// UnsupportedProvider is used where the platform has no notification
// surface at all; the prompt then never shows.
type UnsupportedProvider struct{}

func (UnsupportedProvider) Supported() bool        { return false }
func (UnsupportedProvider) State() PermissionState { return StateDefault }
func (UnsupportedProvider) Request(context.Context) (PermissionState, error) {
	return StateDefault, nil
}
