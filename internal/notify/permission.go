// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify drives the notification permission prompt lifecycle.
//
// The prompt appears once, after a configurable delay, and only while
// permission is still undecided and the user has never dismissed it.
// The dismissal flag lives behind an explicit store interface rather
// than any global state, so it survives restarts and is trivial to
// fake in tests. Presentation (banner, modal, inline) is owned by the
// UI layer; all three variants share this state machine.
package notify

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// PERMISSION STATE
// =============================================================================

// PermissionState is the platform notification permission.
type PermissionState string

const (
	// StateDefault means the user has not decided yet.
	StateDefault PermissionState = "default"
	StateGranted PermissionState = "granted"
	StateDenied  PermissionState = "denied"
)

// Valid reports whether the state is one of the known values.
func (s PermissionState) Valid() bool {
	switch s {
	case StateDefault, StateGranted, StateDenied:
		return true
	}
	return false
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Provider exposes the platform notification permission.
type Provider interface {
	// Supported reports whether notifications exist on this platform.
	Supported() bool

	// State returns the current permission.
	State() PermissionState

	// Request asks the user for permission and returns the resulting
	// state (granted or denied).
	Request(ctx context.Context) (PermissionState, error)
}

// DismissalStore persists the one-time dismissal flag.
type DismissalStore interface {
	Dismissed() (bool, error)
	SetDismissed(bool) error
}

// =============================================================================
// PROMPT VARIANTS
// =============================================================================

// Variant selects the prompt presentation. All variants share the same
// state machine.
type Variant string

const (
	VariantBanner Variant = "banner"
	VariantModal  Variant = "modal"
	VariantInline Variant = "inline"
)

// ErrUnknownVariant is returned for strings outside the variant set.
var ErrUnknownVariant = errors.New("unknown prompt variant")

// ParseVariant parses a variant string, defaulting "" to banner.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantBanner:
		return VariantBanner, nil
	case VariantModal, VariantInline:
		return Variant(s), nil
	}
	return VariantBanner, ErrUnknownVariant
}

// =============================================================================
// PROMPT STATE MACHINE
// =============================================================================

// Phase is the prompt lifecycle phase.
type Phase int

const (
	// PhaseHidden: the delay has not elapsed or conditions never held.
	PhaseHidden Phase = iota
	// PhaseVisible: the prompt is on screen.
	PhaseVisible
	// PhaseDismissed: the user closed the prompt; never shown again.
	PhaseDismissed
	// PhaseGranted: permission granted.
	PhaseGranted
	// PhaseDenied: permission denied.
	PhaseDenied
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseHidden:
		return "hidden"
	case PhaseVisible:
		return "visible"
	case PhaseDismissed:
		return "dismissed"
	case PhaseGranted:
		return "granted"
	case PhaseDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Prompt is the permission prompt state machine. Not safe for
// concurrent use; drive it from one update loop.
type Prompt struct {
	provider Provider
	store    DismissalStore
	delay    time.Duration

	phase     Phase
	startedAt time.Time
	started   bool
}

// NewPrompt creates a prompt with the given show delay. Delay 0 makes
// the prompt eligible immediately.
func NewPrompt(provider Provider, store DismissalStore, delay time.Duration) *Prompt {
	if delay < 0 {
		delay = 0
	}
	return &Prompt{
		provider: provider,
		store:    store,
		delay:    delay,
	}
}

// Phase returns the current lifecycle phase.
func (p *Prompt) Phase() Phase {
	return p.phase
}

// Visible reports whether the prompt should render.
func (p *Prompt) Visible() bool {
	return p.phase == PhaseVisible
}

// Begin starts the show-delay clock. Calling it again is a no-op.
func (p *Prompt) Begin(now time.Time) {
	if p.started {
		return
	}
	p.started = true
	p.startedAt = now
}

// Tick advances the state machine. It transitions hidden → visible
// once the delay has elapsed and every condition holds: notifications
// supported, permission undecided, never dismissed. Returns true when
// the prompt became visible on this tick.
func (p *Prompt) Tick(now time.Time) bool {
	if p.phase != PhaseHidden || !p.started {
		return false
	}
	if now.Sub(p.startedAt) < p.delay {
		return false
	}

	if !p.provider.Supported() {
		return false
	}
	switch p.provider.State() {
	case StateGranted:
		p.phase = PhaseGranted
		return false
	case StateDenied:
		p.phase = PhaseDenied
		return false
	}

	dismissed, err := p.store.Dismissed()
	if err != nil {
		// Unable to read the flag: stay hidden rather than nag.
		return false
	}
	if dismissed {
		p.phase = PhaseDismissed
		return false
	}

	p.phase = PhaseVisible
	return true
}

// Dismiss closes the prompt and persists the dismissal flag so it
// never shows again.
func (p *Prompt) Dismiss() error {
	if p.phase != PhaseVisible {
		return nil
	}
	p.phase = PhaseDismissed
	return p.store.SetDismissed(true)
}

// Accept requests permission from the provider and settles the prompt
// into granted or denied.
func (p *Prompt) Accept(ctx context.Context) (PermissionState, error) {
	if p.phase != PhaseVisible {
		return p.provider.State(), nil
	}

	state, err := p.provider.Request(ctx)
	if err != nil {
		// Request failed: keep the prompt up so the user can retry or
		// dismiss.
		return StateDefault, err
	}

	switch state {
	case StateGranted:
		p.phase = PhaseGranted
	case StateDenied:
		p.phase = PhaseDenied
	default:
		// Provider left it undecided; treat like a dismissal without
		// persisting, so a later session can ask again.
		p.phase = PhaseHidden
		p.started = false
	}
	return state, nil
}
