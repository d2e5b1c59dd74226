// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package location abstracts position lookup for attaching coordinates
// to incident reports. Providers sit behind one interface; the client
// ships a static campus-coordinates provider for terminals without a
// positioning service, and a caching wrapper that implements the
// timeout and maximum-age semantics callers expect.
//
// Timeouts and permission refusals are distinct errors: a timeout is
// retryable and the user should be told to try again, a refusal is
// settled and the UI falls back to manual coordinates.
package location

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrTimeout             = errors.New("position lookup timed out")
	ErrPermissionDenied    = errors.New("position access denied")
	ErrPositionUnavailable = errors.New("position unavailable")
)

// =============================================================================
// TYPES
// =============================================================================

// Position is a geographic fix.
type Position struct {
	Latitude  float64
	Longitude float64
	// Accuracy is the fix radius in meters.
	Accuracy  float64
	Timestamp time.Time
}

// Options controls a lookup.
type Options struct {
	// EnableHighAccuracy requests a precise fix where the provider
	// can trade power for accuracy.
	EnableHighAccuracy bool

	// Timeout bounds one lookup. Zero means no explicit bound beyond
	// the caller's context.
	Timeout time.Duration

	// MaximumAge allows a cached fix no older than this. Zero forces
	// a fresh lookup.
	MaximumAge time.Duration
}

// Update is one event on a watch channel.
type Update struct {
	Position Position
	Err      error
}

// Provider looks up positions.
type Provider interface {
	// GetCurrentPosition returns one fix.
	GetCurrentPosition(ctx context.Context, opts Options) (Position, error)

	// WatchPosition emits fixes until stop is called or ctx ends. The
	// channel closes when the watch stops.
	WatchPosition(ctx context.Context, opts Options) (<-chan Update, func(), error)
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// StaticProvider always returns a fixed position. Used as the campus
// fallback when no positioning service exists.
type StaticProvider struct {
	Lat float64
	Lon float64
}

// campusAccuracy is the nominal radius of a campus in meters.
const campusAccuracy = 500

// GetCurrentPosition returns the fixed position.
func (p *StaticProvider) GetCurrentPosition(ctx context.Context, opts Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return Position{
		Latitude:  p.Lat,
		Longitude: p.Lon,
		Accuracy:  campusAccuracy,
		Timestamp: time.Now(),
	}, nil
}

// WatchPosition polls the static position.
func (p *StaticProvider) WatchPosition(ctx context.Context, opts Options) (<-chan Update, func(), error) {
	return pollWatch(ctx, p, opts)
}

// =============================================================================
// POLLING WATCH
// =============================================================================

// pollInterval is how often a polling watch refreshes.
const pollInterval = 5 * time.Second

// pollWatch implements WatchPosition on top of GetCurrentPosition for
// providers without a native watch.
func pollWatch(ctx context.Context, p Provider, opts Options) (<-chan Update, func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	updates := make(chan Update, 8)

	emit := func() {
		pos, err := getWithTimeout(watchCtx, p, opts)
		if watchCtx.Err() != nil {
			return
		}
		select {
		case updates <- Update{Position: pos, Err: err}:
		default:
			// Drop when the consumer is behind; the next poll
			// supersedes a stale fix anyway.
		}
	}

	go func() {
		defer close(updates)
		emit()

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				emit()
			}
		}
	}()

	return updates, cancel, nil
}

// getWithTimeout applies Options.Timeout and maps the deadline onto
// ErrTimeout.
func getWithTimeout(ctx context.Context, p Provider, opts Options) (Position, error) {
	if opts.Timeout <= 0 {
		return p.GetCurrentPosition(ctx, opts)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	pos, err := p.GetCurrentPosition(timeoutCtx, opts)
	if err != nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Position{}, ErrTimeout
	}
	return pos, err
}
