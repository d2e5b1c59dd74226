// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package location

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// CACHED PROVIDER
// =============================================================================

// Cached wraps a provider with MaximumAge and Timeout semantics: a
// recent enough fix is served from cache, and a slow lookup becomes
// ErrTimeout rather than a bare deadline error.
type Cached struct {
	inner Provider

	mu      sync.Mutex
	last    Position
	hasLast bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewCached wraps a provider.
func NewCached(inner Provider) *Cached {
	return &Cached{inner: inner, now: time.Now}
}

// GetCurrentPosition serves from cache when the last fix is within
// MaximumAge, otherwise performs a bounded fresh lookup.
func (c *Cached) GetCurrentPosition(ctx context.Context, opts Options) (Position, error) {
	if opts.MaximumAge > 0 {
		c.mu.Lock()
		if c.hasLast && c.now().Sub(c.last.Timestamp) <= opts.MaximumAge {
			pos := c.last
			c.mu.Unlock()
			return pos, nil
		}
		c.mu.Unlock()
	}

	pos, err := getWithTimeout(ctx, c.inner, opts)
	if err != nil {
		return Position{}, err
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = c.now()
	}

	c.mu.Lock()
	c.last = pos
	c.hasLast = true
	c.mu.Unlock()
	return pos, nil
}

// WatchPosition delegates to the inner provider when it has a native
// watch, feeding the cache as fixes arrive.
func (c *Cached) WatchPosition(ctx context.Context, opts Options) (<-chan Update, func(), error) {
	inner, stop, err := c.inner.WatchPosition(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	updates := make(chan Update, 8)
	go func() {
		defer close(updates)
		for u := range inner {
			if u.Err == nil {
				c.mu.Lock()
				c.last = u.Position
				c.hasLast = true
				c.mu.Unlock()
			}
			select {
			case updates <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates, stop, nil
}
