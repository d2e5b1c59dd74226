// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a scriptable Provider.
type fakeProvider struct {
	pos   Position
	err   error
	delay time.Duration
	calls int
}

func (f *fakeProvider) GetCurrentPosition(ctx context.Context, opts Options) (Position, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Position{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Position{}, f.err
	}
	return f.pos, nil
}

func (f *fakeProvider) WatchPosition(ctx context.Context, opts Options) (<-chan Update, func(), error) {
	return pollWatch(ctx, f, opts)
}

func TestStaticProvider(t *testing.T) {
	p := &StaticProvider{Lat: -0.1987, Lon: -78.5034}

	pos, err := p.GetCurrentPosition(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, -0.1987, pos.Latitude)
	assert.Equal(t, -78.5034, pos.Longitude)
	assert.False(t, pos.Timestamp.IsZero())
}

func TestTimeoutMapsToErrTimeout(t *testing.T) {
	slow := &fakeProvider{delay: time.Second}
	c := NewCached(slow)

	_, err := c.GetCurrentPosition(context.Background(), Options{Timeout: 20 * time.Millisecond})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}

func TestPermissionDeniedPassesThrough(t *testing.T) {
	denied := &fakeProvider{err: ErrPermissionDenied}
	c := NewCached(denied)

	_, err := c.GetCurrentPosition(context.Background(), Options{Timeout: time.Second})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestCallerCancelIsNotATimeout(t *testing.T) {
	slow := &fakeProvider{delay: time.Second}
	c := NewCached(slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.GetCurrentPosition(ctx, Options{Timeout: 10 * time.Second})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestCachedHonorsMaximumAge(t *testing.T) {
	inner := &fakeProvider{pos: Position{Latitude: 1, Longitude: 2}}
	c := NewCached(inner)

	now := time.Now()
	c.now = func() time.Time { return now }

	first, err := c.GetCurrentPosition(context.Background(), Options{MaximumAge: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	// Within MaximumAge: served from cache, no new lookup.
	second, err := c.GetCurrentPosition(context.Background(), Options{MaximumAge: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)

	// Cache expired: fresh lookup.
	now = now.Add(2 * time.Minute)
	_, err = c.GetCurrentPosition(context.Background(), Options{MaximumAge: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedZeroMaxAgeForcesFreshLookup(t *testing.T) {
	inner := &fakeProvider{pos: Position{Latitude: 1}}
	c := NewCached(inner)

	_, err := c.GetCurrentPosition(context.Background(), Options{})
	require.NoError(t, err)
	_, err = c.GetCurrentPosition(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestWatchEmitsAndStops(t *testing.T) {
	p := &StaticProvider{Lat: 5, Lon: 6}

	updates, stop, err := p.WatchPosition(context.Background(), Options{})
	require.NoError(t, err)

	select {
	case u := <-updates:
		require.NoError(t, u.Err)
		assert.Equal(t, 5.0, u.Position.Latitude)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	stop()
	// Channel closes after stop.
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("channel did not close after stop")
		}
	}
}
