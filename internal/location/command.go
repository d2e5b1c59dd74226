// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package location

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// COMMAND PROVIDER
// =============================================================================

// CommandProvider shells out to a platform locator such as GeoClue's
// where-am-i demo or CoreLocationCLI. The command must print latitude
// and longitude as the first two decimal numbers on its output.
type CommandProvider struct {
	// Path is the locator binary.
	Path string

	// Args are passed verbatim. High accuracy appends ExtraAccuracyArgs
	// when set.
	Args              []string
	ExtraAccuracyArgs []string
}

// GetCurrentPosition runs the locator once and parses the fix.
func (p *CommandProvider) GetCurrentPosition(ctx context.Context, opts Options) (Position, error) {
	args := p.Args
	if opts.EnableHighAccuracy && len(p.ExtraAccuracyArgs) > 0 {
		args = append(append([]string{}, args...), p.ExtraAccuracyArgs...)
	}

	out, err := exec.CommandContext(ctx, p.Path, args...).CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr == context.DeadlineExceeded {
		return Position{}, ErrTimeout
	} else if ctxErr != nil {
		return Position{}, ctxErr
	}
	if err != nil {
		if strings.Contains(strings.ToLower(string(out)), "denied") {
			return Position{}, ErrPermissionDenied
		}
		return Position{}, ErrPositionUnavailable
	}

	pos, ok := parseFix(string(out))
	if !ok {
		return Position{}, ErrPositionUnavailable
	}
	return pos, nil
}

// WatchPosition polls the locator.
func (p *CommandProvider) WatchPosition(ctx context.Context, opts Options) (<-chan Update, func(), error) {
	return pollWatch(ctx, p, opts)
}

// parseFix extracts the first two decimal numbers from locator output.
// Both GeoClue's where-am-i and CoreLocationCLI lead with latitude then
// longitude; labels and units around the numbers are ignored.
func parseFix(out string) (Position, bool) {
	var coords []float64
	for _, field := range strings.FieldsFunc(out, func(r rune) bool {
		return r != '-' && r != '.' && (r < '0' || r > '9')
	}) {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			continue
		}
		coords = append(coords, f)
		if len(coords) == 2 {
			break
		}
	}
	if len(coords) < 2 || coords[0] < -90 || coords[0] > 90 || coords[1] < -180 || coords[1] > 180 {
		return Position{}, false
	}
	return Position{
		Latitude:  coords[0],
		Longitude: coords[1],
		Timestamp: time.Now(),
	}, true
}
