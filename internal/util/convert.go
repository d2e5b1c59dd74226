// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strconv"

// IntToString formats an int for display strings.
func IntToString(n int) string {
	return strconv.Itoa(n)
}

// FloatToStringPrec formats a float with a fixed number of decimals.
// Coordinates use 6, roughly 10cm of precision at the equator.
func FloatToStringPrec(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// ParseCoordinate parses a decimal latitude or longitude, rejecting
// values outside the given magnitude bound (90 for latitude, 180 for
// longitude).
func ParseCoordinate(s string, bound float64) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < -bound || f > bound {
		return 0, false
	}
	return f, true
}
