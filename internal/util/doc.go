// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the UniAlerta client.
//
// This package contains common helper functions used throughout the
// application for string handling, type conversion, search-key
// normalization, and crash-safe file writes.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth: display-width aware truncation (go-runewidth)
//   - SearchKey: lowercase, diacritic-stripped search normalization
//
// Type Conversion:
//   - IntToString, FloatToStringPrec, ParseCoordinate
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
