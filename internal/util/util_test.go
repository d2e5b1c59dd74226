// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"shorter than max", "hola", 10, "hola"},
		{"exact length", "hola", 4, "hola"},
		{"truncated with ellipsis", "universidad central", 10, "univers..."},
		{"zero max", "hola", 0, ""},
		{"tiny max keeps no ellipsis", "hola", 2, "ho"},
		{"multibyte safe", "reunión académica", 9, "reunió..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateRunes(tt.input, tt.max))
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "hola", TruncateWidth("hola", 10))
	assert.Equal(t, "", TruncateWidth("hola", 0))

	// CJK characters occupy two columns each.
	out := TruncateWidth("日本語のテキスト", 8)
	assert.LessOrEqual(t, StringWidth(out), 8)
}

func TestSearchKey(t *testing.T) {
	assert.Equal(t, "reunion", SearchKey("Reunión"))
	assert.Equal(t, "cafeteria", SearchKey("CAFETERÍA"))
	assert.Equal(t, "nino", SearchKey("niño"))
	assert.Equal(t, "plain", SearchKey("plain"))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Incidente en la Cafetería Central", "cafeteria"))
	assert.True(t, ContainsFold("reunion", "Reunión"))
	assert.False(t, ContainsFold("biblioteca", "cafeteria"))
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	require.NoError(t, AtomicWriteFile(path, []byte(`{"ok":true}`), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Overwrite replaces the whole content.
	require.NoError(t, AtomicWriteFile(path, []byte("v2"), 0600))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConversions(t *testing.T) {
	assert.Equal(t, "42", IntToString(42))
	assert.Equal(t, "-7", IntToString(-7))
	assert.Equal(t, "3.1416", FloatToStringPrec(3.14159, 4))
	assert.Equal(t, "-78.503400", FloatToStringPrec(-78.5034, 6))
}

func TestParseCoordinate(t *testing.T) {
	lat, ok := ParseCoordinate("-0.1987", 90)
	require.True(t, ok)
	assert.InDelta(t, -0.1987, lat, 0.0001)

	_, ok = ParseCoordinate("91.5", 90)
	assert.False(t, ok)
	_, ok = ParseCoordinate("not a number", 90)
	assert.False(t, ok)
}
