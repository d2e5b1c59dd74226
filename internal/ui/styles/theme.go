// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// THEME
// =============================================================================

// Theme bundles terminal capabilities with the configured styles.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// Common styles
	Header    lipgloss.Style
	Footer    lipgloss.Style
	Title     lipgloss.Style
	Hint      lipgloss.Style
	ErrorText lipgloss.Style
	Prompt    lipgloss.Style
}

// NewTheme detects terminal capabilities and builds the theme.
// Setting mode to "dark" or "light" overrides background detection;
// "auto" uses what termenv reports.
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()
	hasTrueColor := colorProfile == termenv.TrueColor

	var isDark bool
	switch mode {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: hasTrueColor,
		ColorProfile: colorProfile,
	}
	t.buildStyles()
	return t
}

// SetSize updates layout dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// buildStyles constructs the shared styles.
func (t *Theme) buildStyles() {
	t.Header = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SurfaceDim).
		Bold(true).
		Padding(0, 1)

	t.Footer = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(SurfaceDim).
		Padding(0, 1)

	t.Title = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true)

	t.Hint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.Prompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
}
