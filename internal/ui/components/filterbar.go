// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/unialerta/uce-tui/internal/model"
	"github.com/unialerta/uce-tui/internal/ui/styles"
)

// =============================================================================
// FILTER BAR
// =============================================================================

// FilterBar shows the report filter chips and tracks the active one.
type FilterBar struct {
	active model.ReportFilter
	width  int
}

// NewFilterBar starts on the unfiltered view.
func NewFilterBar() *FilterBar {
	return &FilterBar{active: model.FilterAll}
}

// Active returns the current filter.
func (fb *FilterBar) Active() model.ReportFilter {
	return fb.active
}

// Set switches to a filter. Unknown values are ignored so a bad
// assistant action parameter cannot wedge the bar.
func (fb *FilterBar) Set(filter model.ReportFilter) {
	if filter.Valid() {
		fb.active = filter
	}
}

// Cycle advances to the next filter in the fixed order.
func (fb *FilterBar) Cycle() {
	fb.active = fb.active.Next()
}

// SetWidth updates the render width.
func (fb *FilterBar) SetWidth(width int) {
	fb.width = width
}

// View renders the chip row.
func (fb *FilterBar) View() string {
	chipStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Padding(0, 1)

	activeStyle := lipgloss.NewStyle().
		Foreground(styles.TextInverse).
		Background(styles.Indigo).
		Bold(true).
		Padding(0, 1)

	filters := model.AllFilters()
	chips := make([]string, len(filters))
	for i, f := range filters {
		if f == fb.active {
			chips[i] = activeStyle.Render(f.DisplayName())
		} else {
			chips[i] = chipStyle.Render(f.DisplayName())
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Center, chips...)
	if fb.width > 0 {
		row = lipgloss.NewStyle().MaxWidth(fb.width).Render(row)
	}
	return row
}
